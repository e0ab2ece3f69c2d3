package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutrition-call-assistant/internal/platform/httpclient"
	"nutrition-call-assistant/internal/platform/metrics"
	"nutrition-call-assistant/internal/ports/ai"
)

var (
	ErrGroqNotConfigured = fmt.Errorf("groq client: %w", ai.ErrNotConfigured)
	ErrGroqUpstream      = fmt.Errorf("groq client: %w", ai.ErrUpstream)
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Config del cliente Groq (API compatible con OpenAI chat completions).
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	http    *httpclient.Client
	apiKey  string
	model   string
	metrics *metrics.Registry
}

var _ ai.StructuredCompleter = (*Client)(nil)

func NewClient(cfg Config, m *metrics.Registry) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}
	return &Client{
		http:    hc,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		metrics: m,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteJSON usa JSON mode con temperatura 0 y decodifica el contenido en out.
func (c *Client) CompleteJSON(ctx context.Context, messages []ai.Message, out any) (err error) {
	if !c.IsConfigured() {
		return ErrGroqNotConfigured
	}
	started := time.Now()
	defer func() { c.metrics.RecordUpstream("groq", started, err) }()

	req := chatRequest{
		Model:          c.model,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	var resp chatResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, req, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrGroqUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: empty choices", ErrGroqUpstream)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: model returned invalid json: %v", ErrGroqUpstream, err)
	}
	return nil
}
