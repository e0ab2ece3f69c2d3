package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutrition-call-assistant/internal/platform/httpclient"
	"nutrition-call-assistant/internal/platform/metrics"
	"nutrition-call-assistant/internal/ports/ai"
)

var (
	ErrOpenAINotConfigured = fmt.Errorf("openai client: %w", ai.ErrNotConfigured)
	ErrOpenAIUpstream      = fmt.Errorf("openai client: %w", ai.ErrUpstream)
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultVisionModel = "gpt-4o-mini"

	defaultPrompt = "Describe the food in this image: list every dish and ingredient you can identify with an estimated portion size."
)

type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client describe imágenes con un modelo de visión.
type Client struct {
	http      *httpclient.Client
	apiKey    string
	model     string
	maxTokens int
	metrics   *metrics.Registry
}

var _ ai.VisionDescriber = (*Client)(nil)

func NewClient(cfg Config, m *metrics.Registry) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultVisionModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return &Client{
		http:      hc,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		model:     model,
		maxTokens: maxTokens,
		metrics:   m,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

type imageURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) DescribeImage(ctx context.Context, imgURL, prompt string) (desc string, err error) {
	if !c.IsConfigured() {
		return "", ErrOpenAINotConfigured
	}
	imgURL = strings.TrimSpace(imgURL)
	if imgURL == "" {
		return "", fmt.Errorf("%w: empty image url", ErrOpenAIUpstream)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultPrompt
	}

	started := time.Now()
	defer func() { c.metrics.RecordUpstream("openai_vision", started, err) }()

	req := visionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []visionMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: imgURL}},
			},
		}},
	}

	var resp visionResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, req, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpenAIUpstream, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty description", ErrOpenAIUpstream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
