package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nutrition-call-assistant/internal/platform/httpclient"
	"nutrition-call-assistant/internal/platform/metrics"
	"nutrition-call-assistant/internal/ports/ai"
)

var (
	ErrTTSNotConfigured = fmt.Errorf("tts client: %w", ai.ErrNotConfigured)
	ErrTTSUpstream      = fmt.Errorf("tts client: %w", ai.ErrUpstream)
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultModel   = "eleven_multilingual_v2"
)

type Config struct {
	BaseURL string
	APIKey  string
	VoiceID string
	Model   string
	Timeout time.Duration
}

// Client sintetiza voz con la API text-to-speech de ElevenLabs.
type Client struct {
	http    *httpclient.Client
	apiKey  string
	voiceID string
	model   string
	metrics *metrics.Registry
}

var _ ai.SpeechSynthesizer = (*Client)(nil)

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
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	return &Client{
		http:    hc,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		voiceID: strings.TrimSpace(cfg.VoiceID),
		model:   model,
		metrics: m,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.apiKey != "" && c.voiceID != ""
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize devuelve el mp3 completo.
func (c *Client) Synthesize(ctx context.Context, text string) (audio []byte, err error) {
	if !c.IsConfigured() {
		return nil, ErrTTSNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrTTSUpstream)
	}

	started := time.Now()
	defer func() { c.metrics.RecordUpstream("tts", started, err) }()

	body, err := json.Marshal(ttsRequest{Text: text, ModelID: c.model})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal: %w", err)
	}

	audio, err = c.http.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		PathOrURL: "/v1/text-to-speech/" + url.PathEscape(c.voiceID),
		Headers: map[string]string{
			"xi-api-key":   c.apiKey,
			"Content-Type": "application/json",
			"Accept":       "audio/mpeg",
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTTSUpstream, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrTTSUpstream)
	}
	return audio, nil
}
