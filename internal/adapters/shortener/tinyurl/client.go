package tinyurl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nutrition-call-assistant/internal/platform/httpclient"
	"nutrition-call-assistant/internal/platform/metrics"
	"nutrition-call-assistant/internal/ports/shortener"
)

var ErrTinyURLUpstream = errors.New("tinyurl upstream error")

const DefaultEndpoint = "http://tinyurl.com/api-create.php"

type Config struct {
	// Endpoint completo; recibe ?url=<long> y responde la URL corta en texto plano.
	Endpoint string
	Timeout  time.Duration
}

type Client struct {
	http     *httpclient.Client
	endpoint string
	metrics  *metrics.Registry
}

var _ shortener.Shortener = (*Client)(nil)

func NewClient(cfg Config, m *metrics.Registry) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:     httpclient.New(timeout),
		endpoint: endpoint,
		metrics:  m,
	}
}

func (c *Client) Shorten(ctx context.Context, longURL string) (short string, err error) {
	longURL = strings.TrimSpace(longURL)
	if longURL == "" {
		return "", fmt.Errorf("%w: empty url", ErrTinyURLUpstream)
	}

	started := time.Now()
	defer func() { c.metrics.RecordUpstream("tinyurl", started, err) }()

	raw, err := c.http.Do(ctx, httpclient.Request{
		Method:    http.MethodGet,
		PathOrURL: c.endpoint,
		Query:     url.Values{"url": []string{longURL}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTinyURLUpstream, err)
	}

	short = strings.TrimSpace(string(raw))
	if !strings.HasPrefix(short, "http://") && !strings.HasPrefix(short, "https://") {
		return "", fmt.Errorf("%w: unexpected response %q", ErrTinyURLUpstream, short)
	}
	return short, nil
}
