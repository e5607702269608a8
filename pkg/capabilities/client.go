package capabilities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/resilience"
)

// Config holds the connection settings for the capability backends.
// All routes hang off one base URL; the collaborator owns the schemas.
type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client is the HTTP client for the backend business capabilities. Every
// capability is one POST whose JSON response is reduced to a single text
// string before it reaches the remote agent.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        Config{BaseURL: strings.TrimRight(cfg.BaseURL, "/"), APIKey: cfg.APIKey, Timeout: cfg.Timeout},
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:     logger.With(slog.String("component", "capabilities")),
	}
}

// SetHTTPClient overrides the transport, used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

// postJSON performs one capability round trip. A tripped breaker or an
// HTTP-level failure comes back as a BackendError wrapped tool_backend;
// there are no automatic retries.
func (c *Client) postJSON(ctx context.Context, route string, payload map[string]any) (map[string]any, error) {
	if !c.breaker.Allow() {
		err := resilience.BackendError{Backend: route, Message: "backend temporarily unavailable"}
		return nil, errorsx.Wrap(err, errorsx.ReasonToolBackend)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+route, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		be := resilience.BackendError{Backend: route, Message: err.Error()}
		c.breaker.OnError(be)
		c.logger.Warn("capability request failed",
			slog.String("route", route),
			slog.String("error", err.Error()))
		return nil, errorsx.Wrap(be, errorsx.ReasonToolBackend)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		be := resilience.BackendError{
			Backend: route,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		}
		c.breaker.OnError(be)
		c.logger.Warn("capability backend error",
			slog.String("route", route),
			slog.Int("status", resp.StatusCode))
		return nil, errorsx.Wrap(be, errorsx.ReasonToolBackend)
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		be := resilience.BackendError{Backend: route, Message: "decode response: " + err.Error()}
		c.breaker.OnError(be)
		return nil, errorsx.Wrap(be, errorsx.ReasonToolBackend)
	}
	c.breaker.OnSuccess()
	return decoded, nil
}

// salientKeys is the order in which capability responses are probed for
// the one field worth speaking aloud.
var salientKeys = []string{"text", "result", "answer", "summary", "message", "content"}

// reduce collapses a backend JSON body to a single text string. The
// remote agent only ever receives text, never structured objects.
func reduce(body map[string]any) string {
	for _, key := range salientKeys {
		v, ok := body[key]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if strings.TrimSpace(s) != "" {
				return s
			}
		case []any:
			parts := make([]string, 0, len(s))
			for _, item := range s {
				if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
					parts = append(parts, str)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "\n")
			}
		}
	}
	b, err := json.Marshal(body)
	if err != nil || string(b) == "{}" {
		return ""
	}
	return string(b)
}
