package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradeup-ai/voxline/pkg/configutil"
	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/resilience"
)

// Bootstrap is the per-session hand-off from the config collaborator:
// where to dial, what to say we are, and an opaque session config
// forwarded verbatim as the first configure message.
type Bootstrap struct {
	SessionID    string          `json:"session_id"`
	UserID       string          `json:"user_id"`
	Endpoint     string          `json:"endpoint"`
	Model        string          `json:"model"`
	ClientSecret string          `json:"client_secret"`
	Voice        string          `json:"voice"`
	Session      json.RawMessage `json:"session"`
}

type BootstrapClient struct {
	url        string
	httpClient *http.Client
	retry      resilience.RetryPolicy
	logger     *slog.Logger
}

type BootstrapOptions struct {
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

func NewBootstrapClient(endpoint string, opts BootstrapOptions, logger *slog.Logger) *BootstrapClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BootstrapClient{
		url:        endpoint,
		httpClient: &http.Client{Timeout: opts.Timeout},
		retry:      resilience.NewRetryPolicy(opts.MaxRetries, opts.Backoff),
		logger:     logger.With(slog.String("component", "bootstrap")),
	}
}

// Fetch retrieves the connection parameters for one session. The fetch
// is retried; anything that still fails is fatal to session start.
func (b *BootstrapClient) Fetch(ctx context.Context, sessionID string) (Bootstrap, error) {
	var boot Bootstrap
	if err := configutil.RequireString(b.url, "bootstrap.url"); err != nil {
		return boot, errorsx.Wrap(err, errorsx.ReasonBootstrapFetch)
	}

	fetchURL := b.url
	if u, err := url.Parse(b.url); err == nil {
		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
		fetchURL = u.String()
	}

	err := b.retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return err
		}
		resp, err := b.httpClient.Do(req)
		if err != nil {
			b.logger.Warn("bootstrap fetch failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			b.logger.Warn("bootstrap fetch rejected",
				slog.String("session_id", sessionID),
				slog.Int("status", resp.StatusCode))
			return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return json.NewDecoder(resp.Body).Decode(&boot)
	})
	if err != nil {
		return Bootstrap{}, errorsx.Wrap(err, errorsx.ReasonBootstrapFetch)
	}

	if boot.SessionID == "" {
		boot.SessionID = sessionID
	}
	if err := configutil.RequireString(boot.Endpoint, "bootstrap.endpoint"); err != nil {
		return Bootstrap{}, errorsx.Wrap(err, errorsx.ReasonBootstrapFetch)
	}
	return boot, nil
}
