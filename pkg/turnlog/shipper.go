package turnlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/metrics"
	"github.com/tradeup-ai/voxline/pkg/turn"
)

// Entry is the wire form of one completed turn.
type Entry struct {
	SessionID           string `json:"sessionId"`
	UserID              string `json:"userId"`
	UserTranscript      string `json:"userTranscript"`
	AssistantTranscript string `json:"assistantTranscript"`
	LinksMarkdown       string `json:"linksMarkdown,omitempty"`
	StartedAt           string `json:"startedAt"`
	LatencyMS           int64  `json:"latencyMs"`
	Status              string `json:"status"`
}

// Shipper posts completed turns to the log sink from a single background
// goroutine. It never blocks the conversation path: a full buffer drops
// the turn, and a sink failure is diagnostics only.
type Shipper struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	observer   metrics.Observer
	ch         chan Entry
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

type Options struct {
	BufferSize int
	Timeout    time.Duration
}

func NewShipper(url string, opts Options, logger *slog.Logger) *Shipper {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Shipper{
		url:        url,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger.With(slog.String("component", "turnlog")),
		observer:   metrics.NoopObserver{},
		ch:         make(chan Entry, opts.BufferSize),
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Shipper) SetObserver(obs metrics.Observer) {
	if obs != nil {
		s.observer = obs
	}
}

// Ship enqueues one completed turn. Turns with an empty user transcript
// are discarded, never logged.
func (s *Shipper) Ship(rec turn.Record) {
	if strings.TrimSpace(rec.UserTranscript) == "" {
		s.logger.Debug("turn without user transcript discarded",
			slog.String("session_id", rec.SessionID))
		return
	}
	entry := Entry{
		SessionID:           rec.SessionID,
		UserID:              rec.UserID,
		UserTranscript:      rec.UserTranscript,
		AssistantTranscript: rec.AssistantTranscript,
		LinksMarkdown:       rec.LinksMarkdown,
		StartedAt:           rec.StartedAt.UTC().Format(time.RFC3339Nano),
		LatencyMS:           rec.Latency.Milliseconds(),
		Status:              string(rec.Status),
	}
	select {
	case s.ch <- entry:
	default:
		s.logger.Warn("turn log buffer full, dropping turn",
			slog.String("session_id", rec.SessionID))
	}
}

func (s *Shipper) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case entry := <-s.ch:
					s.post(entry)
				default:
					return
				}
			}
		case entry := <-s.ch:
			s.post(entry)
		}
	}
}

func (s *Shipper) post(entry Entry) {
	body, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("turn log marshal failed", slog.String("error", err.Error()))
		return
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("turn log request failed", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err == nil && resp.StatusCode >= http.StatusBadRequest {
		err = fmt.Errorf("status %s", resp.Status)
	}
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		// A lost log line never disturbs the conversation.
		wrapped := errorsx.Wrap(err, errorsx.ReasonTurnlogShip)
		s.logger.Warn("turn log ship failed",
			slog.String("session_id", entry.SessionID),
			slog.String("reason_code", string(errorsx.Reason(wrapped))),
			slog.String("error", err.Error()))
		return
	}
	s.observer.RecordEvent(metrics.MetricsEvent{
		Name:  "turn_shipped",
		Time:  time.Now(),
		Value: float64(entry.LatencyMS),
		Tags:  map[string]string{"session_id": entry.SessionID, "status": entry.Status},
	})
}

// Close stops the background goroutine after draining queued entries.
func (s *Shipper) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}
