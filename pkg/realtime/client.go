package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/logging"
)

// ConnState tracks the duplex connection lifecycle.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Config struct {
	Endpoint     string
	Model        string
	ClientSecret string
	DialTimeout  time.Duration
	SendBuffer   int
	EventBuffer  int
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 512
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 256
	}
	return c
}

// Client owns the persistent bidirectional connection to the remote
// speech agent. Writes go through a buffered channel drained by a single
// goroutine; audio frames are dropped when the buffer is full, control
// messages are not.
type Client struct {
	cfg    Config
	conn   *websocket.Conn
	sendCh chan []byte
	events chan ServerEvent
	state  atomic.Int32
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

var ErrClosed = errors.New("realtime: connection closed")

func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:    cfg,
		sendCh: make(chan []byte, cfg.SendBuffer),
		events: make(chan ServerEvent, cfg.EventBuffer),
		done:   make(chan struct{}),
		logger: logging.NewComponentLogger(slog.Default(), "realtime"),
	}
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// Connect dials the agent endpoint with the ephemeral credential. A dial
// failure is fatal to the session; there is no automatic reconnect.
func (c *Client) Connect(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	endpoint := c.cfg.Endpoint
	if c.cfg.Model != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			c.state.Store(int32(StateDisconnected))
			return errorsx.Wrap(err, errorsx.ReasonSocketDial)
		}
		q := u.Query()
		q.Set("model", c.cfg.Model)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	header := http.Header{}
	if c.cfg.ClientSecret != "" {
		header.Set("Authorization", "Bearer "+c.cfg.ClientSecret)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.logger.Error("socket_dial_failed", "error", err.Error())
		return errorsx.Wrap(err, errorsx.ReasonSocketDial)
	}
	c.conn = conn
	c.state.Store(int32(StateConnected))

	go c.writeLoop()
	go c.readLoop()
	return nil
}

// Configure forwards the opaque session configuration verbatim as the
// initial session-configure message.
func (c *Client) Configure(session json.RawMessage) error {
	msg, err := sessionUpdateMsg(session)
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

// AppendAudio sends one base64 PCM16 frame. Fire-and-forget: a full send
// buffer drops the frame rather than stalling the capture callback.
func (c *Client) AppendAudio(b64 string) error {
	msg, err := audioAppendMsg(b64)
	if err != nil {
		return err
	}
	select {
	case c.sendCh <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return nil
	}
}

// CancelResponse asks the agent to stop the in-flight generation.
func (c *Client) CancelResponse() error {
	msg, err := responseCancelMsg()
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

// SubmitToolResult delivers a tool output keyed by the callId it arrived
// with.
func (c *Client) SubmitToolResult(callID, output string) error {
	msg, err := toolResultMsg(callID, output)
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

// ResumeResponse asks the agent to continue generating after tool results
// have been submitted.
func (c *Client) ResumeResponse() error {
	msg, err := responseCreateMsg()
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

// Events exposes the typed inbound event stream. The channel closes when
// the socket does.
func (c *Client) Events() <-chan ServerEvent {
	return c.events
}

// enqueue blocks until the write loop accepts the message; control
// messages must not be dropped.
func (c *Client) enqueue(msg []byte) error {
	select {
	case c.sendCh <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.sendCh:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Warn("socket_write_error",
					"error", err.Error(),
					"reason_code", string(errorsx.ReasonSocketSend))
				// The socket is unusable; close so pending and future
				// control sends fail fast instead of queueing.
				_ = c.Close()
				return
			}
		}
	}
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.State() != StateClosed {
				c.state.Store(int32(StateClosed))
				c.logger.Info("socket_closed", "error", err.Error())
			}
			return
		}
		ev, err := ParseServerEvent(data)
		if err != nil {
			var unknown ErrUnknownEvent
			if !errors.As(err, &unknown) {
				c.logger.Warn("event_decode_error", "error", err.Error())
			}
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// Close tears the socket down. Idempotent.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
