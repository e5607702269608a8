package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tradeup-ai/voxline/pkg/audio"
	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/frames"
	"github.com/tradeup-ai/voxline/pkg/metrics"
	"github.com/tradeup-ai/voxline/pkg/realtime"
	"github.com/tradeup-ai/voxline/pkg/tools"
	"github.com/tradeup-ai/voxline/pkg/turn"
	"github.com/tradeup-ai/voxline/pkg/turnlog"
)

// DuplexClient is the slice of the realtime client the session drives.
type DuplexClient interface {
	Connect(ctx context.Context) error
	Configure(session json.RawMessage) error
	AppendAudio(b64 string) error
	CancelResponse() error
	SubmitToolResult(callID, output string) error
	ResumeResponse() error
	Events() <-chan realtime.ServerEvent
	Close() error
}

var _ DuplexClient = (*realtime.Client)(nil)

// Hooks lets an embedding context observe the conversation without
// owning the pipeline. All hooks are optional and called inline from the
// coordinator goroutine; they must return quickly.
type Hooks struct {
	OnStatus     func(status string)
	OnTranscript func(t frames.TextFrame)
	OnToolCall   func(name string)
}

// Params collects everything a session owns or borrows.
type Params struct {
	ID            string
	UserID        string
	Client        DuplexClient
	Source        audio.Source
	Sink          audio.Sink
	Capture       audio.CaptureConfig
	Registry      tools.Registry
	Dispatch      tools.Options
	Shipper       *turnlog.Shipper
	Observer      metrics.Observer
	Hooks         Hooks
	Logger        *slog.Logger
	SessionConfig json.RawMessage
	RecordDir     string
}

// Session owns exactly one socket, one capture device, and one playback
// device. It runs the coordinator goroutine that maps inbound events to
// the state machine, the playback queue, the tool dispatcher, and the
// turn logger.
type Session struct {
	id     string
	userID string
	logger *slog.Logger

	client     DuplexClient
	source     audio.Source
	sink       audio.Sink
	capture    *audio.CaptureEncoder
	playback   *audio.PlaybackBuffer
	machine    *turn.Machine
	builder    *turn.Builder
	dispatcher *tools.Dispatcher
	shipper    *turnlog.Shipper
	observer   metrics.Observer
	hooks      Hooks

	sessionConfig json.RawMessage
	recordDir     string
	recIn         *audio.WAVRecorder
	recOut        *audio.WAVRecorder

	connected      atomic.Bool
	responseActive atomic.Bool
	pts            *frames.PTSGen

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func New(p Params) *Session {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Observer == nil {
		p.Observer = metrics.NoopObserver{}
	}
	s := &Session{
		id:            p.ID,
		userID:        p.UserID,
		logger:        p.Logger.With(slog.String("component", "session"), slog.String("session_id", p.ID)),
		client:        p.Client,
		source:        p.Source,
		sink:          p.Sink,
		playback:      audio.NewPlaybackBuffer(),
		builder:       turn.NewBuilder(p.ID, p.UserID),
		shipper:       p.Shipper,
		observer:      p.Observer,
		hooks:         p.Hooks,
		sessionConfig: p.SessionConfig,
		recordDir:     p.RecordDir,
		pts:           frames.NewPTSGen(),
	}
	s.machine = turn.NewMachine(s)
	s.capture = audio.NewCaptureEncoder(p.Source, s, p.Capture)
	s.capture.SetStamp(func() int64 { return s.pts.Next(s.id) })
	s.dispatcher = tools.NewDispatcher(p.Registry, resultSink{s}, p.Dispatch)
	s.dispatcher.SetObserver(p.Observer)
	return s
}

func (s *Session) ID() string        { return s.id }
func (s *Session) State() turn.State { return s.machine.State() }

// Start brings the pipeline up. The capture device is acquired before
// the socket is dialed: a microphone permission denial fails the start
// and the remote agent is never contacted.
func (s *Session) Start(ctx context.Context) error {
	if err := s.capture.Start(ctx); err != nil {
		s.status("disconnected")
		s.logger.Error("capture start failed",
			slog.String("reason_code", string(errorsx.Reason(err))),
			slog.String("error", err.Error()))
		return err
	}
	s.startRecorders()

	if err := s.client.Connect(ctx); err != nil {
		_ = s.capture.Stop()
		s.closeRecorders()
		s.status("disconnected")
		s.logger.Error("socket dial failed",
			slog.String("reason_code", string(errorsx.Reason(err))),
			slog.String("error", err.Error()))
		return err
	}
	if err := s.client.Configure(s.sessionConfig); err != nil {
		s.teardown()
		return err
	}
	if err := s.sink.Start(s.playback.Render); err != nil {
		s.teardown()
		return err
	}
	s.connected.Store(true)
	s.status("connected")
	s.logger.Info("session started")

	s.wg.Add(1)
	go s.coordinate()
	return nil
}

// AppendAudio is the capture encoder's frame writer. Frames are dropped
// until the socket is up so nothing is ever buffered toward a dead
// connection.
func (s *Session) AppendAudio(b64 string) error {
	if !s.connected.Load() {
		return nil
	}
	return s.client.AppendAudio(b64)
}

// Emit handles barge-in control frames from the state machine. Playback
// is cleared before the cancel request goes out: audio already enqueued
// must not keep playing during the cancel round trip. The cancel is sent
// only when a response is actually in flight.
func (s *Session) Emit(frame frames.Frame) error {
	cf, ok := frame.(frames.ControlFrame)
	if !ok || cf.Code() != frames.ControlBargeIn {
		return nil
	}
	s.playback.Clear()
	if s.responseActive.CompareAndSwap(true, false) {
		if err := s.client.CancelResponse(); err != nil {
			s.logger.Warn("cancel request failed", slog.String("error", err.Error()))
		}
	}
	s.observer.RecordEvent(metrics.MetricsEvent{
		Name: "barge_in",
		Time: time.Now(),
		Tags: map[string]string{"session_id": s.id},
	})
	return nil
}

func (s *Session) coordinate() {
	defer s.wg.Done()
	for ev := range s.client.Events() {
		s.handle(ev)
	}
	s.connected.Store(false)
	s.status("disconnected")
}

func (s *Session) handle(ev realtime.ServerEvent) {
	switch e := ev.(type) {
	case realtime.SessionReady:
		s.logger.Info("remote session ready",
			slog.String("model", e.Model),
			slog.String("voice", e.Voice))
		s.status("listening")

	case realtime.SpeechStarted:
		if s.machine.OnUserSpeechStart() {
			s.flushTurn(turn.StatusInterrupted)
		}
		s.status("listening")

	case realtime.TranscriptCompleted:
		s.builder.Begin(e.Transcript)
		s.machine.OnUserTranscript()
		s.transcript("user", e.Transcript, true)
		s.status("thinking")

	case realtime.ResponseStarted:
		s.responseActive.Store(true)

	case realtime.AudioDelta:
		pcm, err := audio.DecodeChunk(e.Delta)
		if err != nil {
			s.logger.Warn("audio chunk decode failed", slog.String("error", err.Error()))
			return
		}
		s.machine.OnAgentAudioStart()
		s.builder.MarkFirstDelta()
		s.playback.Push(audio.PCM16ToFloat(pcm))
		if s.recOut != nil {
			meta := map[string]string{frames.MetaDirection: frames.DirectionPlayback, frames.MetaEncoding: "pcm16"}
			f := frames.NewAudioFrameFromPool(s.id, s.pts.Next(s.id), pcm, s.capture.Config().SampleRate, s.capture.Config().Channels, meta)
			_ = s.recOut.WriteFrame(f)
			frames.ReleaseAudioFrame(f)
		}
		s.status("speaking")

	case realtime.TranscriptDelta:
		s.builder.AppendAssistant(e.Delta)
		s.transcript("assistant", e.Delta, false)

	case realtime.TranscriptDone:
		s.builder.SetAssistantTranscript(e.Transcript)
		s.transcript("assistant", e.Transcript, true)

	case realtime.ResponseDone:
		s.responseActive.Store(false)
		s.machine.OnResponseDone("response " + e.Status)
		switch e.Status {
		case "cancelled":
			s.flushTurn(turn.StatusInterrupted)
		case "failed":
			s.flushTurn(turn.StatusError)
		default:
			s.flushTurn(turn.StatusSuccess)
		}
		s.status("listening")

	case realtime.ToolCallRequested:
		s.toolCall(e.Name)
		s.dispatcher.Dispatch(tools.Call{
			CallID:        e.CallID,
			Name:          e.Name,
			ArgumentsJSON: e.Arguments,
		})

	case realtime.ErrorEvent:
		// Remote errors end the turn, never the session.
		s.responseActive.Store(false)
		s.logger.Warn("remote agent error",
			slog.String("code", e.Code),
			slog.String("message", e.Message),
			slog.String("reason_code", string(errorsx.ReasonAgentError)))
		s.machine.OnResponseDone("agent error")
		s.flushTurn(turn.StatusError)
		s.status("I ran into an issue. Let's keep going.")
	}
}

// flushTurn closes the open turn at most once and ships it.
func (s *Session) flushTurn(status turn.Status) {
	rec, ok := s.builder.Finalize(status)
	if !ok {
		return
	}
	if s.shipper != nil {
		s.shipper.Ship(rec)
	}
	s.observer.RecordEvent(metrics.MetricsEvent{
		Name:  "turn_completed",
		Time:  time.Now(),
		Value: float64(rec.Latency.Milliseconds()),
		Tags:  map[string]string{"session_id": s.id, "status": string(rec.Status)},
	})
}

// Stop tears the session down in dependency order: capture ticker and
// microphone first, then the playback device, then the socket, then the
// queue. Closing the socket while capture still fires would leak the
// device handle.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.teardown()
		s.wg.Wait()
		s.dispatcher.Close()
		s.machine.Reset()
		s.logger.Info("session stopped")
	})
}

func (s *Session) teardown() {
	s.connected.Store(false)
	_ = s.capture.Stop()
	_ = s.sink.Close()
	_ = s.client.Close()
	s.playback.Clear()
	s.closeRecorders()
}

func (s *Session) startRecorders() {
	if s.recordDir == "" {
		return
	}
	cfg := s.capture.Config()
	in, err := audio.NewWAVRecorder(s.recordDir, s.id, "in", cfg.SampleRate, cfg.Channels)
	if err != nil {
		s.logger.Warn("capture recorder unavailable", slog.String("error", err.Error()))
	} else {
		s.recIn = in
		s.capture.SetTap(func(f frames.AudioFrame) { _ = in.WriteFrame(f) })
	}
	out, err := audio.NewWAVRecorder(s.recordDir, s.id, "out", cfg.SampleRate, cfg.Channels)
	if err != nil {
		s.logger.Warn("playback recorder unavailable", slog.String("error", err.Error()))
		return
	}
	s.recOut = out
}

func (s *Session) closeRecorders() {
	if s.recIn != nil {
		_ = s.recIn.Close()
		s.recIn = nil
	}
	if s.recOut != nil {
		_ = s.recOut.Close()
		s.recOut = nil
	}
}

func (s *Session) status(status string) {
	if s.hooks.OnStatus != nil {
		s.hooks.OnStatus(status)
	}
}

// transcript delivers one transcript fragment to the embedding context
// as a text frame carrying the speaker and finality in its meta.
func (s *Session) transcript(role, text string, final bool) {
	if s.hooks.OnTranscript == nil {
		return
	}
	meta := map[string]string{
		frames.MetaUserID:  s.userID,
		frames.MetaSource:  role,
		frames.MetaIsFinal: strconv.FormatBool(final),
	}
	s.hooks.OnTranscript(frames.NewTextFrame(s.id, s.pts.Next(s.id), text, meta))
}

func (s *Session) toolCall(name string) {
	if s.hooks.OnToolCall != nil {
		s.hooks.OnToolCall(name)
	}
}

// resultSink funnels tool outputs back through the session so links in
// the output land on the open turn before the result reaches the agent.
type resultSink struct {
	s *Session
}

func (r resultSink) SubmitToolResult(callID, output string) error {
	r.s.builder.AddLinksFromText(output)
	return r.s.client.SubmitToolResult(callID, output)
}

func (r resultSink) ResumeResponse() error {
	return r.s.client.ResumeResponse()
}

var _ turn.InterruptEmitter = (*Session)(nil)
var _ audio.FrameWriter = (*Session)(nil)
var _ tools.ResultSink = resultSink{}
