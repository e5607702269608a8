package audio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/frames"
	"github.com/tradeup-ai/voxline/pkg/logging"
)

// FrameWriter receives base64-encoded PCM16 frames for transport.
type FrameWriter interface {
	AppendAudio(b64 string) error
}

// CaptureEncoder reads the microphone source on a fixed cadence, converts
// float samples to PCM16, and hands base64 frames to the writer.
// Partial device reads are carried across ticks so no sample is dropped
// or duplicated at frame boundaries.
type CaptureEncoder struct {
	cfg    CaptureConfig
	src    Source
	writer FrameWriter
	tap    func(frames.AudioFrame)
	stamp  func() int64
	logger *slog.Logger

	mu      sync.Mutex
	pending []float32
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
	started bool
}

func NewCaptureEncoder(src Source, writer FrameWriter, cfg CaptureConfig) *CaptureEncoder {
	return &CaptureEncoder{
		cfg:    cfg.withDefaults(),
		src:    src,
		writer: writer,
		stamp:  func() int64 { return time.Now().UnixNano() },
		logger: logging.NewComponentLogger(slog.Default(), "capture"),
	}
}

// Config returns the effective capture configuration after defaults.
func (c *CaptureEncoder) Config() CaptureConfig {
	return c.cfg
}

// SetTap registers an observer for encoded frames (recorder, diagnostics).
func (c *CaptureEncoder) SetTap(tap func(frames.AudioFrame)) {
	c.tap = tap
}

// SetStamp replaces the presentation-timestamp source for tapped frames.
func (c *CaptureEncoder) SetStamp(stamp func() int64) {
	if stamp != nil {
		c.stamp = stamp
	}
}

// Start acquires the device and begins the periodic encode loop.
// A device failure here fails the whole session closed: no frame is ever
// emitted and the caller must not open the duplex socket.
func (c *CaptureEncoder) Start(ctx context.Context) error {
	if err := c.src.Start(ctx, c.cfg); err != nil {
		c.logger.Error("capture_open_failed", "error", err.Error())
		return errorsx.Wrap(err, errorsx.ReasonMicDenied)
	}
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	c.ticker = time.NewTicker(c.cfg.FrameDuration)
	c.done = make(chan struct{})
	go c.loop(ctx)
	c.logger.Info("capture_started",
		"sample_rate", c.cfg.SampleRate,
		"frame_ms", c.cfg.FrameDuration.Milliseconds(),
		"echo_cancellation", c.cfg.EchoCancellation,
		"noise_suppression", c.cfg.NoiseSuppression)
	return nil
}

func (c *CaptureEncoder) loop(ctx context.Context) {
	defer c.ticker.Stop()
	frameSize := c.cfg.SamplesPerFrame()
	buf := make([]float32, frameSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.ticker.C:
			n, err := c.src.Read(buf)
			if n > 0 {
				c.mu.Lock()
				c.pending = append(c.pending, buf[:n]...)
				c.mu.Unlock()
			}
			c.emitFull(frameSize)
			if err != nil {
				if err != io.EOF {
					c.logger.Warn("capture_read_error", "error", err.Error())
				}
				return
			}
		}
	}
}

// emitFull flushes every complete frame currently pending.
func (c *CaptureEncoder) emitFull(frameSize int) {
	for {
		c.mu.Lock()
		if len(c.pending) < frameSize {
			c.mu.Unlock()
			return
		}
		frame := c.pending[:frameSize]
		pcm := FloatToPCM16(frame)
		c.pending = append(c.pending[:0], c.pending[frameSize:]...)
		c.mu.Unlock()
		c.write(pcm)
	}
}

func (c *CaptureEncoder) write(pcm []byte) {
	if c.tap != nil {
		meta := map[string]string{frames.MetaDirection: frames.DirectionCapture, frames.MetaEncoding: "pcm16"}
		// The tap runs synchronously, so the pooled buffer is reclaimed
		// as soon as it returns.
		f := frames.NewAudioFrameFromPool("", c.stamp(), pcm, c.cfg.SampleRate, c.cfg.Channels, meta)
		c.tap(f)
		frames.ReleaseAudioFrame(f)
	}
	if err := c.writer.AppendAudio(EncodeFrame(pcm)); err != nil {
		c.logger.Warn("capture_send_error", "error", err.Error())
	}
}

// Stop halts the encode loop and flushes any trailing partial frame, then
// releases the device. Safe to call more than once.
func (c *CaptureEncoder) Stop() error {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()
	if !started {
		return nil
	}
	c.once.Do(func() {
		if c.ticker != nil {
			c.ticker.Stop()
		}
		if c.done != nil {
			close(c.done)
		}
	})
	c.mu.Lock()
	rest := c.pending
	c.pending = nil
	c.mu.Unlock()
	if len(rest) > 0 {
		c.write(FloatToPCM16(rest))
	}
	return c.src.Close()
}
