package audio

import (
	"context"
	"time"
)

// CaptureConfig describes how the microphone stream is opened and framed.
// Echo cancellation and noise suppression are applied by the platform's
// audio subsystem at capture time, not in this package.
type CaptureConfig struct {
	SampleRate       int
	Channels         int
	FrameDuration    time.Duration
	EchoCancellation bool
	NoiseSuppression bool
}

const (
	minFrameDuration = 85 * time.Millisecond
	maxFrameDuration = 170 * time.Millisecond
)

func (c CaptureConfig) withDefaults() CaptureConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 24000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = 100 * time.Millisecond
	}
	if c.FrameDuration < minFrameDuration {
		c.FrameDuration = minFrameDuration
	}
	if c.FrameDuration > maxFrameDuration {
		c.FrameDuration = maxFrameDuration
	}
	return c
}

// SamplesPerFrame is the fixed frame window implied by the config.
func (c CaptureConfig) SamplesPerFrame() int {
	c = c.withDefaults()
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// Source is a live input audio device delivering normalized float32
// samples at its native sample rate. Start acquires the device; a
// permission denial surfaces there and is fatal to the session.
type Source interface {
	Start(ctx context.Context, cfg CaptureConfig) error
	Read(dst []float32) (int, error)
	Close() error
}

// RenderFunc is the pull callback driven by the playback device. It must
// always fill out completely and must not block.
type RenderFunc func(out []float32)

// Sink is an output audio device that pulls rendered samples.
type Sink interface {
	Start(render RenderFunc) error
	Close() error
}
