// Package mock provides in-memory audio devices for tests and demos.
package mock

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/tradeup-ai/voxline/pkg/audio"
)

// Source replays a fixed sample buffer, or a generated sine tone when
// none is supplied. Deny simulates a microphone permission denial.
type Source struct {
	Samples []float32
	Deny    bool
	Loop    bool

	mu      sync.Mutex
	pos     int
	started bool
}

var ErrPermissionDenied = errors.New("microphone permission denied")

func NewToneSource(freq float64, seconds float64, sampleRate int) *Source {
	n := int(float64(sampleRate) * seconds)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return &Source{Samples: samples}
}

func (s *Source) Start(ctx context.Context, cfg audio.CaptureConfig) error {
	if s.Deny {
		return ErrPermissionDenied
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *Source) Read(dst []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return 0, errors.New("source not started")
	}
	if s.pos >= len(s.Samples) {
		if !s.Loop {
			return 0, io.EOF
		}
		s.pos = 0
	}
	n := copy(dst, s.Samples[s.pos:])
	s.pos += n
	return n, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return nil
}

// Sink drives the render callback on a ticker and discards the output.
type Sink struct {
	SampleRate int
	Period     time.Duration

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

func (s *Sink) Start(render audio.RenderFunc) error {
	if s.SampleRate <= 0 {
		s.SampleRate = 24000
	}
	if s.Period <= 0 {
		s.Period = 50 * time.Millisecond
	}
	s.done = make(chan struct{})
	out := make([]float32, int(float64(s.SampleRate)*s.Period.Seconds()))
	go func() {
		ticker := time.NewTicker(s.Period)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				render(out)
			}
		}
	}()
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.done != nil {
		close(s.done)
	}
	return nil
}
