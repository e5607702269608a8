package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tradeup-ai/voxline/pkg/frames"
)

// WAVRecorder persists one direction of a conversation's PCM16 stream as
// a WAV artifact for diagnostics. It is an optional tap and never sits on
// the realtime path itself.
type WAVRecorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	format  *goaudio.Format
	closed  bool
}

// NewWAVRecorder creates <dir>/<sessionID>_<direction>_<unix>.wav.
func NewWAVRecorder(dir, sessionID, direction string, sampleRate, channels int) (*WAVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s_%s_%d.wav", sessionID, direction, time.Now().Unix())
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	return &WAVRecorder{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, 16, channels, 1),
		format:  &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
	}, nil
}

// WriteFrame appends one PCM16 audio frame to the artifact.
func (r *WAVRecorder) WriteFrame(f frames.AudioFrame) error {
	return r.WritePCM16(f.RawPayload())
}

func (r *WAVRecorder) WritePCM16(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return os.ErrClosed
	}
	n := len(pcm) / 2
	data := make([]int, n)
	for i := 0; i < n; i++ {
		data[i] = int(int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8))
	}
	buf := &goaudio.IntBuffer{Format: r.format, Data: data, SourceBitDepth: 16}
	return r.encoder.Write(buf)
}

func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.encoder.Close(); err != nil {
		_ = r.file.Close()
		return err
	}
	return r.file.Close()
}
