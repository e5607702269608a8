package audio

import (
	"sync"
	"sync/atomic"
)

// PlaybackBuffer is the jitter buffer between arriving agent audio chunks
// and the pull-based render callback. Chunks are consumed strictly FIFO;
// a chunk larger than one callback's need is sliced and the remainder kept
// at the head. When the queue is empty the renderer emits digital silence.
type PlaybackBuffer struct {
	mu        sync.Mutex
	queue     [][]float32
	headOff   int
	queued    int
	underruns int64
}

func NewPlaybackBuffer() *PlaybackBuffer {
	return &PlaybackBuffer{}
}

// Push appends one decoded sample buffer. The buffer is copied so the
// caller may reuse its slice.
func (p *PlaybackBuffer) Push(samples []float32) {
	if len(samples) == 0 {
		return
	}
	buf := make([]float32, len(samples))
	copy(buf, samples)
	p.mu.Lock()
	p.queue = append(p.queue, buf)
	p.queued += len(buf)
	p.mu.Unlock()
}

// Render fills out completely from the queue head, zero-filling whatever
// the queue cannot cover. It never blocks; it runs on the audio device
// callback and must finish well inside one callback period.
func (p *PlaybackBuffer) Render(out []float32) {
	p.mu.Lock()
	n := 0
	for n < len(out) && len(p.queue) > 0 {
		head := p.queue[0]
		avail := head[p.headOff:]
		copied := copy(out[n:], avail)
		n += copied
		p.queued -= copied
		if copied == len(avail) {
			p.queue = p.queue[1:]
			p.headOff = 0
		} else {
			p.headOff += copied
		}
	}
	if n < len(out) {
		if n == 0 && len(out) > 0 {
			atomic.AddInt64(&p.underruns, 1)
		}
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
	}
	p.mu.Unlock()
}

// Clear drops everything queued, atomically with respect to Render, so a
// barge-in silences playback before the next callback fires.
func (p *PlaybackBuffer) Clear() {
	p.mu.Lock()
	p.queue = nil
	p.headOff = 0
	p.queued = 0
	p.mu.Unlock()
}

// Len reports the number of samples currently queued.
func (p *PlaybackBuffer) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queued
}

// Underruns reports how many times Render found an empty queue.
func (p *PlaybackBuffer) Underruns() int64 {
	return atomic.LoadInt64(&p.underruns)
}
