package audio

import "testing"

func TestRenderEmitsSilenceOnEmptyQueue(t *testing.T) {
	p := NewPlaybackBuffer()
	out := []float32{1, 1, 1, 1}
	p.Render(out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d: expected silence, got %f", i, v)
		}
	}
	if p.Underruns() != 1 {
		t.Fatalf("expected one underrun, got %d", p.Underruns())
	}
}

func TestRenderSlicesHeadBuffer(t *testing.T) {
	p := NewPlaybackBuffer()
	p.Push([]float32{1, 2, 3, 4, 5})

	out := make([]float32, 2)
	p.Render(out)
	if out[0] != 1 || out[1] != 2 {
		t.Fatalf("first render wrong: %v", out)
	}
	p.Render(out)
	if out[0] != 3 || out[1] != 4 {
		t.Fatalf("remainder not kept at head: %v", out)
	}
	p.Render(out)
	if out[0] != 5 || out[1] != 0 {
		t.Fatalf("expected tail then silence, got %v", out)
	}
}

func TestRenderSpansMultipleChunks(t *testing.T) {
	p := NewPlaybackBuffer()
	p.Push([]float32{1, 2})
	p.Push([]float32{3, 4})

	out := make([]float32, 3)
	p.Render(out)
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Fatalf("render did not span chunks: %v", out)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 queued sample, got %d", p.Len())
	}
}

func TestClearTakesEffectBeforeNextRender(t *testing.T) {
	p := NewPlaybackBuffer()
	p.Push(make([]float32, 1024))
	p.Clear()
	if p.Len() != 0 {
		t.Fatalf("expected empty queue after clear, got %d", p.Len())
	}
	out := []float32{9, 9}
	p.Render(out)
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("expected silence after clear, got %v", out)
	}
}
