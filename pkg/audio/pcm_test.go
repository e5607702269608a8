package audio

import (
	"math"
	"testing"
)

func TestFloatPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.999, -0.999}
	pcm := FloatToPCM16(in)
	if len(pcm) != len(in)*2 {
		t.Fatalf("expected %d bytes, got %d", len(in)*2, len(pcm))
	}
	out := PCM16ToFloat(pcm)
	for i := range in {
		if math.Abs(float64(in[i]-out[i])) > 1.0/32768 {
			t.Fatalf("sample %d: %f round-tripped to %f", i, in[i], out[i])
		}
	}
}

func TestFloatToPCM16Clamps(t *testing.T) {
	pcm := FloatToPCM16([]float32{2, -2})
	out := PCM16ToFloat(pcm)
	if out[0] < 0.99 || out[1] > -0.99 {
		t.Fatalf("expected clamped full-scale samples, got %v", out)
	}
}

func TestEncodeDecodeFrame(t *testing.T) {
	pcm := FloatToPCM16([]float32{0.25, -0.25})
	b64 := EncodeFrame(pcm)
	back, err := DecodeChunk(b64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(back) != string(pcm) {
		t.Fatalf("payload mismatch after base64 round trip")
	}
}
