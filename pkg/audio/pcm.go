package audio

import "encoding/base64"

// FloatToPCM16 converts normalized float32 samples to 16-bit signed
// little-endian PCM, clamping out-of-range values.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	return out
}

// PCM16ToFloat converts little-endian PCM16 bytes to normalized float32
// samples. A trailing odd byte is ignored.
func PCM16ToFloat(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		out[i] = float32(v) / 32768
	}
	return out
}

// EncodeFrame base64-encodes a PCM16 payload for transport.
func EncodeFrame(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeChunk decodes a base64 PCM16 payload arriving from the agent.
func DecodeChunk(b64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64)
}
