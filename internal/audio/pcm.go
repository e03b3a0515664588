// Package audio provides PCM16 encoding, the base64 wire format and
// WAV packaging for the voice bridge, plus portaudio capture and
// playback devices.
package audio

import "encoding/binary"

// EncodeFrame converts float32 samples in [-1, 1] to little-endian
// 16-bit PCM. Out-of-range samples are clamped.
func EncodeFrame(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodeFrame converts little-endian 16-bit PCM back to float32
// samples. A trailing odd byte is ignored.
func DecodeFrame(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if v < 0 {
			out[i] = float32(v) / 0x8000
		} else {
			out[i] = float32(v) / 0x7FFF
		}
	}
	return out
}
