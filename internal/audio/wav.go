package audio

import (
	"encoding/binary"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
)

// wavHeaderSize is the fixed size of the RIFF/fmt/data header.
const wavHeaderSize = 44

// WrapPCM packages raw PCM16 bytes in a WAV container. Each call
// writes a complete header, so every chunk is independently playable.
// Empty input yields a valid header describing zero samples.
func WrapPCM(pcm []byte) []byte {
	const (
		channels      = types.Channels
		sampleRate    = types.SampleRate
		bitsPerSample = types.BitsPerSample
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, wavHeaderSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // fmt subchunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], channels)
	binary.LittleEndian.PutUint32(out[24:28], sampleRate)
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out
}
