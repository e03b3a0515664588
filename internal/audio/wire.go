package audio

import (
	"encoding/base64"
	"strings"
)

// wireChunkSize bounds the raw bytes encoded per base64 chunk so a
// single frame never produces an oversized message payload. It must
// stay a multiple of 3 so concatenated chunks carry no interior
// padding and decode as one base64 string.
const wireChunkSize = 32*1024 - 2

// ToWireFormat encodes raw PCM bytes as base64 for transmission,
// encoding in bounded chunks and concatenating the results.
func ToWireFormat(pcm []byte) string {
	if len(pcm) <= wireChunkSize {
		return base64.StdEncoding.EncodeToString(pcm)
	}
	var b strings.Builder
	for off := 0; off < len(pcm); off += wireChunkSize {
		end := off + wireChunkSize
		if end > len(pcm) {
			end = len(pcm)
		}
		b.WriteString(base64.StdEncoding.EncodeToString(pcm[off:end]))
	}
	return b.String()
}

// FromWireFormat decodes a base64 payload back to raw PCM bytes.
func FromWireFormat(payload string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(payload)
}
