package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWrapPCMHeader(t *testing.T) {
	pcm := make([]byte, 960)
	out := WrapPCM(pcm)

	if len(out) != wavHeaderSize+len(pcm) {
		t.Fatalf("total size %d, want %d", len(out), wavHeaderSize+len(pcm))
	}
	if !bytes.Equal(out[0:4], []byte("RIFF")) || !bytes.Equal(out[8:12], []byte("WAVE")) {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("riff chunk size %d, want %d", got, 36+len(pcm))
	}
	if got := binary.LittleEndian.Uint16(out[20:22]); got != 1 {
		t.Errorf("audio format %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != 1 {
		t.Errorf("channels %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 24000 {
		t.Errorf("sample rate %d, want 24000", got)
	}
	if got := binary.LittleEndian.Uint32(out[28:32]); got != 48000 {
		t.Errorf("byte rate %d, want 48000", got)
	}
	if got := binary.LittleEndian.Uint16(out[34:36]); got != 16 {
		t.Errorf("bits per sample %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size %d, want %d", got, len(pcm))
	}
}

func TestWrapPCMEmptyInput(t *testing.T) {
	out := WrapPCM(nil)
	if len(out) != wavHeaderSize {
		t.Fatalf("expected bare %d-byte header, got %d bytes", wavHeaderSize, len(out))
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != 0 {
		t.Errorf("data size %d, want 0", got)
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != 36 {
		t.Errorf("riff chunk size %d, want 36", got)
	}
}

func TestWrapPCMEachChunkIndependent(t *testing.T) {
	a := WrapPCM(make([]byte, 100))
	b := WrapPCM(make([]byte, 200))
	if binary.LittleEndian.Uint32(a[40:44]) != 100 || binary.LittleEndian.Uint32(b[40:44]) != 200 {
		t.Error("each chunk must carry its own data size")
	}
}
