package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
)

// Player consumes decoded PCM16 chunks for audible output.
type Player interface {
	Start() error
	Play(pcm []byte) error
	Stop() error
}

// Speaker writes PCM16 chunks to the default output device via
// portaudio, applying a volume gain per sample.
type Speaker struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []float32
	volume float64
}

// NewSpeaker returns an unstarted speaker with the given gain.
func NewSpeaker(volume float64) *Speaker {
	return &Speaker{
		buf:    make([]float32, types.FramesPerBuffer),
		volume: volume,
	}
}

// SetVolume updates the playback gain. Values are clamped to [0, 1].
func (s *Speaker) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

// Start initializes portaudio and opens the default output stream.
func (s *Speaker) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return classifyDeviceError(err)
	}
	stream, err := portaudio.OpenDefaultStream(0, types.Channels, float64(types.SampleRate), types.FramesPerBuffer, s.buf)
	if err != nil {
		portaudio.Terminate()
		return classifyDeviceError(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return classifyDeviceError(err)
	}
	s.stream = stream
	return nil
}

// Play decodes a PCM16 chunk and writes it to the output stream in
// frame-sized slices, padding the final partial frame with silence.
func (s *Speaker) Play(pcm []byte) error {
	s.mu.Lock()
	stream := s.stream
	gain := float32(s.volume)
	s.mu.Unlock()
	if stream == nil {
		return ErrDeviceUnavailable
	}
	samples := DecodeFrame(pcm)
	for off := 0; off < len(samples); off += len(s.buf) {
		n := copy(s.buf, samples[off:])
		for i := 0; i < n; i++ {
			s.buf[i] *= gain
		}
		for i := n; i < len(s.buf); i++ {
			s.buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return classifyDeviceError(err)
		}
	}
	return nil
}

// Stop closes the stream and releases portaudio.
func (s *Speaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	err := s.stream.Stop()
	if cerr := s.stream.Close(); err == nil {
		err = cerr
	}
	s.stream = nil
	portaudio.Terminate()
	return err
}
