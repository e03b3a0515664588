package audio

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
)

var (
	// ErrPermissionDenied indicates the capture device is present
	// but access to it was refused.
	ErrPermissionDenied = errors.New("audio device permission denied")
	// ErrDeviceUnavailable indicates no usable capture device.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// Source produces fixed-size frames of float32 microphone samples.
type Source interface {
	Start() error
	Read() ([]float32, error)
	Stop() error
}

// Microphone captures mono float32 frames from the default input
// device via portaudio.
type Microphone struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []float32
}

// NewMicrophone returns an unstarted microphone source.
func NewMicrophone() *Microphone {
	return &Microphone{buf: make([]float32, types.FramesPerBuffer)}
}

// Start initializes portaudio and opens the default input stream.
func (m *Microphone) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return classifyDeviceError(err)
	}
	stream, err := portaudio.OpenDefaultStream(types.Channels, 0, float64(types.SampleRate), types.FramesPerBuffer, m.buf)
	if err != nil {
		portaudio.Terminate()
		return classifyDeviceError(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return classifyDeviceError(err)
	}
	m.stream = stream
	return nil
}

// Read blocks until one frame of samples is available and returns a
// copy of it.
func (m *Microphone) Read() ([]float32, error) {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()
	if stream == nil {
		return nil, ErrDeviceUnavailable
	}
	if err := stream.Read(); err != nil {
		return nil, classifyDeviceError(err)
	}
	frame := make([]float32, len(m.buf))
	copy(frame, m.buf)
	return frame, nil
}

// Stop closes the stream and releases portaudio.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil
	}
	err := errors.Join(m.stream.Stop(), m.stream.Close())
	m.stream = nil
	portaudio.Terminate()
	return err
}

// HaveInputDevice reports whether a default capture device exists.
// portaudio reference-counts Initialize, so probing is safe while a
// stream is open.
func HaveInputDevice() bool {
	if err := portaudio.Initialize(); err != nil {
		return false
	}
	defer portaudio.Terminate()
	dev, err := portaudio.DefaultInputDevice()
	return err == nil && dev != nil
}

// classifyDeviceError maps portaudio failures onto the package's
// sentinel errors so callers can branch on the cause.
func classifyDeviceError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if strings.Contains(msg, "no default") || strings.Contains(msg, "no device") || strings.Contains(msg, "invalid device") {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return err
}
