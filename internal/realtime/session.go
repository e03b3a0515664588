package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/audio"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/metrics"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// ErrAlreadyConnected is returned by Connect when a session is
// already connecting or connected.
var ErrAlreadyConnected = errors.New("voice session already connected")

// sendQueueSize bounds the outbound message queue. Frames are dropped
// rather than stalling capture when the peer cannot keep up.
const sendQueueSize = 64

// Hooks receive session events on controller goroutines. Handlers
// must not block and must not call back into the controller.
type Hooks struct {
	OnTranscript   func(transcript string)
	OnChannelError func(err error)
	OnDisconnect   func(reason string)
}

// Controller owns one voice session at a time: the peer channel, the
// capture loop feeding it and the playback of returned audio.
type Controller struct {
	dialer Dialer
	source audio.Source
	player audio.Player
	hooks  Hooks

	mu             sync.Mutex
	state          types.ConnectionState
	activity       types.Activity
	muted          bool
	sessionID      string
	connectedAt    time.Time
	lastTranscript string
	lastError      string
	framesSent     int64
	framesMuted    int64
	chunksPlayed   int64
	decodeFailures int64
	lastChunk      []byte

	channel  Channel
	send     chan any
	done     chan struct{}
	teardown *sync.Once
	wg       sync.WaitGroup
}

// NewController returns a disconnected controller.
func NewController(dialer Dialer, source audio.Source, player audio.Player, hooks Hooks) *Controller {
	return &Controller{
		dialer:   dialer,
		source:   source,
		player:   player,
		hooks:    hooks,
		state:    types.StateDisconnected,
		activity: types.ActivityIdle,
	}
}

// Connect dials the peer, negotiates the session and starts the
// audio loops. It is a guard: when a session is already connecting or
// connected it returns ErrAlreadyConnected without side effects.
func (c *Controller) Connect(ctx context.Context, settings types.VoiceSettings, td types.TurnDetection) error {
	c.mu.Lock()
	if c.state != types.StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = types.StateConnecting
	c.mu.Unlock()

	// A session torn down by channel failure may still have pump
	// goroutines winding down; they must not observe the new
	// session's channel or queue.
	c.wg.Wait()

	channel, err := c.dialer.Dial(ctx)
	if err != nil {
		c.abortConnect(err)
		return err
	}
	if err := c.source.Start(); err != nil {
		channel.Close()
		c.abortConnect(err)
		return fmt.Errorf("failed to start capture: %w", err)
	}
	if err := c.player.Start(); err != nil {
		c.source.Stop()
		channel.Close()
		c.abortConnect(err)
		return fmt.Errorf("failed to start playback: %w", err)
	}

	send := make(chan any, sendQueueSize)
	done := make(chan struct{})

	c.mu.Lock()
	c.channel = channel
	c.send = send
	c.done = done
	c.teardown = &sync.Once{}
	c.sessionID = uuid.NewString()
	c.connectedAt = time.Now()
	c.state = types.StateConnected
	c.activity = types.ActivityIdle
	c.lastTranscript = ""
	c.lastError = ""
	c.framesSent = 0
	c.framesMuted = 0
	c.chunksPlayed = 0
	c.decodeFailures = 0
	c.mu.Unlock()

	// Session configuration goes out first; the writer goroutine has
	// not started yet, so the queue preserves this ordering.
	send <- newSessionUpdate(settings, td)

	c.wg.Add(3)
	go c.writePump(channel, send, done)
	go c.readPump(channel, done)
	go c.captureLoop(send, done)

	metrics.SessionsStarted.Inc()
	metrics.SessionConnected.Set(1)
	slog.Info("voice session connected", "session_id", c.sessionID, "voice", settings.Voice)
	return nil
}

// abortConnect rolls back a failed connection attempt.
func (c *Controller) abortConnect(err error) {
	c.mu.Lock()
	c.state = types.StateDisconnected
	c.activity = types.ActivityIdle
	c.lastError = err.Error()
	c.mu.Unlock()
	slog.Error("voice session connect failed", "error", err)
}

// Disconnect tears the session down. Safe to call in any state and
// more than once.
func (c *Controller) Disconnect() {
	c.closeSession("disconnect requested")
	c.wg.Wait()
}

// SetMuted toggles the capture gate. Frames read while muted are
// dropped immediately; capture itself keeps running.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
	slog.Info("voice capture mute changed", "muted", muted)
}

// Muted reports the capture gate state.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// State returns the current connection state.
func (c *Controller) State() types.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot of the session for the control surface.
func (c *Controller) Status() types.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := types.SessionStatus{
		Connection:     c.state,
		Activity:       c.activity,
		Muted:          c.muted,
		SessionID:      c.sessionID,
		LastTranscript: c.lastTranscript,
		LastError:      c.lastError,
		FramesSent:     c.framesSent,
		FramesMuted:    c.framesMuted,
		ChunksPlayed:   c.chunksPlayed,
		DecodeFailures: c.decodeFailures,
	}
	if c.state == types.StateConnected {
		st.Uptime = util.FormatDuration(time.Since(c.connectedAt))
	}
	return st
}

// LastAudioChunk returns a copy of the most recently played peer
// audio chunk, or nil when none has arrived.
func (c *Controller) LastAudioChunk() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lastChunk) == 0 {
		return nil
	}
	out := make([]byte, len(c.lastChunk))
	copy(out, c.lastChunk)
	return out
}

// writePump is the single writer for the peer channel. The channel
// and queue are parameters so a pump winding down after teardown can
// never touch a successor session's state.
func (c *Controller) writePump(channel Channel, send <-chan any, done <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-done:
			return
		case msg := <-send:
			if err := channel.WriteJSON(msg); err != nil {
				c.fail(fmt.Errorf("channel write failed: %w", err))
				return
			}
		}
	}
}

// readPump decodes and dispatches peer events in arrival order.
func (c *Controller) readPump(channel Channel, done <-chan struct{}) {
	defer c.wg.Done()
	for {
		data, err := channel.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				c.fail(fmt.Errorf("channel read failed: %w", err))
			}
			return
		}
		c.handleEvent(data)
	}
}

// captureLoop forwards microphone frames to the peer.
func (c *Controller) captureLoop(send chan<- any, done <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-done:
			return
		default:
		}
		frame, err := c.source.Read()
		if err != nil {
			select {
			case <-done:
			default:
				c.fail(fmt.Errorf("audio capture failed: %w", err))
			}
			return
		}
		pcm := audio.EncodeFrame(frame)

		c.mu.Lock()
		muted := c.muted
		c.mu.Unlock()
		if muted {
			c.mu.Lock()
			c.framesMuted++
			c.mu.Unlock()
			metrics.FramesMuted.Inc()
			continue
		}

		msg := AudioAppendEvent{Type: EventAudioAppend, Audio: audio.ToWireFormat(pcm)}
		select {
		case send <- msg:
			c.mu.Lock()
			c.framesSent++
			c.mu.Unlock()
			metrics.FramesSent.Inc()
		case <-done:
			return
		default:
			slog.Warn("outbound queue full, dropping frame")
		}
	}
}

// handleEvent processes one peer message. Malformed messages and
// undecodable audio chunks are dropped without ending the session.
func (c *Controller) handleEvent(data []byte) {
	var ev InboundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		slog.Warn("unparseable peer event dropped", "error", err)
		return
	}
	switch ev.Type {
	case EventAudioDelta:
		pcm, err := audio.FromWireFormat(ev.Delta)
		if err != nil {
			c.mu.Lock()
			c.decodeFailures++
			c.mu.Unlock()
			metrics.DecodeFailures.Inc()
			slog.Warn("undecodable audio chunk dropped", "error", err)
			return
		}
		c.setActivity(types.ActivitySpeaking)
		if err := c.player.Play(pcm); err != nil {
			slog.Warn("playback of chunk failed", "error", err)
			return
		}
		c.mu.Lock()
		c.chunksPlayed++
		c.lastChunk = pcm
		c.mu.Unlock()
		metrics.ChunksPlayed.Inc()

	case EventAudioDone:
		c.settleActivity(types.ActivitySpeaking)

	case EventSpeechStarted:
		c.setActivity(types.ActivityListening)

	case EventSpeechStopped:
		c.settleActivity(types.ActivityListening)

	case EventTranscriptCompleted:
		c.mu.Lock()
		c.lastTranscript = ev.Transcript
		c.mu.Unlock()
		if c.hooks.OnTranscript != nil && ev.Transcript != "" {
			c.hooks.OnTranscript(ev.Transcript)
		}

	case EventError:
		msg := "peer reported an error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		slog.Error("peer error event", "message", msg)
		c.fail(errors.New(msg))

	default:
		slog.Debug("unhandled peer event", "type", ev.Type)
	}
}

// setActivity moves to the given activity.
func (c *Controller) setActivity(a types.Activity) {
	c.mu.Lock()
	c.activity = a
	c.mu.Unlock()
}

// settleActivity returns to idle only when still in the given
// activity, so a newer transition is not clobbered.
func (c *Controller) settleActivity(from types.Activity) {
	c.mu.Lock()
	if c.activity == from {
		c.activity = types.ActivityIdle
	}
	c.mu.Unlock()
}

// fail records a fatal channel error and tears the session down.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.lastError = util.TruncateError(err.Error())
	c.mu.Unlock()
	metrics.ChannelErrors.Inc()
	if c.hooks.OnChannelError != nil {
		c.hooks.OnChannelError(err)
	}
	c.closeSession(err.Error())
}

// closeSession performs the single teardown path shared by operator
// disconnects, channel failures and shutdown.
func (c *Controller) closeSession(reason string) {
	c.mu.Lock()
	once := c.teardown
	channel := c.channel
	done := c.done
	c.mu.Unlock()
	if once == nil {
		return
	}
	once.Do(func() {
		close(done)
		channel.Close()
		if err := c.source.Stop(); err != nil {
			slog.Warn("capture stop failed", "error", err)
		}
		if err := c.player.Stop(); err != nil {
			slog.Warn("playback stop failed", "error", err)
		}
		c.mu.Lock()
		c.state = types.StateDisconnected
		c.activity = types.ActivityIdle
		c.teardown = nil
		c.mu.Unlock()
		metrics.SessionConnected.Set(0)
		slog.Info("voice session closed", "session_id", c.sessionID, "reason", reason)
		if c.hooks.OnDisconnect != nil {
			c.hooks.OnDisconnect(reason)
		}
	})
}
