package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/audio"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
)

type fakeChannel struct {
	mu        sync.Mutex
	written   []any
	inbound   chan []byte
	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{inbound: make(chan []byte, 16)}
}

func (f *fakeChannel) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, v)
	return nil
}

func (f *fakeChannel) ReadMessage() ([]byte, error) {
	data, ok := <-f.inbound
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

func (f *fakeChannel) Close() error {
	f.closeOnce.Do(func() { close(f.inbound) })
	return nil
}

func (f *fakeChannel) writtenMessages() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.written))
	copy(out, f.written)
	return out
}

type fakeDialer struct {
	mu       sync.Mutex
	channel  *fakeChannel // handed out on the first successful dial
	err      error
	dials    int
	channels []*fakeChannel
}

func (d *fakeDialer) Dial(ctx context.Context) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	ch := d.channel
	if len(d.channels) > 0 || ch == nil {
		ch = newFakeChannel()
	}
	d.channels = append(d.channels, ch)
	return ch, nil
}

func (d *fakeDialer) channelAt(i int) *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels[i]
}

type fakeSource struct {
	mu     sync.Mutex
	frames chan []float32
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan []float32, 16)}
}

func (s *fakeSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames == nil {
		s.frames = make(chan []float32, 16)
	}
	return nil
}

func (s *fakeSource) Read() ([]float32, error) {
	s.mu.Lock()
	ch := s.frames
	s.mu.Unlock()
	if ch == nil {
		return nil, errors.New("source stopped")
	}
	frame, ok := <-ch
	if !ok {
		return nil, errors.New("source stopped")
	}
	return frame, nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames != nil {
		close(s.frames)
		s.frames = nil
	}
	return nil
}

type fakePlayer struct {
	mu      sync.Mutex
	played  [][]byte
	failAll bool
}

func (p *fakePlayer) Start() error { return nil }

func (p *fakePlayer) Play(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errors.New("device gone")
	}
	p.played = append(p.played, pcm)
	return nil
}

func (p *fakePlayer) Stop() error { return nil }

func (p *fakePlayer) chunkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type testRig struct {
	controller *Controller
	channel    *fakeChannel
	dialer     *fakeDialer
	source     *fakeSource
	player     *fakePlayer
}

func newTestRig(hooks Hooks) *testRig {
	ch := newFakeChannel()
	rig := &testRig{
		channel: ch,
		dialer:  &fakeDialer{channel: ch},
		source:  newFakeSource(),
		player:  &fakePlayer{},
	}
	rig.controller = NewController(rig.dialer, rig.source, rig.player, hooks)
	return rig
}

func (r *testRig) connect(t *testing.T, settings types.VoiceSettings) {
	t.Helper()
	if err := r.controller.Connect(context.Background(), settings, types.DefaultTurnDetection()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
}

func (r *testRig) push(t *testing.T, event any) {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	r.channel.inbound <- data
}

func TestConnectSendsSessionUpdateFirst(t *testing.T) {
	rig := newTestRig(Hooks{})
	settings := types.DefaultVoiceSettings()
	settings.Voice = types.VoiceCoral
	rig.connect(t, settings)
	defer rig.controller.Disconnect()

	waitFor(t, "session.update write", func() bool {
		return len(rig.channel.writtenMessages()) >= 1
	})
	first, ok := rig.channel.writtenMessages()[0].(SessionUpdateEvent)
	if !ok {
		t.Fatalf("first message is %T, want SessionUpdateEvent", rig.channel.writtenMessages()[0])
	}
	if first.Type != EventSessionUpdate {
		t.Errorf("type = %q, want %q", first.Type, EventSessionUpdate)
	}
	if first.Session.Voice != string(types.VoiceCoral) {
		t.Errorf("voice = %q, want coral", first.Session.Voice)
	}
	if first.Session.InputAudioFormat != "pcm16" || first.Session.OutputAudioFormat != "pcm16" {
		t.Error("audio formats must both be pcm16")
	}
	if first.Session.InputAudioTranscription == nil {
		t.Error("transcription block missing with auto transcription on")
	}
	if td := first.Session.TurnDetection; td == nil || td.Type != "server_vad" {
		t.Error("turn detection must be server_vad")
	}
}

func TestSessionUpdateOmitsTranscriptionWhenDisabled(t *testing.T) {
	rig := newTestRig(Hooks{})
	settings := types.DefaultVoiceSettings()
	settings.AutoTranscription = false
	rig.connect(t, settings)
	defer rig.controller.Disconnect()

	waitFor(t, "session.update write", func() bool {
		return len(rig.channel.writtenMessages()) >= 1
	})
	first := rig.channel.writtenMessages()[0].(SessionUpdateEvent)
	if first.Session.InputAudioTranscription != nil {
		t.Error("transcription block must be omitted when auto transcription is off")
	}
	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	session := raw["session"].(map[string]any)
	if _, present := session["input_audio_transcription"]; present {
		t.Error("input_audio_transcription key must be absent from the wire")
	}
}

func TestConnectGuardedWhileConnected(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	err := rig.controller.Connect(context.Background(), types.DefaultVoiceSettings(), types.DefaultTurnDetection())
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("second connect returned %v, want ErrAlreadyConnected", err)
	}
	if rig.dialer.dials != 1 {
		t.Errorf("dial count %d, want 1 (guard must not redial)", rig.dialer.dials)
	}
}

func TestConnectFailureRollsBack(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.dialer.err = errors.New("refused")

	err := rig.controller.Connect(context.Background(), types.DefaultVoiceSettings(), types.DefaultTurnDetection())
	if err == nil {
		t.Fatal("expected connect error")
	}
	if got := rig.controller.State(); got != types.StateDisconnected {
		t.Errorf("state = %q, want disconnected", got)
	}
	if st := rig.controller.Status(); st.LastError == "" {
		t.Error("last error must record the failure")
	}

	// A later connect against a reachable peer succeeds.
	rig.dialer.err = nil
	rig.connect(t, types.DefaultVoiceSettings())
	rig.controller.Disconnect()
}

func TestMuteDropsFramesButKeepsCapture(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	frame := make([]float32, 4)
	rig.source.frames <- frame
	waitFor(t, "first frame sent", func() bool {
		return rig.controller.Status().FramesSent == 1
	})

	rig.controller.SetMuted(true)
	rig.source.frames <- frame
	rig.source.frames <- frame
	waitFor(t, "muted frames dropped", func() bool {
		return rig.controller.Status().FramesMuted == 2
	})
	if got := rig.controller.Status().FramesSent; got != 1 {
		t.Errorf("frames sent = %d, want 1 (muted frames must not reach the peer)", got)
	}

	rig.controller.SetMuted(false)
	rig.source.frames <- frame
	waitFor(t, "unmuted frame sent", func() bool {
		return rig.controller.Status().FramesSent == 2
	})
}

func TestAudioDeltaPlayedAndCounted(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	pcm := audio.EncodeFrame([]float32{0.5, -0.5})
	rig.push(t, InboundEvent{Type: EventAudioDelta, Delta: audio.ToWireFormat(pcm)})

	waitFor(t, "chunk played", func() bool {
		return rig.player.chunkCount() == 1
	})
	if got := rig.controller.Status().Activity; got != types.ActivitySpeaking {
		t.Errorf("activity = %q, want speaking", got)
	}

	rig.push(t, InboundEvent{Type: EventAudioDone})
	waitFor(t, "activity idle after done", func() bool {
		return rig.controller.Status().Activity == types.ActivityIdle
	})
}

func TestUndecodableChunkDoesNotEndSession(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	rig.push(t, InboundEvent{Type: EventAudioDelta, Delta: "!!!not-base64!!!"})
	waitFor(t, "decode failure counted", func() bool {
		return rig.controller.Status().DecodeFailures == 1
	})
	if got := rig.controller.State(); got != types.StateConnected {
		t.Fatalf("state = %q, want connected (bad chunk must be isolated)", got)
	}

	pcm := audio.EncodeFrame([]float32{0.25})
	rig.push(t, InboundEvent{Type: EventAudioDelta, Delta: audio.ToWireFormat(pcm)})
	waitFor(t, "later chunk played", func() bool {
		return rig.player.chunkCount() == 1
	})
}

func TestSpeechActivityTransitions(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	rig.push(t, InboundEvent{Type: EventSpeechStarted})
	waitFor(t, "listening", func() bool {
		return rig.controller.Status().Activity == types.ActivityListening
	})
	rig.push(t, InboundEvent{Type: EventSpeechStopped})
	waitFor(t, "idle", func() bool {
		return rig.controller.Status().Activity == types.ActivityIdle
	})
}

func TestTranscriptFiresHook(t *testing.T) {
	var mu sync.Mutex
	var got []string
	rig := newTestRig(Hooks{
		OnTranscript: func(text string) {
			mu.Lock()
			got = append(got, text)
			mu.Unlock()
		},
	})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	rig.push(t, InboundEvent{Type: EventTranscriptCompleted, Transcript: "hello there"})
	waitFor(t, "transcript hook", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "hello there"
	})
	if st := rig.controller.Status(); st.LastTranscript != "hello there" {
		t.Errorf("last transcript = %q", st.LastTranscript)
	}
}

func TestPeerErrorEventEndsSession(t *testing.T) {
	var mu sync.Mutex
	var reported []error
	rig := newTestRig(Hooks{
		OnChannelError: func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		},
	})
	rig.connect(t, types.DefaultVoiceSettings())

	rig.push(t, InboundEvent{Type: EventError, Error: &EventFault{Message: "rate limited"}})
	waitFor(t, "teardown after peer error", func() bool {
		return rig.controller.State() == types.StateDisconnected
	})

	mu.Lock()
	if len(reported) != 1 {
		t.Errorf("channel error hook fired %d times, want 1", len(reported))
	}
	mu.Unlock()
	if st := rig.controller.Status(); st.LastError != "rate limited" {
		t.Errorf("last error = %q, want rate limited", st.LastError)
	}
	// No reconnect on its own.
	rig.controller.Disconnect()
	if got := rig.dialer.dials; got != 1 {
		t.Errorf("dial count %d, want 1 (no automatic reconnect)", got)
	}
}

func TestChannelFailureTearsDownOnce(t *testing.T) {
	var mu sync.Mutex
	var reasons []string
	rig := newTestRig(Hooks{
		OnDisconnect: func(reason string) {
			mu.Lock()
			reasons = append(reasons, reason)
			mu.Unlock()
		},
	})
	rig.connect(t, types.DefaultVoiceSettings())

	// Breaking the transport must end the session without operator
	// involvement.
	rig.channel.Close()
	waitFor(t, "teardown after channel failure", func() bool {
		return rig.controller.State() == types.StateDisconnected
	})

	// Operator disconnect afterwards is a no-op.
	rig.controller.Disconnect()
	rig.controller.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	if len(reasons) != 1 {
		t.Errorf("disconnect hook fired %d times, want 1", len(reasons))
	}
	if got := rig.controller.Status().Activity; got != types.ActivityIdle {
		t.Errorf("activity = %q, want idle after teardown", got)
	}
}

func TestReconnectAfterChannelFailure(t *testing.T) {
	rig := newTestRig(Hooks{})
	settings := types.DefaultVoiceSettings()

	for i := 0; i < 5; i++ {
		rig.connect(t, settings)
		ch := rig.dialer.channelAt(i)
		waitFor(t, "session.update write", func() bool {
			return len(ch.writtenMessages()) >= 1
		})

		// Break the transport and wait for teardown.
		ch.Close()
		waitFor(t, "teardown after channel failure", func() bool {
			return rig.controller.State() == types.StateDisconnected
		})
	}

	// Every session's configuration went out first on its own
	// channel; a winding-down writer must never consume a
	// successor's queue.
	for i := 0; i < 5; i++ {
		msgs := rig.dialer.channelAt(i).writtenMessages()
		if len(msgs) == 0 {
			t.Fatalf("session %d wrote nothing", i)
		}
		if _, ok := msgs[0].(SessionUpdateEvent); !ok {
			t.Errorf("session %d first message is %T, want SessionUpdateEvent", i, msgs[0])
		}
	}
}

func TestScriptedConversationTurn(t *testing.T) {
	var mu sync.Mutex
	var transcripts []string
	rig := newTestRig(Hooks{
		OnTranscript: func(text string) {
			mu.Lock()
			transcripts = append(transcripts, text)
			mu.Unlock()
		},
	})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	if got := rig.controller.Status().Activity; got != types.ActivityIdle {
		t.Fatalf("activity = %q, want idle before the turn", got)
	}

	// One full conversational turn: the operator speaks, the peer
	// transcribes it and answers with two audio deltas.
	rig.push(t, InboundEvent{Type: EventSpeechStarted})
	waitFor(t, "listening", func() bool {
		return rig.controller.Status().Activity == types.ActivityListening
	})
	rig.push(t, InboundEvent{Type: EventSpeechStopped})
	waitFor(t, "idle after utterance", func() bool {
		return rig.controller.Status().Activity == types.ActivityIdle
	})

	rig.push(t, InboundEvent{Type: EventTranscriptCompleted, Transcript: "hello"})
	waitFor(t, "transcript relayed", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transcripts) == 1
	})

	pcm := audio.EncodeFrame([]float32{0.5, -0.5})
	rig.push(t, InboundEvent{Type: EventAudioDelta, Delta: audio.ToWireFormat(pcm)})
	rig.push(t, InboundEvent{Type: EventAudioDelta, Delta: audio.ToWireFormat(pcm)})
	waitFor(t, "speaking", func() bool {
		return rig.controller.Status().Activity == types.ActivitySpeaking
	})
	rig.push(t, InboundEvent{Type: EventAudioDone})
	waitFor(t, "idle after response", func() bool {
		return rig.controller.Status().Activity == types.ActivityIdle
	})

	mu.Lock()
	if len(transcripts) != 1 || transcripts[0] != "hello" {
		t.Errorf("transcripts = %q, want exactly one %q", transcripts, "hello")
	}
	mu.Unlock()
	if got := rig.player.chunkCount(); got != 2 {
		t.Errorf("chunks played = %d, want 2", got)
	}
	if st := rig.controller.Status(); st.ChunksPlayed != 2 || st.LastTranscript != "hello" {
		t.Errorf("status = %+v, want 2 chunks and transcript recorded", st)
	}
	if got := rig.controller.State(); got != types.StateConnected {
		t.Errorf("state = %q, want connected after the turn", got)
	}
}

func TestDisconnectResetsActivity(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.connect(t, types.DefaultVoiceSettings())

	rig.push(t, InboundEvent{Type: EventSpeechStarted})
	waitFor(t, "listening", func() bool {
		return rig.controller.Status().Activity == types.ActivityListening
	})

	rig.controller.Disconnect()
	st := rig.controller.Status()
	if st.Connection != types.StateDisconnected || st.Activity != types.ActivityIdle {
		t.Errorf("after disconnect got %q/%q, want disconnected/idle", st.Connection, st.Activity)
	}
}

func TestPlaybackFailureIsolatedPerChunk(t *testing.T) {
	rig := newTestRig(Hooks{})
	rig.connect(t, types.DefaultVoiceSettings())
	defer rig.controller.Disconnect()

	rig.player.mu.Lock()
	rig.player.failAll = true
	rig.player.mu.Unlock()

	pcm := audio.EncodeFrame([]float32{0.1})
	rig.push(t, InboundEvent{Type: EventAudioDelta, Delta: audio.ToWireFormat(pcm)})
	rig.push(t, InboundEvent{Type: EventSpeechStarted})
	waitFor(t, "session still processing events", func() bool {
		return rig.controller.Status().Activity == types.ActivityListening
	})
	if got := rig.controller.State(); got != types.StateConnected {
		t.Errorf("state = %q, want connected after playback failure", got)
	}
}
