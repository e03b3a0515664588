// Package bridge coordinates the voice session, persisted settings
// and the downstream consumers of transcripts and errors.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/realtime"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/store"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
)

// ErrVoiceDisabled is returned by Connect while settings disable the
// voice feature.
var ErrVoiceDisabled = errors.New("voice is disabled in settings")

// Session is the lifecycle surface of the realtime controller.
type Session interface {
	Connect(ctx context.Context, settings types.VoiceSettings, td types.TurnDetection) error
	Disconnect()
	SetMuted(muted bool)
	Muted() bool
	State() types.ConnectionState
	Status() types.SessionStatus
	LastAudioChunk() []byte
}

// SettingsStore persists settings and owns chat sessions.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (types.VoiceSettings, error)
	SaveSettings(ctx context.Context, settings types.VoiceSettings) error
	CreateChatSession(ctx context.Context) (string, error)
}

// TranscriptSink receives finalized transcripts.
type TranscriptSink interface {
	Deliver(chatSessionID, transcript string)
}

// Archiver records transcripts for later upload.
type Archiver interface {
	Record(sessionID, transcript string)
	CloseSession(sessionID string)
}

// Notifier reports channel failures to the configured channels.
type Notifier interface {
	ChannelError(err error)
	Reset()
}

// EventSink records structured session events.
type EventSink interface {
	Log(event string, details map[string]any)
}

// VolumeSetter applies playback gain changes immediately.
type VolumeSetter interface {
	SetVolume(v float64)
}

// Options carries the optional downstream consumers. Nil fields are
// skipped.
type Options struct {
	Relay    TranscriptSink
	Archiver Archiver
	Notifier Notifier
	Events   EventSink
	Volume   VolumeSetter
}

// Manager owns the settings lifecycle and the single voice session.
type Manager struct {
	session       Session
	store         SettingsStore
	turnDetection types.TurnDetection
	opts          Options

	mu            sync.Mutex
	settings      types.VoiceSettings
	saved         bool
	chatSessionID string

	transcriptListener func(sessionID, transcript string)
}

// New loads persisted settings and returns a manager. A load failure
// is not fatal: the bridge starts with defaults and logs the cause.
func New(ctx context.Context, session Session, settingsStore SettingsStore, td types.TurnDetection, opts Options) *Manager {
	m := &Manager{
		session:       session,
		store:         settingsStore,
		turnDetection: td,
		opts:          opts,
		settings:      types.DefaultVoiceSettings(),
		saved:         true,
	}
	if settingsStore == nil {
		return m
	}
	settings, err := settingsStore.LoadSettings(ctx)
	switch {
	case errors.Is(err, store.ErrNoSettings):
		slog.Info("no saved voice settings, using defaults")
	case err != nil:
		slog.Warn("loading voice settings failed, using defaults", "error", err)
	default:
		m.settings = settings
	}
	m.applyVolume(m.settings.Volume)
	return m
}

// Connect starts a voice session with the current settings. When a
// session is already active the call is a logged no-op.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	settings := m.settings
	m.mu.Unlock()
	if !settings.Enabled {
		return ErrVoiceDisabled
	}

	err := m.session.Connect(ctx, settings, m.turnDetection)
	if errors.Is(err, realtime.ErrAlreadyConnected) {
		slog.Info("connect ignored, session already active")
		return nil
	}
	if err != nil {
		return err
	}

	// Only a live session gets a chat log, so failed and no-op
	// connects never leave orphan rows behind.
	chatSessionID := ""
	if m.store != nil {
		id, err := m.store.CreateChatSession(ctx)
		if err != nil {
			slog.Warn("creating chat session failed, transcripts will not be relayed", "error", err)
		} else {
			chatSessionID = id
		}
	}

	m.mu.Lock()
	m.chatSessionID = chatSessionID
	m.mu.Unlock()
	if m.opts.Notifier != nil {
		m.opts.Notifier.Reset()
	}
	m.logEvent("session_connected", map[string]any{
		"voice":           string(settings.Voice),
		"chat_session_id": chatSessionID,
	})
	return nil
}

// Disconnect ends the active session. Safe in any state.
func (m *Manager) Disconnect() {
	sessionID := m.session.Status().SessionID
	m.session.Disconnect()
	if m.opts.Archiver != nil && sessionID != "" {
		m.opts.Archiver.CloseSession(sessionID)
	}
	m.mu.Lock()
	m.chatSessionID = ""
	m.mu.Unlock()
	m.logEvent("session_disconnected", nil)
}

// ToggleMute flips the capture gate and returns the new state.
func (m *Manager) ToggleMute() bool {
	muted := !m.session.Muted()
	m.session.SetMuted(muted)
	return muted
}

// SetMuted sets the capture gate directly.
func (m *Manager) SetMuted(muted bool) {
	m.session.SetMuted(muted)
}

// Settings returns the in-memory settings snapshot.
func (m *Manager) Settings() types.VoiceSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// SettingsSaved reports whether the in-memory settings match the
// store.
func (m *Manager) SettingsSaved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

// UpdateSettings replaces the in-memory settings without persisting.
// Volume takes effect immediately; other fields apply to the next
// session.
func (m *Manager) UpdateSettings(settings types.VoiceSettings) {
	m.mu.Lock()
	m.settings = settings
	m.saved = false
	m.mu.Unlock()
	m.applyVolume(settings.Volume)
}

// SaveSettings persists the in-memory settings. On failure the
// in-memory edits are kept so the operator can retry.
func (m *Manager) SaveSettings(ctx context.Context) error {
	m.mu.Lock()
	settings := m.settings
	m.mu.Unlock()
	if m.store == nil {
		return errors.New("no settings store configured")
	}
	if err := m.store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	m.mu.Lock()
	m.saved = true
	m.mu.Unlock()
	slog.Info("voice settings saved", "voice", settings.Voice, "enabled", settings.Enabled)
	return nil
}

// LastAudioChunk exposes the most recent peer audio chunk for the
// monitor endpoint.
func (m *Manager) LastAudioChunk() []byte {
	return m.session.LastAudioChunk()
}

// Status merges the session snapshot with bridge-level fields.
func (m *Manager) Status() types.SessionStatus {
	st := m.session.Status()
	m.mu.Lock()
	st.ChatSessionID = m.chatSessionID
	m.mu.Unlock()
	return st
}

// SetTranscriptListener registers a callback for control surface
// pushes. Pass nil to remove it.
func (m *Manager) SetTranscriptListener(fn func(sessionID, transcript string)) {
	m.mu.Lock()
	m.transcriptListener = fn
	m.mu.Unlock()
}

// HandleTranscript fans one finalized transcript out to the chat
// relay, the archive and any control listener. Wired as the session
// controller's transcript hook.
func (m *Manager) HandleTranscript(transcript string) {
	st := m.session.Status()
	m.mu.Lock()
	chatSessionID := m.chatSessionID
	listener := m.transcriptListener
	m.mu.Unlock()

	if m.opts.Relay != nil {
		m.opts.Relay.Deliver(chatSessionID, transcript)
	}
	if m.opts.Archiver != nil && st.SessionID != "" {
		m.opts.Archiver.Record(st.SessionID, transcript)
	}
	if listener != nil {
		listener(st.SessionID, transcript)
	}
}

// HandleChannelError forwards a channel failure to the notifier.
// Wired as the session controller's error hook.
func (m *Manager) HandleChannelError(err error) {
	if m.opts.Notifier != nil {
		m.opts.Notifier.ChannelError(err)
	}
	m.logEvent("channel_error", map[string]any{"error": err.Error()})
}

// HandleDisconnect records the session end. Wired as the session
// controller's disconnect hook.
func (m *Manager) HandleDisconnect(reason string) {
	m.logEvent("session_closed", map[string]any{"reason": reason})
}

// Shutdown disconnects the session during process exit.
func (m *Manager) Shutdown() {
	if m.session.State() != types.StateDisconnected {
		m.Disconnect()
	}
}

func (m *Manager) applyVolume(v float64) {
	if m.opts.Volume != nil {
		m.opts.Volume.SetVolume(v)
	}
}

func (m *Manager) logEvent(event string, details map[string]any) {
	if m.opts.Events != nil {
		m.opts.Events.Log(event, details)
	}
}
