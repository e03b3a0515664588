// Package types provides shared type definitions used across the voice bridge.
package types

import (
	"time"
)

// ConnectionState represents the lifecycle of the duplex voice channel.
type ConnectionState string

const (
	// StateDisconnected indicates no channel is open.
	StateDisconnected ConnectionState = "disconnected"
	// StateConnecting indicates the channel is being established.
	StateConnecting ConnectionState = "connecting"
	// StateConnected indicates the channel is open and configured.
	StateConnected ConnectionState = "connected"
)

// Activity represents the conversational-turn indicator within a connected
// session. Listening and Speaking are mutually exclusive and both imply
// StateConnected.
type Activity string

const (
	// ActivityIdle indicates no speech in either direction.
	ActivityIdle Activity = "idle"
	// ActivityListening indicates the remote peer detected user speech.
	ActivityListening Activity = "listening"
	// ActivitySpeaking indicates the remote peer is sending response audio.
	ActivitySpeaking Activity = "speaking"
)

// Audio format constants for the duplex channel. The remote peer speaks
// 24 kHz mono PCM16 in both directions.
const (
	// SampleRate is the audio sample rate in Hz.
	SampleRate = 24000
	// Channels is the number of audio channels (mono).
	Channels = 1
	// BitsPerSample is the sample width.
	BitsPerSample = 16
	// FramesPerBuffer is the capture buffer size in samples (~20ms at 24kHz).
	FramesPerBuffer = 480
)

// VoiceID identifies one of the fixed synthetic voices offered by the
// remote peer. Opaque to the bridge; passed through in session configuration.
type VoiceID string

// Supported synthetic voices.
const (
	VoiceAlloy   VoiceID = "alloy"
	VoiceEcho    VoiceID = "echo"
	VoiceShimmer VoiceID = "shimmer"
	VoiceAsh     VoiceID = "ash"
	VoiceCoral   VoiceID = "coral"
	VoiceSage    VoiceID = "sage"
)

// VoiceIDs lists every supported voice in presentation order.
var VoiceIDs = []VoiceID{VoiceAlloy, VoiceEcho, VoiceShimmer, VoiceAsh, VoiceCoral, VoiceSage}

// IsValidVoice reports whether v is one of the supported voices.
func IsValidVoice(v VoiceID) bool {
	for _, known := range VoiceIDs {
		if v == known {
			return true
		}
	}
	return false
}

// VoiceSettings holds the persisted voice configuration. It is owned by the
// bridge manager and mutated only through explicit save.
type VoiceSettings struct {
	Enabled           bool    `json:"enabled"`            // Master switch
	Voice             VoiceID `json:"voice_model"`        // Synthetic voice identifier
	AutoTranscription bool    `json:"auto_transcription"` // Transcribe inbound speech
	NoiseSuppression  bool    `json:"noise_suppression"`  // Requested microphone constraint
	EchoCancellation  bool    `json:"echo_cancellation"`  // Requested microphone constraint
	Volume            float64 `json:"volume"`             // Output gain multiplier [0,1]
}

// DefaultVoiceSettings returns the settings used when nothing is persisted.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Enabled:           true,
		Voice:             VoiceAlloy,
		AutoTranscription: true,
		NoiseSuppression:  true,
		EchoCancellation:  true,
		Volume:            1.0,
	}
}

// TurnDetection holds server-side voice activity detection parameters sent
// in the session configuration message.
type TurnDetection struct {
	Type              string  `json:"type"`                // Detection mode, always "server_vad"
	Threshold         float64 `json:"threshold"`           // Speech onset sensitivity
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`   // Audio retained before detected onset
	SilenceDurationMs int     `json:"silence_duration_ms"` // Trailing silence to conclude an utterance
}

// DefaultTurnDetection returns the turn detection parameters used unless
// overridden in configuration.
func DefaultTurnDetection() TurnDetection {
	return TurnDetection{
		Type:              "server_vad",
		Threshold:         0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 500,
	}
}

// SessionStatus contains a summary of the active voice session.
type SessionStatus struct {
	Connection     ConnectionState `json:"connection"`               // Channel lifecycle state
	Activity       Activity        `json:"activity"`                 // Conversational turn indicator
	Muted          bool            `json:"muted"`                    // Captured audio is discarded before send
	SessionID      string          `json:"session_id,omitzero"`      // Correlation ID for the active session
	ChatSessionID  string          `json:"chat_session_id,omitzero"` // Chat session receiving transcripts
	LastTranscript string          `json:"last_transcript,omitzero"` // Most recent finalized transcription
	LastError      string          `json:"last_error,omitzero"`      // Most recent channel error
	Uptime         string          `json:"uptime,omitzero"`          // Time since the channel connected
	FramesSent     int64           `json:"frames_sent"`              // Audio frames transmitted
	FramesMuted    int64           `json:"frames_muted"`             // Audio frames discarded while muted
	ChunksPlayed   int64           `json:"chunks_played"`            // Response audio chunks scheduled
	DecodeFailures int64           `json:"decode_failures,omitzero"` // Malformed chunks dropped
}

const (
	// DialTimeout is the maximum duration for establishing the duplex channel.
	DialTimeout = 10000 * time.Millisecond
	// WriteTimeout is the per-message write deadline on the channel.
	WriteTimeout = 5000 * time.Millisecond
	// ShutdownTimeout is the duration to wait for graceful shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
)

// WSStatusResponse is sent to control clients with full bridge status.
type WSStatusResponse struct {
	Type          string        `json:"type"`           // Message type identifier
	AudioDevice   bool          `json:"audio_device"`   // A capture device is available
	Session       SessionStatus `json:"session"`        // Active session status
	Settings      VoiceSettings `json:"settings"`       // Current in-memory settings
	SettingsSaved bool          `json:"settings_saved"` // In-memory settings match the store
	Voices        []VoiceID     `json:"voices"`         // Supported voice identifiers
	Version       VersionInfo   `json:"version"`        // Version information
}

// WSTranscriptResponse is pushed to control clients when a transcription
// completes.
type WSTranscriptResponse struct {
	Type       string `json:"type"`       // Message type identifier
	SessionID  string `json:"session_id"` // Voice session correlation ID
	Transcript string `json:"transcript"` // Finalized transcription text
	Timestamp  string `json:"timestamp"`  // RFC3339 UTC timestamp
}

// ChatMessage is one entry in a chat session's log.
type ChatMessage struct {
	Sender    string    `json:"sender"`     // Message author
	Content   string    `json:"content"`    // Message text, tagged for voice origin
	CreatedAt time.Time `json:"created_at"` // Persistence timestamp
}

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}

// GraphConfig contains Microsoft Graph API settings for email notifications.
type GraphConfig struct {
	TenantID     string `json:"tenant_id,omitempty"`     // Azure AD tenant ID
	ClientID     string `json:"client_id,omitempty"`     // App registration client ID
	ClientSecret string `json:"client_secret,omitempty"` // App registration client secret
	FromAddress  string `json:"from_address,omitempty"`  // Shared mailbox address (sender)
	Recipients   string `json:"recipients,omitempty"`    // Comma-separated recipients
}
