// Package realtime implements the duplex voice channel to the
// conversational peer and the session controller driving it.
package realtime

import "github.com/Morfar22/nexus-rp-portal-sub002/internal/types"

// Outbound event types.
const (
	EventSessionUpdate = "session.update"
	EventAudioAppend   = "input_audio_buffer.append"
)

// Inbound event types.
const (
	EventAudioDelta          = "response.audio.delta"
	EventAudioDone           = "response.audio.done"
	EventTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	EventSpeechStarted       = "input_audio_buffer.speech_started"
	EventSpeechStopped       = "input_audio_buffer.speech_stopped"
	EventError               = "error"
)

const (
	transcriptionModel      = "whisper-1"
	sessionModalityText     = "text"
	sessionModalityAudio    = "audio"
	sessionAudioFormatPCM16 = "pcm16"
)

// SessionUpdateEvent configures the peer session after connecting.
type SessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// SessionConfig carries the negotiated session parameters.
type SessionConfig struct {
	Modalities              []string             `json:"modalities"`
	Voice                   string               `json:"voice"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetectionConfig `json:"turn_detection"`
}

// TranscriptionConfig enables server-side transcription of captured
// speech. Omitted entirely when auto transcription is off.
type TranscriptionConfig struct {
	Model string `json:"model"`
}

// TurnDetectionConfig carries voice-activity-detection tuning.
type TurnDetectionConfig struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// AudioAppendEvent carries one captured frame as base64 PCM16.
type AudioAppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// InboundEvent is the superset decode target for peer messages. Only
// the fields matching the Type are populated.
type InboundEvent struct {
	Type       string      `json:"type"`
	Delta      string      `json:"delta,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	Error      *EventFault `json:"error,omitempty"`
}

// EventFault describes a peer-reported protocol error.
type EventFault struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// newSessionUpdate builds the configuration event sent once after the
// channel opens.
func newSessionUpdate(settings types.VoiceSettings, td types.TurnDetection) SessionUpdateEvent {
	cfg := SessionConfig{
		Modalities:        []string{sessionModalityText, sessionModalityAudio},
		Voice:             string(settings.Voice),
		InputAudioFormat:  sessionAudioFormatPCM16,
		OutputAudioFormat: sessionAudioFormatPCM16,
		TurnDetection: &TurnDetectionConfig{
			Type:              td.Type,
			Threshold:         td.Threshold,
			PrefixPaddingMs:   td.PrefixPaddingMs,
			SilenceDurationMs: td.SilenceDurationMs,
		},
	}
	if settings.AutoTranscription {
		cfg.InputAudioTranscription = &TranscriptionConfig{Model: transcriptionModel}
	}
	return SessionUpdateEvent{Type: EventSessionUpdate, Session: cfg}
}
