package server

// Request types for WebSocket commands with validation tags.
// Pointer fields distinguish "not provided" from zero values so
// clients can send partial updates.

// SettingsUpdateRequest is the request body for settings/update.
type SettingsUpdateRequest struct {
	Enabled           *bool    `json:"enabled"`
	Voice             *string  `json:"voice_model" validate:"omitempty,oneof=alloy echo shimmer ash coral sage"`
	AutoTranscription *bool    `json:"auto_transcription"`
	NoiseSuppression  *bool    `json:"noise_suppression"`
	EchoCancellation  *bool    `json:"echo_cancellation"`
	Volume            *float64 `json:"volume" validate:"omitempty,gte=0,lte=1"`
}

// MuteRequest is the request body for voice/mute. Omitting muted
// toggles the current state.
type MuteRequest struct {
	Muted *bool `json:"muted"`
}
