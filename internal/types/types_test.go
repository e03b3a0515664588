package types

import (
	"encoding/json"
	"testing"
)

func TestIsValidVoice(t *testing.T) {
	for _, v := range VoiceIDs {
		if !IsValidVoice(v) {
			t.Errorf("voice %q must be valid", v)
		}
	}
	if IsValidVoice("robotic") {
		t.Error("unknown voice must be invalid")
	}
	if IsValidVoice("") {
		t.Error("empty voice must be invalid")
	}
}

func TestDefaultVoiceSettings(t *testing.T) {
	s := DefaultVoiceSettings()
	if !s.Enabled || s.Voice != VoiceAlloy || !s.AutoTranscription {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.Volume != 1.0 {
		t.Errorf("default volume = %v, want 1.0", s.Volume)
	}
	if !s.NoiseSuppression || !s.EchoCancellation {
		t.Error("audio constraints default on")
	}
}

func TestVoiceSettingsJSONShape(t *testing.T) {
	data, err := json.Marshal(DefaultVoiceSettings())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["voice_model"]; !ok {
		t.Error("voice field must serialize as voice_model")
	}
}

func TestDefaultTurnDetection(t *testing.T) {
	td := DefaultTurnDetection()
	if td.Type != "server_vad" {
		t.Errorf("type = %q", td.Type)
	}
	if td.Threshold != 0.5 || td.PrefixPaddingMs != 300 || td.SilenceDurationMs != 500 {
		t.Errorf("unexpected defaults: %+v", td)
	}
}

func TestValidationErrorAccumulates(t *testing.T) {
	verr := NewValidationError()
	verr.Add("volume", "must be less than or equal to 1", 1.5)
	verr.Add("voice_model", "must be one of: alloy echo", "bogus")
	if len(verr.Errors) != 2 {
		t.Fatalf("got %d errors", len(verr.Errors))
	}
	if verr.Errors[0].Field != "volume" {
		t.Errorf("field = %q", verr.Errors[0].Field)
	}
}
