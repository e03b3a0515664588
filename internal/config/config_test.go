package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"peer": {"url": "wss://voice.example.com/realtime"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := cfg.Snapshot()
	if s.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", s.Server.Port)
	}
	if s.TurnDetection.Type != "server_vad" {
		t.Errorf("turn detection type = %q", s.TurnDetection.Type)
	}
	if s.Archive.RetentionDays != 30 {
		t.Errorf("retention = %d, want 30", s.Archive.RetentionDays)
	}
}

func TestLoadRejectsMissingPeerURL(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 9000}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing peer url")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeConfig(t, `{"peer": {"url": "wss://x"}, "server": {"port": 70000}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	path := writeConfig(t, `{"peer": {"url": "wss://x"}, "turn_detection": {"type": "server_vad", "threshold": 3}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range threshold")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
