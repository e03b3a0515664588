// Package config loads the bridge configuration from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/archive"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// ServerConfig controls the control surface listener.
type ServerConfig struct {
	Port     int    `json:"port"`     // HTTP listen port
	Username string `json:"username"` // Basic auth user for the control surface
	Password string `json:"password"` // Basic auth password
}

// PeerConfig identifies the remote voice service.
type PeerConfig struct {
	URL    string `json:"url"`     // WebSocket endpoint of the voice peer
	APIKey string `json:"api_key"` // Bearer token for the peer
}

// DatabaseConfig holds the Postgres connection string. Empty disables
// persistence: settings stay in memory and transcripts are not
// relayed.
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// NotifyConfig lists the notification channels. Empty values disable
// the channel.
type NotifyConfig struct {
	WebhookURL string            `json:"webhook_url"`
	LogPath    string            `json:"log_path"`
	Graph      types.GraphConfig `json:"graph"`
}

// Settings is the full configuration file shape.
type Settings struct {
	Server        ServerConfig        `json:"server"`
	Peer          PeerConfig          `json:"peer"`
	Database      DatabaseConfig      `json:"database"`
	TurnDetection types.TurnDetection `json:"turn_detection"`
	Notify        NotifyConfig        `json:"notify"`
	Archive       archive.Config      `json:"archive"`
	EventLogPath  string              `json:"event_log_path"`
}

// Config is a concurrency-safe view over the loaded settings.
type Config struct {
	mu       sync.RWMutex
	settings Settings
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, util.WrapError("read config file", err)
	}
	settings := defaults()
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, util.WrapError("parse config file", err)
	}
	if err := validate(settings); err != nil {
		return nil, err
	}
	return &Config{settings: settings}, nil
}

func defaults() Settings {
	return Settings{
		Server:        ServerConfig{Port: 8080},
		TurnDetection: types.DefaultTurnDetection(),
		Archive:       archive.Config{Dir: "transcripts", RetentionDays: 30},
	}
}

func validate(s Settings) error {
	if !util.IsConfigured(s.Peer.URL) {
		return errors.New("peer.url is required")
	}
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", s.Server.Port)
	}
	if s.TurnDetection.Threshold < 0 || s.TurnDetection.Threshold > 1 {
		return fmt.Errorf("turn_detection.threshold %v out of range", s.TurnDetection.Threshold)
	}
	return nil
}

// Snapshot returns a copy of the settings.
func (c *Config) Snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}
