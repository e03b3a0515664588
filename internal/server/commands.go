package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/bridge"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
)

// saveTimeout bounds the settings persistence call.
const saveTimeout = 10 * time.Second

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands against the bridge.
type CommandHandler struct {
	bridge *bridge.Manager
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(b *bridge.Manager) *CommandHandler {
	return &CommandHandler{bridge: b}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "voice/connect")
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 2)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch namespace {
	case "voice":
		h.handleVoice(action, cmd, send)
	case "settings":
		h.handleSettings(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// handleVoice routes voice/* commands
func (h *CommandHandler) handleVoice(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "connect":
		// Dialing the peer can take seconds; never block the command
		// loop on it.
		HandleActionAsync(cmd, send, func() (any, error) {
			if err := h.bridge.Connect(context.Background()); err != nil {
				return nil, err
			}
			return h.bridge.Status(), nil
		})
	case "disconnect":
		h.bridge.Disconnect()
		SendSuccess(send, cmd.Type, nil)
	case "mute":
		HandleCommand(cmd, send, func(req *MuteRequest) error {
			if req.Muted != nil {
				h.bridge.SetMuted(*req.Muted)
			} else {
				h.bridge.ToggleMute()
			}
			return nil
		})
	default:
		slog.Warn("unknown voice action", "action", action)
	}
}

// handleSettings routes settings/* commands
func (h *CommandHandler) handleSettings(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "get":
		SendSuccess(send, cmd.Type, map[string]any{
			"settings": h.bridge.Settings(),
			"saved":    h.bridge.SettingsSaved(),
			"voices":   types.VoiceIDs,
		})
	case "update":
		var req SettingsUpdateRequest
		if !DecodeAndValidate(cmd, send, &req) {
			return
		}
		h.bridge.UpdateSettings(applySettingsPatch(h.bridge.Settings(), req))
		SendSuccess(send, cmd.Type, map[string]any{
			"settings": h.bridge.Settings(),
			"saved":    h.bridge.SettingsSaved(),
		})
	case "save":
		HandleCommand(cmd, send, func(_ *struct{}) error {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			return h.bridge.SaveSettings(ctx)
		})
	default:
		slog.Warn("unknown settings action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// Status is pushed after every command; explicit get just
		// triggers the update.
	default:
		slog.Warn("unknown status action", "action", action)
	}
}

// applySettingsPatch merges the provided fields onto the current
// settings.
func applySettingsPatch(current types.VoiceSettings, req SettingsUpdateRequest) types.VoiceSettings {
	if req.Enabled != nil {
		current.Enabled = *req.Enabled
	}
	if req.Voice != nil {
		current.Voice = types.VoiceID(*req.Voice)
	}
	if req.AutoTranscription != nil {
		current.AutoTranscription = *req.AutoTranscription
	}
	if req.NoiseSuppression != nil {
		current.NoiseSuppression = *req.NoiseSuppression
	}
	if req.EchoCancellation != nil {
		current.EchoCancellation = *req.EchoCancellation
	}
	if req.Volume != nil {
		current.Volume = *req.Volume
	}
	return current
}
