package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/audio"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/bridge"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/config"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/server"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/store"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// statusInterval is the cadence of periodic status pushes to control
// clients.
const statusInterval = 3 * time.Second

// Server is the HTTP and WebSocket control surface for the voice
// bridge.
type Server struct {
	config   *config.Config
	bridge   *bridge.Manager
	store    *store.Store
	sessions *server.SessionManager
	commands *server.CommandHandler
	version  *VersionChecker

	mu      sync.Mutex
	clients map[chan<- any]struct{}
}

// NewServer returns a Server wired to the bridge. It registers itself
// as the bridge's transcript listener so clients see transcripts
// live.
func NewServer(cfg *config.Config, b *bridge.Manager, st *store.Store) *Server {
	s := &Server{
		config:   cfg,
		bridge:   b,
		store:    st,
		sessions: server.NewSessionManager(),
		commands: server.NewCommandHandler(b),
		version:  NewVersionChecker(),
		clients:  make(map[chan<- any]struct{}),
	}
	b.SetTranscriptListener(s.broadcastTranscript)
	return s
}

// broadcastTranscript pushes a finalized transcript to every
// connected control client.
func (s *Server) broadcastTranscript(sessionID, transcript string) {
	msg := types.WSTranscriptResponse{
		Type:       "transcript",
		SessionID:  sessionID,
		Transcript: transcript,
		Timestamp:  util.Timestamp(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for send := range s.clients {
		server.SendData(send, msg)
	}
}

func (s *Server) addClient(send chan<- any) {
	s.mu.Lock()
	s.clients[send] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(send chan<- any) {
	s.mu.Lock()
	delete(s.clients, send)
	s.mu.Unlock()
}

// handleWebSocket handles bidirectional WebSocket communication for
// real-time control and status.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Only the writer goroutine writes to the connection.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	// Removal must precede the close so the transcript broadcaster
	// never sends on a closed channel.
	s.addClient(send)
	defer close(send)
	defer s.removeClient(send)

	go s.runWebSocketWriter(conn, send)
	go s.runWebSocketReader(conn, send, done, statusUpdate)
	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// wsConn is the connection surface used by the pump goroutines.
type wsConn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn wsConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn wsConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop pushes status snapshots until the client
// disconnects.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	if !trySend(s.buildWSStatus()) {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				return
			}
		case <-ticker.C:
			if !trySend(s.buildWSStatus()) {
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	return types.WSStatusResponse{
		Type:          "status",
		AudioDevice:   audio.HaveInputDevice(),
		Session:       s.bridge.Status(),
		Settings:      s.bridge.Settings(),
		SettingsSaved: s.bridge.SettingsSaved(),
		Voices:        types.VoiceIDs,
		Version:       s.version.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	auth := s.sessions.AuthMiddleware()

	// Public routes
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	// Protected routes
	mux.HandleFunc("/ws", auth(s.handleWebSocket))
	mux.HandleFunc("/api/status", auth(s.handleStatus))
	mux.HandleFunc("/api/chat", auth(s.handleChatMessages))
	mux.HandleFunc("/api/audio/sample", auth(s.handleAudioSample))

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().Server.Port)
	slog.Info("starting control server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}
