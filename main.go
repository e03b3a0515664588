// Package main provides a realtime voice bridge that carries
// microphone audio to a conversational voice service and plays the
// spoken replies, relaying transcripts into the chat log.
//
// Usage:
//
//	voicebridge [-config path/to/config.json]
//
// If -config is not specified, the bridge looks for config.json in
// the same directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/archive"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/audio"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/bridge"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/config"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/eventlog"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/notify"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/realtime"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/relay"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/store"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}
	slog.Info("using config file", "path", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	settings := cfg.Snapshot()

	ctx := context.Background()

	// Persistence is optional; without it settings stay in memory
	// and transcripts are not relayed.
	var st *store.Store
	if util.IsConfigured(settings.Database.DSN) {
		st, err = store.New(ctx, settings.Database.DSN)
		if err != nil {
			slog.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer st.Close()
	} else {
		slog.Warn("no database configured, settings and transcripts will not persist")
	}

	archiver, err := archive.New(settings.Archive)
	if err != nil {
		slog.Error("failed to prepare transcript archive", "error", err)
		os.Exit(1)
	}
	archiver.Start()
	defer archiver.Close()

	var senders []notify.Sender
	if util.IsConfigured(settings.Notify.WebhookURL) {
		senders = append(senders, notify.NewWebhookSender(settings.Notify.WebhookURL))
	}
	if util.IsConfigured(settings.Notify.LogPath) {
		senders = append(senders, notify.NewLogSender(settings.Notify.LogPath))
	}
	if g := notify.NewGraphSender(settings.Notify.Graph); g != nil {
		senders = append(senders, g)
	}
	notifier := notify.New(senders...)

	mic := audio.NewMicrophone()
	speaker := audio.NewSpeaker(1.0)
	dialer := &realtime.WSDialer{URL: settings.Peer.URL, APIKey: settings.Peer.APIKey}

	// The controller's hooks close over the manager, which is built
	// right after the controller.
	var manager *bridge.Manager
	controller := realtime.NewController(dialer, mic, speaker, realtime.Hooks{
		OnTranscript:   func(text string) { manager.HandleTranscript(text) },
		OnChannelError: func(err error) { manager.HandleChannelError(err) },
		OnDisconnect:   func(reason string) { manager.HandleDisconnect(reason) },
	})

	opts := bridge.Options{
		Archiver: archiver,
		Notifier: notifier,
		Events:   eventlog.New(settings.EventLogPath),
		Volume:   speaker,
	}
	if st != nil {
		opts.Relay = relay.New(st)
	}
	var settingsStore bridge.SettingsStore
	if st != nil {
		settingsStore = st
	}
	manager = bridge.New(ctx, controller, settingsStore, settings.TurnDetection, opts)

	srv := NewServer(cfg, manager, st)
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals...)
	<-sigChan

	slog.Info("shutting down")
	srv.version.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), types.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	manager.Shutdown()
	slog.Info("shutdown complete")
}
