// Package metrics exposes Prometheus collectors for the voice bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts voice sessions that reached the
	// connected state.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_sessions_started_total",
		Help: "Number of voice sessions successfully connected.",
	})

	// SessionConnected reports whether a session is currently live.
	SessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebridge_session_connected",
		Help: "1 while a voice session is connected, 0 otherwise.",
	})

	// FramesSent counts microphone frames forwarded to the peer.
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_frames_sent_total",
		Help: "Microphone frames forwarded to the peer.",
	})

	// FramesMuted counts frames dropped while muted.
	FramesMuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_frames_muted_total",
		Help: "Microphone frames dropped due to mute.",
	})

	// ChunksPlayed counts peer audio chunks handed to playback.
	ChunksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_chunks_played_total",
		Help: "Peer audio chunks decoded and played.",
	})

	// DecodeFailures counts peer audio chunks dropped as undecodable.
	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_decode_failures_total",
		Help: "Peer audio chunks dropped because decoding failed.",
	})

	// TranscriptsRelayed counts transcripts written to the chat log.
	TranscriptsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_transcripts_relayed_total",
		Help: "Transcripts relayed into the chat log.",
	})

	// RelayFailures counts chat log writes that failed.
	RelayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_relay_failures_total",
		Help: "Transcript relay attempts that failed.",
	})

	// ChannelErrors counts peer-reported and transport errors.
	ChannelErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_channel_errors_total",
		Help: "Errors reported by or on the peer channel.",
	})
)
