// Package store persists voice settings and the chat log in Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// ErrNoSettings indicates nothing has been saved yet.
var ErrNoSettings = errors.New("no saved voice settings")

// settingsKey is the fixed row key: the bridge has a single operator,
// so settings are a singleton.
const settingsKey = "voice"

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// pingAttempts bounds the startup wait for the database, covering
// the common race where the bridge starts before Postgres is ready.
const pingAttempts = 5

// New opens the connection pool and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, util.WrapError("create connection pool", err)
	}

	backoff := util.NewBackoff(time.Second, 8*time.Second)
	for attempt := 1; ; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		if attempt == pingAttempts {
			pool.Close()
			return nil, util.WrapError("ping database", err)
		}
		slog.Warn("database not ready, retrying", "attempt", attempt, "error", err)
		if werr := backoff.Wait(ctx); werr != nil {
			pool.Close()
			return nil, werr
		}
	}

	if err := Migrate(dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// LoadSettings returns the persisted settings, or ErrNoSettings when
// none have been saved.
func (s *Store) LoadSettings(ctx context.Context) (types.VoiceSettings, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT settings FROM voice_settings WHERE key = $1`, settingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.VoiceSettings{}, ErrNoSettings
	}
	if err != nil {
		return types.VoiceSettings{}, util.WrapError("load voice settings", err)
	}
	var settings types.VoiceSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return types.VoiceSettings{}, util.WrapError("decode voice settings", err)
	}
	return settings, nil
}

// SaveSettings upserts the settings row.
func (s *Store) SaveSettings(ctx context.Context, settings types.VoiceSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return util.WrapError("encode voice settings", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO voice_settings (key, settings, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET settings = $2, updated_at = now()`,
		settingsKey, raw)
	if err != nil {
		return util.WrapError("save voice settings", err)
	}
	return nil
}

// CreateChatSession starts a chat session for transcript relay and
// returns its id.
func (s *Store) CreateChatSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_sessions (id) VALUES ($1)`, id)
	if err != nil {
		return "", util.WrapError("create chat session", err)
	}
	return id, nil
}

// AppendMessage adds one message to a chat session.
func (s *Store) AppendMessage(ctx context.Context, chatSessionID, sender, content string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (chat_session_id, sender, content)
		 VALUES ($1, $2, $3)`,
		chatSessionID, sender, content)
	if err != nil {
		return util.WrapError("append chat message", err)
	}
	return nil
}

// RecentMessages returns up to limit messages for a chat session in
// chronological order.
func (s *Store) RecentMessages(ctx context.Context, chatSessionID string, limit int) ([]types.ChatMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sender, content, created_at FROM chat_messages
		 WHERE chat_session_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		chatSessionID, limit)
	if err != nil {
		return nil, util.WrapError("query chat messages", err)
	}
	defer rows.Close()

	var out []types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, util.WrapError("scan chat message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, util.WrapError("iterate chat messages", err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
