// Package archive writes per-session transcript files and uploads
// them to S3-compatible storage, with daily retention cleanup.
package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// uploadTimeout bounds one transcript upload.
const uploadTimeout = 60 * time.Second

// cleanupHour is the local hour at which retention cleanup runs.
const cleanupHour = 3

// S3Config describes the S3-compatible upload target. Empty values
// disable uploads.
type S3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Prefix    string `json:"prefix"`
}

// Config controls transcript archiving.
type Config struct {
	Dir           string   `json:"dir"`
	RetentionDays int      `json:"retention_days"`
	S3            S3Config `json:"s3"`
}

// Archiver appends transcripts to per-session files and ships closed
// sessions to object storage.
type Archiver struct {
	dir       string
	retention int
	bucket    string
	prefix    string
	s3        *s3.Client

	mu    sync.Mutex
	files map[string]*os.File

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New prepares the archive directory and the optional S3 client.
func New(cfg Config) (*Archiver, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, util.WrapError("create archive directory", err)
	}
	a := &Archiver{
		dir:       cfg.Dir,
		retention: cfg.RetentionDays,
		bucket:    cfg.S3.Bucket,
		prefix:    cfg.S3.Prefix,
		files:     make(map[string]*os.File),
	}
	if util.AllConfigured(cfg.S3.Endpoint, cfg.S3.Bucket, cfg.S3.AccessKey, cfg.S3.SecretKey) {
		a.s3 = s3.New(s3.Options{
			Region:       cfg.S3.Region,
			BaseEndpoint: aws.String(cfg.S3.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
			UsePathStyle: true,
		})
	}
	return a, nil
}

type archiveEntry struct {
	Timestamp  string `json:"timestamp"`
	Transcript string `json:"transcript"`
}

// Record appends one transcript line to the session's file. Failures
// are logged; archiving never disturbs the voice session.
func (a *Archiver) Record(sessionID, transcript string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.files[sessionID]
	if !ok {
		var err error
		f, err = os.OpenFile(a.sessionPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Error("opening transcript archive failed", "session_id", sessionID, "error", err)
			return
		}
		a.files[sessionID] = f
	}
	line, err := json.Marshal(archiveEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Transcript: transcript,
	})
	if err != nil {
		slog.Error("encoding transcript entry failed", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Error("writing transcript archive failed", "session_id", sessionID, "error", err)
	}
}

// CloseSession finalizes the session's file and uploads it in the
// background when S3 is configured.
func (a *Archiver) CloseSession(sessionID string) {
	a.mu.Lock()
	f, ok := a.files[sessionID]
	if ok {
		delete(a.files, sessionID)
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	if err := f.Close(); err != nil {
		slog.Warn("closing transcript archive failed", "session_id", sessionID, "error", err)
	}
	if a.s3 == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.upload(sessionID); err != nil {
			slog.Error("transcript upload failed", "session_id", sessionID, "error", err)
			return
		}
		slog.Info("transcript uploaded", "session_id", sessionID)
	}()
}

func (a *Archiver) upload(sessionID string) error {
	f, err := os.Open(a.sessionPath(sessionID))
	if err != nil {
		return util.WrapError("open transcript for upload", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	key := filepath.ToSlash(filepath.Join(a.prefix, time.Now().UTC().Format("2006/01/02"), sessionID+".jsonl"))
	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return util.WrapError("upload transcript", err)
	}
	return nil
}

// Start launches the daily retention cleanup. No-op when retention is
// disabled.
func (a *Archiver) Start() {
	if a.retention <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(untilNextCleanup(time.Now())):
				a.cleanup()
			}
		}
	}()
}

// untilNextCleanup returns the duration until the next daily cleanup
// time.
func untilNextCleanup(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), cleanupHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// cleanup removes local transcript files older than the retention
// window.
func (a *Archiver) cleanup() {
	cutoff := time.Now().AddDate(0, 0, -a.retention)
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		slog.Error("reading archive directory failed", "error", err)
		return
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err != nil {
			slog.Warn("removing expired transcript failed", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("expired transcripts removed", "count", removed, "retention_days", a.retention)
	}
}

// Close stops the cleanup loop, waits for in-flight uploads and
// closes any open session files.
func (a *Archiver) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Lock()
	for id, f := range a.files {
		if err := f.Close(); err != nil {
			slog.Warn("closing transcript archive failed", "session_id", id, "error", err)
		}
	}
	a.files = make(map[string]*os.File)
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Archiver) sessionPath(sessionID string) string {
	return filepath.Join(a.dir, sessionID+".jsonl")
}
