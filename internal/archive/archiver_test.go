package archive

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAppendsJSONLines(t *testing.T) {
	a, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	a.Record("sess-1", "first line")
	a.Record("sess-1", "second line")
	a.CloseSession("sess-1")

	f, err := os.Open(filepath.Join(a.dir, "sess-1.jsonl"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	var transcripts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry archiveEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		transcripts = append(transcripts, entry.Transcript)
	}
	if len(transcripts) != 2 || transcripts[0] != "first line" || transcripts[1] != "second line" {
		t.Errorf("transcripts = %v", transcripts)
	}
}

func TestCloseSessionUnknownIDIsNoop(t *testing.T) {
	a, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	a.CloseSession("never-seen")
}

func TestCleanupRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	a, err := New(Config{Dir: dir, RetentionDays: 7})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	old := filepath.Join(dir, "old.jsonl")
	fresh := filepath.Join(dir, "fresh.jsonl")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	a.cleanup()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired file must be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file must survive")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-archive files must survive")
	}
}

func TestUntilNextCleanup(t *testing.T) {
	before := time.Date(2026, 1, 10, 1, 0, 0, 0, time.UTC)
	if got := untilNextCleanup(before); got != 2*time.Hour {
		t.Errorf("before cleanup hour: %v, want 2h", got)
	}
	after := time.Date(2026, 1, 10, 4, 0, 0, 0, time.UTC)
	if got := untilNextCleanup(after); got != 23*time.Hour {
		t.Errorf("after cleanup hour: %v, want 23h", got)
	}
}
