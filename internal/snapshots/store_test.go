package snapshots

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(t.TempDir(), "nfl_odds", log)
}

func TestKey(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2025, 9, 4, 2, 0, 0, 0, time.UTC)

	if got, want := s.Key(ts), "nfl_odds_2025-09-04_02-00-00.json"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	parsed, ok := s.ParseKey(s.Key(ts))
	if !ok || !parsed.Equal(ts) {
		t.Errorf("ParseKey() = %v, %v", parsed, ok)
	}
}

func TestParseKeyRejects(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{
		"nba_odds_2025-09-04_02-00-00.json",
		"nfl_odds_2025-09-04_02-00-00.txt",
		"nfl_odds_2025-09-04T02:00:00Z.json",
		"nfl_odds_.json",
		".tmp-nfl_odds_2025-09-04_02-00-00.json-123",
	} {
		if _, ok := s.ParseKey(name); ok {
			t.Errorf("ParseKey(%q) accepted", name)
		}
	}
}

func TestWriteExists(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2025, 9, 4, 14, 0, 0, 0, time.UTC)

	exists, err := s.Exists(ts)
	if err != nil || exists {
		t.Fatalf("Exists() before write = %v, %v", exists, err)
	}

	payload := []byte(`{"timestamp":"2025-09-04T14:00:00Z","data":[]}`)
	path, err := s.Write(ts, payload)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if filepath.Base(path) != "nfl_odds_2025-09-04_14-00-00.json" {
		t.Errorf("unexpected path %s", path)
	}

	exists, err = s.Exists(ts)
	if err != nil || !exists {
		t.Fatalf("Exists() after write = %v, %v", exists, err)
	}

	got, err := s.Read(ts)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Read() = %s, want verbatim payload", got)
	}
}

func TestWriteOnce(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2025, 9, 4, 14, 0, 0, 0, time.UTC)

	if _, err := s.Write(ts, []byte("first")); err != nil {
		t.Fatalf("first Write() error: %v", err)
	}
	_, err := s.Write(ts, []byte("second"))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Write() error = %v, want ErrAlreadyExists", err)
	}

	got, _ := s.Read(ts)
	if string(got) != "first" {
		t.Errorf("payload overwritten: %s", got)
	}

	leftovers, _ := os.ReadDir(s.Dir())
	if len(leftovers) != 1 {
		t.Errorf("expected only the snapshot file, found %d entries", len(leftovers))
	}
}

func TestListOrdered(t *testing.T) {
	s := newTestStore(t)
	times := []time.Time{
		time.Date(2025, 9, 5, 2, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 4, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 4, 2, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		if _, err := s.Write(ts, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Errorf("entries not ascending at %d", i)
		}
	}
	if !entries[0].Timestamp.Equal(times[2]) {
		t.Errorf("first entry = %v, want %v", entries[0].Timestamp, times[2])
	}
}

func TestListMissingDir(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := New(filepath.Join(t.TempDir(), "missing"), "nfl_odds", log)

	entries, err := s.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("List() on missing dir = %v, %v", entries, err)
	}
}
