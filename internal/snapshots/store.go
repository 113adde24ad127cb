package snapshots

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	keyLayout = "2006-01-02_15-04-05"
	extension = ".json"
)

// ErrAlreadyExists is returned by Write when a snapshot is already stored for
// the timestamp. Stored snapshots are never overwritten.
var ErrAlreadyExists = errors.New("snapshot already exists")

// StorageError wraps a filesystem failure. A capture run cannot continue
// safely after one.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Entry is one stored snapshot.
type Entry struct {
	Timestamp time.Time
	Path      string
}

// Store keeps one raw provider response per capture timestamp in a directory.
// Files are written once and never modified.
type Store struct {
	dir    string
	prefix string
	log    *logrus.Logger
}

// New creates a store rooted at dir. Files are named <prefix>_<key>.json.
func New(dir, prefix string, log *logrus.Logger) *Store {
	return &Store{dir: dir, prefix: prefix, log: log}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Key returns the file name for ts: the ISO timestamp with ':' -> '-',
// 'T' -> '_' and the trailing 'Z' dropped. Keys sort in timestamp order.
func (s *Store) Key(ts time.Time) string {
	return s.prefix + "_" + ts.UTC().Format(keyLayout) + extension
}

// ParseKey decodes a file name produced by Key.
func (s *Store) ParseKey(name string) (time.Time, bool) {
	head := s.prefix + "_"
	if !strings.HasPrefix(name, head) || !strings.HasSuffix(name, extension) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, head), extension)
	ts, err := time.ParseInLocation(keyLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Path returns the absolute location of the snapshot for ts.
func (s *Store) Path(ts time.Time) string {
	return filepath.Join(s.dir, s.Key(ts))
}

// Exists reports whether a snapshot is stored for ts without reading it.
func (s *Store) Exists(ts time.Time) (bool, error) {
	path := s.Path(ts)
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &StorageError{Op: "stat", Path: path, Err: err}
}

// Write stores payload for ts. The payload is written to a temp file, synced
// and hard-linked into place, so a reader either sees the complete file or no
// file. A second Write for the same ts returns ErrAlreadyExists.
func (s *Store) Write(ts time.Time, payload []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}

	path := s.Path(ts)
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+s.Key(ts)+"-*")
	if err != nil {
		return "", &StorageError{Op: "create", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return "", &StorageError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", &StorageError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &StorageError{Op: "close", Path: tmpPath, Err: err}
	}

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", path, ErrAlreadyExists)
		}
		return "", &StorageError{Op: "link", Path: path, Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"file":  path,
		"bytes": len(payload),
	}).Debug("Snapshot stored")

	return path, nil
}

// Read returns the stored payload for ts.
func (s *Store) Read(ts time.Time) ([]byte, error) {
	path := s.Path(ts)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// List returns every stored snapshot in ascending timestamp order. Files that
// do not carry a snapshot key are ignored. A missing directory is an empty
// store.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "list", Path: s.dir, Err: err}
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ts, ok := s.ParseKey(de.Name())
		if !ok {
			continue
		}
		entries = append(entries, Entry{Timestamp: ts, Path: filepath.Join(s.dir, de.Name())})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return entries, nil
}
