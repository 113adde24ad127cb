package warehouse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/liamashdown/linetracker/internal/config"
	"github.com/liamashdown/linetracker/internal/snapshots"
	"github.com/liamashdown/linetracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// memRepo is an in-memory fact table. InsertFacts is all-or-nothing, like
// the transactional gorm implementation.
type memRepo struct {
	rows      []storage.OddsFact
	insertErr error
	countErr  error
	inserts   int
}

func (m *memRepo) CountFacts(ctx context.Context) (int64, error) {
	return int64(len(m.rows)), m.countErr
}

func (m *memRepo) InsertFacts(ctx context.Context, rows []storage.OddsFact, batchSize int) error {
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestLoader(t *testing.T, repo FactRepository) (*Loader, *snapshots.Store) {
	t.Helper()
	store := snapshots.New(t.TempDir(), "nfl_odds", quietLogger())
	return NewLoader(&config.Config{LoadBatchSize: 100}, repo, store, quietLogger()), store
}

func writeSnapshot(t *testing.T, store *snapshots.Store, ts time.Time, payload []byte) {
	t.Helper()
	if _, err := store.Write(ts, payload); err != nil {
		t.Fatal(err)
	}
}

func captureTime(hour int) time.Time {
	return time.Date(2025, 9, 4, hour, 0, 0, 0, time.UTC)
}

func TestLoadAll(t *testing.T) {
	repo := &memRepo{}
	loader, store := newTestLoader(t, repo)

	writeSnapshot(t, store, captureTime(2), snapshotJSON(t, "2025-09-04T02:00:00Z", spreadEvent("evt1", "draftkings", "fanduel")))
	writeSnapshot(t, store, captureTime(14), snapshotJSON(t, "2025-09-04T14:00:00Z", spreadEvent("evt1", "draftkings")))

	result, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if result.Files != 2 || result.Rows != 18 || result.Duplicates != 0 || result.Skipped {
		t.Errorf("result = %+v", result)
	}
	if len(repo.rows) != 18 {
		t.Fatalf("repo has %d rows, want 18", len(repo.rows))
	}
	loadedAt := repo.rows[0].LoadedAt
	for _, r := range repo.rows {
		if r.LoadedAt.IsZero() || !r.LoadedAt.Equal(loadedAt) {
			t.Fatalf("rows do not share one load time: %v vs %v", r.LoadedAt, loadedAt)
		}
	}
	if !repo.rows[0].CapturedAt.Equal(captureTime(2)) || !repo.rows[17].CapturedAt.Equal(captureTime(14)) {
		t.Error("rows not in snapshot order")
	}
}

func TestLoadAllSkipsPopulatedTable(t *testing.T) {
	repo := &memRepo{rows: []storage.OddsFact{{EventID: "existing"}}}
	loader, store := newTestLoader(t, repo)
	writeSnapshot(t, store, captureTime(2), snapshotJSON(t, "", spreadEvent("evt1", "draftkings")))

	result, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !result.Skipped || result.ExistingRows != 1 {
		t.Errorf("result = %+v, want skipped", result)
	}
	if repo.inserts != 0 || len(repo.rows) != 1 {
		t.Errorf("populated table was written to")
	}

	// A second call is also a no-op.
	if _, err := loader.LoadAll(context.Background()); err != nil || repo.inserts != 0 {
		t.Errorf("second LoadAll() wrote rows (err=%v)", err)
	}
}

func TestLoadAllNoSnapshots(t *testing.T) {
	repo := &memRepo{}
	loader, _ := newTestLoader(t, repo)

	result, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if result.Rows != 0 || repo.inserts != 0 {
		t.Errorf("result = %+v inserts = %d", result, repo.inserts)
	}
}

func TestLoadAllMalformedSnapshotIsAtomic(t *testing.T) {
	repo := &memRepo{}
	loader, store := newTestLoader(t, repo)

	writeSnapshot(t, store, captureTime(2), snapshotJSON(t, "", spreadEvent("evt1", "draftkings")))
	writeSnapshot(t, store, captureTime(14), []byte(`{"timestamp":"2025-09-04T14:00:00Z","data":[`))
	writeSnapshot(t, store, captureTime(18), snapshotJSON(t, "", spreadEvent("evt1", "draftkings")))

	_, err := loader.LoadAll(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("LoadAll() error = %v, want LoadError", err)
	}
	if !strings.HasSuffix(loadErr.File, "nfl_odds_2025-09-04_14-00-00.json") {
		t.Errorf("LoadError.File = %s, want the malformed snapshot", loadErr.File)
	}
	if len(repo.rows) != 0 || repo.inserts != 0 {
		t.Errorf("fact table has %d rows after failed load, want 0", len(repo.rows))
	}
}

func TestLoadAllInsertFailure(t *testing.T) {
	repo := &memRepo{insertErr: errors.New("deadlock")}
	loader, store := newTestLoader(t, repo)
	writeSnapshot(t, store, captureTime(2), snapshotJSON(t, "", spreadEvent("evt1", "draftkings")))

	if _, err := loader.LoadAll(context.Background()); err == nil {
		t.Fatal("expected insert error")
	}
	if len(repo.rows) != 0 {
		t.Errorf("rows left after failed insert: %d", len(repo.rows))
	}
}

func TestLoadAllCountFailure(t *testing.T) {
	repo := &memRepo{countErr: errors.New("connection refused")}
	loader, _ := newTestLoader(t, repo)

	if _, err := loader.LoadAll(context.Background()); err == nil {
		t.Fatal("expected count error")
	}
}

func TestLoadAllDeduplicatesLastWriteWins(t *testing.T) {
	repo := &memRepo{}
	loader, store := newTestLoader(t, repo)

	// Two capture slots resolved to the same provider snapshot time.
	first := spreadEvent("evt1", "draftkings")
	second := spreadEvent("evt1", "draftkings")
	second.Bookmakers[0].Markets[0].Outcomes[0].Price = -120
	writeSnapshot(t, store, captureTime(2), snapshotJSON(t, "2025-09-04T01:55:00Z", first))
	writeSnapshot(t, store, captureTime(14), snapshotJSON(t, "2025-09-04T01:55:00Z", second))

	result, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Rows != 6 || result.Duplicates != 6 {
		t.Errorf("result = %+v, want 6 rows and 6 duplicates", result)
	}
	for _, r := range repo.rows {
		if r.MarketKey == "spreads" && r.OutcomeName == "Philadelphia Eagles" && r.OutcomePrice != -120 {
			t.Errorf("duplicate resolved to price %v, want the later -120", r.OutcomePrice)
		}
	}
}
