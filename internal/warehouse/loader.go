package warehouse

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/liamashdown/linetracker/internal/config"
	"github.com/liamashdown/linetracker/internal/metrics"
	"github.com/liamashdown/linetracker/internal/snapshots"
	"github.com/liamashdown/linetracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// FactRepository is the fact-table access the loader needs.
type FactRepository interface {
	CountFacts(ctx context.Context) (int64, error)
	InsertFacts(ctx context.Context, rows []storage.OddsFact, batchSize int) error
}

// SnapshotLister lists stored snapshots.
type SnapshotLister interface {
	List() ([]snapshots.Entry, error)
}

// LoadError reports the snapshot file that stopped a load. Nothing is
// inserted when a load fails.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadResult summarises one LoadAll call.
type LoadResult struct {
	Skipped      bool  // table already populated
	ExistingRows int64 // rows found when skipped
	Files        int
	Rows         int
	Duplicates   int // rows superseded by a later row with the same key
	Duration     time.Duration
}

// Loader performs the cold load of stored snapshots into the fact table.
type Loader struct {
	repo      FactRepository
	store     SnapshotLister
	batchSize int
	log       *logrus.Logger
	now       func() time.Time
}

// NewLoader creates a loader.
func NewLoader(cfg *config.Config, repo FactRepository, store SnapshotLister, log *logrus.Logger) *Loader {
	return &Loader{
		repo:      repo,
		store:     store,
		batchSize: cfg.LoadBatchSize,
		log:       log,
		now:       time.Now,
	}
}

type factKey struct {
	capturedAt int64
	eventID    string
	bookmaker  string
	market     string
	outcome    string
}

// LoadAll loads every stored snapshot if the fact table is empty, and does
// nothing otherwise. All snapshots are flattened before anything is written,
// and the insert runs in one transaction, so a failure leaves the table
// empty.
func (l *Loader) LoadAll(ctx context.Context) (LoadResult, error) {
	start := l.now()
	var result LoadResult

	existing, err := l.repo.CountFacts(ctx)
	if err != nil {
		metrics.RecordLoad("error", 0, time.Since(start))
		return result, fmt.Errorf("count facts: %w", err)
	}
	if existing > 0 {
		result.Skipped = true
		result.ExistingRows = existing
		metrics.RecordLoad("skipped", 0, time.Since(start))
		l.log.WithField("rows", existing).Info("Fact table already loaded, skipping")
		return result, nil
	}

	entries, err := l.store.List()
	if err != nil {
		metrics.RecordLoad("error", 0, time.Since(start))
		return result, fmt.Errorf("list snapshots: %w", err)
	}
	if len(entries) == 0 {
		metrics.RecordLoad("empty", 0, time.Since(start))
		l.log.Warn("No snapshot files found, run the capture first")
		return result, nil
	}

	loadedAt := start.UTC()
	var rows []storage.OddsFact
	index := make(map[factKey]int)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		payload, err := os.ReadFile(entry.Path)
		if err != nil {
			metrics.RecordLoad("error", 0, time.Since(start))
			return LoadResult{}, &LoadError{File: entry.Path, Err: err}
		}
		facts, err := Flatten(entry.Timestamp, payload)
		if err != nil {
			metrics.RecordLoad("error", 0, time.Since(start))
			return LoadResult{}, &LoadError{File: entry.Path, Err: err}
		}

		for _, f := range facts {
			f.LoadedAt = loadedAt
			k := factKey{
				capturedAt: f.CapturedAt.UnixNano(),
				eventID:    f.EventID,
				bookmaker:  f.BookmakerKey,
				market:     f.MarketKey,
				outcome:    f.OutcomeName,
			}
			if i, ok := index[k]; ok {
				rows[i] = f
				result.Duplicates++
				continue
			}
			index[k] = len(rows)
			rows = append(rows, f)
		}
		result.Files++
	}

	if err := l.repo.InsertFacts(ctx, rows, l.batchSize); err != nil {
		metrics.RecordLoad("error", 0, time.Since(start))
		return LoadResult{}, fmt.Errorf("insert facts: %w", err)
	}

	result.Rows = len(rows)
	result.Duration = time.Since(start)
	metrics.RecordLoad("loaded", result.Rows, result.Duration)

	l.log.WithFields(logrus.Fields{
		"rows":       result.Rows,
		"files":      result.Files,
		"duplicates": result.Duplicates,
		"duration":   result.Duration.String(),
	}).Info("Fact table loaded")

	return result, nil
}
