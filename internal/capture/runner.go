package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liamashdown/linetracker/internal/config"
	"github.com/liamashdown/linetracker/internal/metrics"
	"github.com/liamashdown/linetracker/internal/oddsapi"
	"github.com/liamashdown/linetracker/internal/ratelimit"
	"github.com/liamashdown/linetracker/internal/schedule"
	"github.com/liamashdown/linetracker/internal/snapshots"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves the snapshot for one capture timestamp.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, ts time.Time) (*oddsapi.Snapshot, error)
}

// SnapshotStore is the subset of snapshots.Store the runner needs.
type SnapshotStore interface {
	Exists(ts time.Time) (bool, error)
	Write(ts time.Time, payload []byte) (string, error)
}

// Stats summarises one capture run.
type Stats struct {
	Total     int
	Extracted int
	Skipped   int
	Failed    int
	Events    int // events across extracted snapshots
	Duration  time.Duration
}

// Runner walks the capture schedule, fetching and storing every timestamp
// that is not stored yet.
type Runner struct {
	timestamps []time.Time
	delay      time.Duration
	store      SnapshotStore
	fetcher    Fetcher
	log        *logrus.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a runner over the season schedule in cfg.
func New(cfg *config.Config, store SnapshotStore, fetcher Fetcher, log *logrus.Logger) *Runner {
	return &Runner{
		timestamps: schedule.Generate(cfg.SeasonStart, cfg.SeasonEnd, cfg.CaptureHoursUTC),
		delay:      cfg.RequestDelay,
		store:      store,
		fetcher:    fetcher,
		log:        log,
		sleep:      ratelimit.Sleep,
	}
}

// Run processes the schedule in order. Fetch failures are counted and the
// run moves on; the timestamp stays unstored and is retried by the next run.
// A storage failure stops the run. Cancellation is honoured between
// timestamps and returns the stats gathered so far with ctx.Err().
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{Total: len(r.timestamps)}

	r.log.WithField("total", stats.Total).Info("Starting capture run")

	for i, ts := range r.timestamps {
		if err := ctx.Err(); err != nil {
			return r.finish(start, stats, err)
		}

		exists, err := r.store.Exists(ts)
		if err != nil {
			return r.finish(start, stats, fmt.Errorf("check snapshot %s: %w", schedule.Format(ts), err))
		}
		if exists {
			stats.Skipped++
			metrics.RecordCapture("skipped")
			continue
		}

		logEntry := r.log.WithFields(logrus.Fields{
			"timestamp": schedule.Format(ts),
			"progress":  fmt.Sprintf("[%d/%d]", i+1, stats.Total),
		})
		logEntry.Info("Fetching snapshot")

		snap, err := r.fetcher.FetchSnapshot(ctx, ts)
		if err != nil {
			stats.Failed++
			metrics.RecordCapture("failed")
			logEntry.WithError(err).WithField("fatal", oddsapi.IsFatal(err)).Warn("Fetch failed, skipping")
		} else {
			if _, err := r.store.Write(ts, snap.Raw); err != nil {
				if !errors.Is(err, snapshots.ErrAlreadyExists) {
					return r.finish(start, stats, fmt.Errorf("store snapshot %s: %w", schedule.Format(ts), err))
				}
				stats.Skipped++
				metrics.RecordCapture("skipped")
				logEntry.Warn("Snapshot appeared while fetching, keeping stored copy")
			} else {
				stats.Extracted++
				stats.Events += len(snap.Data)
				metrics.RecordCapture("extracted")
				logEntry.WithField("events", len(snap.Data)).Info("Snapshot stored")
			}
		}

		if err := r.sleep(ctx, r.delay); err != nil {
			return r.finish(start, stats, err)
		}
	}

	return r.finish(start, stats, nil)
}

func (r *Runner) finish(start time.Time, stats Stats, err error) (Stats, error) {
	stats.Duration = time.Since(start)
	metrics.CaptureRunDuration.Observe(stats.Duration.Seconds())

	fields := logrus.Fields{
		"total":     stats.Total,
		"extracted": stats.Extracted,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
		"events":    stats.Events,
	}
	if err != nil {
		r.log.WithFields(fields).WithError(err).Warn("Capture run stopped early")
		return stats, err
	}
	r.log.WithFields(fields).Info("Capture run complete")
	return stats, nil
}
