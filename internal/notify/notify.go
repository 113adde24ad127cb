package notify

import (
	"context"
	"time"

	"github.com/liamashdown/linetracker/internal/capture"
	"github.com/liamashdown/linetracker/internal/warehouse"
)

// Severity represents report severity
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityAlert Severity = "ALERT"
)

// Job names the pipeline stage a report describes.
type Job string

const (
	JobCapture Job = "capture"
	JobLoad    Job = "load"
)

// Report summarises one capture or load run. Exactly one of Capture and Load
// is set.
type Report struct {
	Job         Job
	Capture     *capture.Stats
	Load        *warehouse.LoadResult
	Err         error
	Environment string
	Timestamp   time.Time
}

// CaptureReport builds the report for a finished capture run
func CaptureReport(stats capture.Stats, err error, env string) *Report {
	return &Report{Job: JobCapture, Capture: &stats, Err: err, Environment: env, Timestamp: time.Now().UTC()}
}

// LoadReport builds the report for a finished load
func LoadReport(result warehouse.LoadResult, err error, env string) *Report {
	return &Report{Job: JobLoad, Load: &result, Err: err, Environment: env, Timestamp: time.Now().UTC()}
}

// Severity is ALERT for a run that stopped on an error and WARN for a capture
// with failed timestamps.
func (r *Report) Severity() Severity {
	switch {
	case r.Err != nil:
		return SeverityAlert
	case r.Capture != nil && r.Capture.Failed > 0:
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

// Sender defines the interface for report senders
type Sender interface {
	Send(ctx context.Context, report *Report) error
}
