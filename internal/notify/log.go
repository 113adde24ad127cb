package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes reports to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the report
func (s *LogSender) Send(ctx context.Context, report *Report) error {
	fields := logrus.Fields{
		"job":      report.Job,
		"severity": report.Severity(),
	}
	if c := report.Capture; c != nil {
		fields["total"] = c.Total
		fields["extracted"] = c.Extracted
		fields["skipped"] = c.Skipped
		fields["failed"] = c.Failed
		fields["events"] = c.Events
	}
	if l := report.Load; l != nil {
		fields["files"] = l.Files
		fields["rows"] = l.Rows
		fields["duplicates"] = l.Duplicates
		fields["skipped"] = l.Skipped
	}

	entry := s.log.WithFields(fields)
	if report.Err != nil {
		entry.WithError(report.Err).Error("Run report")
		return nil
	}
	entry.Info("Run report")
	return nil
}
