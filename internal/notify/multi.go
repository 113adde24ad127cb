package notify

import (
	"context"
	"errors"
	"fmt"
)

// MultiSender sends reports to multiple destinations
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a new multi-sender
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

// Send sends the report to every sender, even when an earlier one fails
func (s *MultiSender) Send(ctx context.Context, report *Report) error {
	var errs []error
	for i, sender := range s.senders {
		if err := sender.Send(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("sender %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
