package oddsapi

import (
	"errors"
	"fmt"
)

// TransientFetchError covers network failures, timeouts, 429 and 5xx
// responses. The timestamp can be retried by a later capture run.
type TransientFetchError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient fetch error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// FatalFetchError covers 4xx responses such as bad credentials or parameters.
// Retrying will not help until an operator fixes the request.
type FatalFetchError struct {
	StatusCode int
	Err        error
}

func (e *FatalFetchError) Error() string {
	return fmt.Sprintf("fatal fetch error (status %d): %v", e.StatusCode, e.Err)
}

func (e *FatalFetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a TransientFetchError.
func IsTransient(err error) bool {
	var te *TransientFetchError
	return errors.As(err, &te)
}

// IsFatal reports whether err is a FatalFetchError.
func IsFatal(err error) bool {
	var fe *FatalFetchError
	return errors.As(err, &fe)
}
