package exchange

import (
	"errors"
	"fmt"
)

// TransientError marks failures worth retrying: network errors, HTTP 5xx
// and rate-limit responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedDataError marks responses the exchange answered but we could
// not interpret. Retrying these is pointless.
type MalformedDataError struct {
	Op  string
	Err error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be handled by the retry policy.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
