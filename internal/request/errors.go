// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package request

import (
	"errors"
	"fmt"
	"net/http"
)

// BackendError describes a non-2xx response from a completion API.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("status code: %d, body: %s", e.Status, e.Body)
}

// Retryable reports whether another transport-level attempt could
// succeed: rate limits and server errors qualify, client errors do not.
func (e *BackendError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Fatal reports whether the error should abort the whole correction
// pass rather than void a single batch. Auth failures can never recover,
// and a rate limit or server error that survived transport retries will
// hit every remaining batch too.
func (e *BackendError) Fatal() bool {
	switch {
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return true
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	}
	return false
}

// IsFatal reports whether err carries a BackendError that is fatal for
// the whole pass. Network errors and timeouts are not fatal: they void
// one batch and the rest proceed.
func IsFatal(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Fatal()
}
