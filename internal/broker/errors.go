package broker

import (
	"errors"
	"fmt"

	"github.com/hllvc/tokenrelay/internal/spotify"
)

var (
	// ErrInvalidRequest indicates a missing required parameter.
	ErrInvalidRequest = errors.New("missing required parameter")

	// ErrUnauthorized indicates a bad or missing device auth key.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrRefreshTokenMissing indicates a stored record without a refresh
	// token. This should not occur after a successful grant; it is a
	// data-integrity fault.
	ErrRefreshTokenMissing = errors.New("refresh token missing from storage")
)

// RefreshRejectedError indicates the authorization server rejected the stored
// refresh token. The record has been deleted and the device must re-run the
// consent flow.
type RefreshRejectedError struct {
	Cause *spotify.UpstreamError
}

func (e *RefreshRejectedError) Error() string {
	return fmt.Sprintf("refresh token rejected, re-authorization required: %v", e.Cause)
}

func (e *RefreshRejectedError) Unwrap() error {
	return e.Cause
}
