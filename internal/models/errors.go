package models

import "errors"

var (
	// ErrEmptyMessage rejects submissions whose text is empty after
	// trimming. Raised before any side effect.
	ErrEmptyMessage = errors.New("empty message")

	// ErrInvalidLocation rejects out-of-range or unparsable lat/long
	// values. Independent of text validation.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrNotMember is returned when the caller is not a member of the
	// room it is trying to read from or write to.
	ErrNotMember = errors.New("not a room member")

	// ErrStoreUnavailable wraps transient log store failures. The whole
	// operation is safe to retry; no dedupe claim is left dangling.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsValidation reports whether err is a client-input error, safe to
// surface as a 400 without retrying.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrInvalidLocation)
}
