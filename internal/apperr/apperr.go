// Package apperr defines the error kinds shared by the matchmaking, ledger and
// games packages. Callers wrap them with fmt.Errorf("%w: ...") and match them
// with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input: team counts, headcounts, scores.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing game, round, quarter or match.
	ErrNotFound = errors.New("not found")

	// ErrCorruptState marks a stored ledger or legacy team set that cannot be decoded.
	// It is never repaired automatically.
	ErrCorruptState = errors.New("corrupt stored state")

	// ErrConflict marks a ledger write that lost a revision race.
	ErrConflict = errors.New("concurrent modification")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Corrupt(err error, format string, args ...any) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
	}
	return fmt.Errorf("%w: %s: %v", ErrCorruptState, fmt.Sprintf(format, args...), err)
}
