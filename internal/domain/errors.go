package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrScoreNotFound  = errors.New("score not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalError  = errors.New("internal server error")
)

// ValidationError reports a submission rejected by the score validator. The
// embedded result carries the reason string and, where computed, the expected
// score so callers can surface both.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("score validation failed: %s", e.Result.Reason)
}

// SuspiciousPatternError reports a submission rejected by the pattern
// analyzer. Reasons are a batch, intended for human review rather than hard
// proof of cheating.
type SuspiciousPatternError struct {
	Reasons []string
}

func (e *SuspiciousPatternError) Error() string {
	return fmt.Sprintf("suspicious score pattern: %s", strings.Join(e.Reasons, "; "))
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrScoreNotFound) || errors.Is(err, ErrPlayerNotFound)
}
