package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// BlockedError carries the blocker list from an impact analysis so the
// caller can address each one.
type BlockedError struct {
	Blockers []string
}

func (e *BlockedError) Error() string {
	return "operation blocked: " + strings.Join(e.Blockers, "; ")
}

// ConfirmationRequiredError is not a failure: the soft-delete needs an
// explicit confirmed=true round trip. Blockers would have produced a
// BlockedError instead; only warnings ride along here.
type ConfirmationRequiredError struct {
	Warnings []string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("confirmation required (%d warnings)", len(e.Warnings))
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
