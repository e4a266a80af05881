package services

import (
	"errors"
	"fmt"
)

// Rule violation kinds. All are terminal: they are reported to the caller
// verbatim and never retried.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrDuplicate  = errors.New("duplicate pick")
)

// Conflict reasons
const (
	ReasonPicksLocked         = "picks locked"
	ReasonConfidenceCommitted = "confidence value is committed to a locked game"
)

// ErrConcurrentUpdate is returned by a store when the atomic unit could not
// be applied because another submission touched the same user-week. It is
// a server-side failure, not a rule violation.
var ErrConcurrentUpdate = errors.New("concurrent pick update")

// RuleError carries a rule violation kind and a caller-facing reason
type RuleError struct {
	Kind   error
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *RuleError) Unwrap() error {
	return e.Kind
}

func validationErr(format string, args ...interface{}) error {
	return &RuleError{Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) error {
	return &RuleError{Kind: ErrNotFound, Reason: fmt.Sprintf(format, args...)}
}

func conflictErr(reason string) error {
	return &RuleError{Kind: ErrConflict, Reason: reason}
}

func duplicateErr(format string, args ...interface{}) error {
	return &RuleError{Kind: ErrDuplicate, Reason: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the caller-facing reason of a rule error, or "" for
// anything else
func ReasonOf(err error) string {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

func isKind(err, kind error) bool {
	return errors.Is(err, kind)
}
