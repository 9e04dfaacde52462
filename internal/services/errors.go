package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("duplicate document")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Classification tells the import queue whether a failed job may be retried.
type Classification int

const (
	// Permanent failures are recorded and never retried.
	Permanent Classification = iota
	// Transient failures are retried with backoff until the retry cap.
	Transient
)

func (c Classification) String() string {
	switch c {
	case Transient:
		return "transient"
	default:
		return "permanent"
	}
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an import failure to its retry class. Only errors explicitly
// tagged transient (or timeouts) are retried; everything else is permanent.
func Classify(err error) Classification {
	switch {
	case err == nil:
		return Permanent
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrConfiguration):
		return Permanent
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return Transient
	default:
		return Permanent
	}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err) == Transient
}

// ErrorHint returns a short operator-facing hint for the failure class.
func ErrorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "fix the document contents and drop it again"
	case errors.Is(err, ErrDuplicate):
		return "document already imported; drop a correction file to replace it"
	case errors.Is(err, ErrConfiguration):
		return "check docflow config"
	case errors.Is(err, ErrNotFound):
		return "source file disappeared before import"
	case IsTransient(err):
		return "will retry automatically"
	default:
		return "see daemon log for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
