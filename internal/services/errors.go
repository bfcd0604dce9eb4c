package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"assettrack/internal/repos"
	"assettrack/internal/validate"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
	// ErrConflict covers duplicates and lock contention that outlived the
	// store's retries. Callers may retry.
	ErrConflict = errors.New("conflict")
)

// ValidationError lists failed rules per input field. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func check(in any) error {
	if fields := validate.Struct(in); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func invalid(field, rule string) error {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// storeErr maps repository failures onto the service error kinds.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repos.ErrUniqueViolation), repos.IsBusy(err):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
