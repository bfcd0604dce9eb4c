package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrUniqueViolation is returned when an insert hits a UNIQUE index
// (duplicate asset code, location name, audit id...).
var ErrUniqueViolation = errors.New("unique constraint violation")

const (
	sqliteBusyCode     = 5
	sqliteConstraint   = 19
	sqliteUniqueCode   = 2067 // SQLITE_CONSTRAINT_UNIQUE
	sqlitePrimaryCode  = 1555 // SQLITE_CONSTRAINT_PRIMARYKEY
	busyRetryAttempts  = 5
	busyInitialBackoff = 10 * time.Millisecond
	busyMaxBackoff     = 200 * time.Millisecond
)

// timeLayout is fixed width so TEXT ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// rows written by CURRENT_TIMESTAMP defaults
		t, err = time.Parse("2006-01-02 15:04:05", s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code(), true
	}
	return 0, false
}

// IsBusy reports whether err is SQLite lock contention.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		if code == sqliteUniqueCode || code == sqlitePrimaryCode {
			return true
		}
		if code != sqliteConstraint {
			return false
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// uniqueErr converts a UNIQUE failure into ErrUniqueViolation, keeping the driver text.
func uniqueErr(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
	}
	return err
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func execWithRetry(ctx context.Context, db sqlx.ExecerContext, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

// WithTx runs fn in one transaction, retrying the whole unit on SQLITE_BUSY.
// fn must only touch the store through tx. Reads inside one transaction share
// a snapshot, which the progress + mismatch summary relies on.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	return retryOnBusy(ctx, func() error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func countOf(ctx context.Context, db sqlx.QueryerContext, query string, args ...any) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, db, &n, query, args...)
	return n, err
}
