package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/riskibarqy/matchlog/internal/usecase"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mapError classifies a driver error into the storage taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %s: %w", usecase.ErrConstraintViolation, op, err)
		case sqlite3.ErrBusy,
			sqlite3.ErrLocked,
			sqlite3.ErrReadonly,
			sqlite3.ErrIoErr,
			sqlite3.ErrCantOpen,
			sqlite3.ErrPerm,
			sqlite3.ErrFull,
			sqlite3.ErrCorrupt,
			sqlite3.ErrNotADB:
			return fmt.Errorf("%w: %s: %w", usecase.ErrStorageUnavailable, op, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
