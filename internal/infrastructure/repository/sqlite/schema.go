package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/riskibarqy/matchlog/internal/platform/logging"
	"github.com/riskibarqy/matchlog/internal/usecase"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type migrationLogger struct {
	logger *logging.Logger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrationLogger) Verbose() bool {
	return false
}

// NewMigrator returns a golang-migrate instance over the embedded migrations for
// the database file at path. Callers own the returned instance and must Close it.
func NewMigrator(path string, busyTimeout time.Duration, logger *logging.Logger) (*migrate.Migrate, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: database path is required", usecase.ErrStorageUnavailable)
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(path, busyTimeout))
	if err != nil {
		return nil, mapError("init migrator", err)
	}
	m.Log = migrationLogger{logger: logger}
	return m, nil
}

// EnsureSchema applies every pending migration. Running it against an up to date
// database is a no-op.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := NewMigrator(d.path, d.busyTimeout, nil)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return mapError("apply migrations", err)
	}
	return nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logging.Default().Warn("close migration source failed", "error", srcErr)
	}
	if dbErr != nil {
		logging.Default().Warn("close migration database failed", "error", dbErr)
	}
}
