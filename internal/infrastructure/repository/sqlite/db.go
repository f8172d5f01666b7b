package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/riskibarqy/matchlog/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

const (
	driverName         = "sqlite3"
	defaultBusyTimeout = 5 * time.Second
	defaultMaxOpen     = 4
)

type Config struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DB is an open matches database file.
type DB struct {
	*sqlx.DB
	path        string
	busyTimeout time.Duration
}

// Open connects to the database file at cfg.Path and verifies it can be reached.
// It does not create the schema; call EnsureSchema for that.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", usecase.ErrStorageUnavailable)
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpen
	}

	db, err := otelsqlx.Open(driverName, buildDSN(path, cfg.BusyTimeout),
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
		otelsql.WithDBName(dbNameFromPath(path)),
		otelsql.WithQueryFormatter(formatQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", usecase.ErrStorageUnavailable, path, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mapError("ping database "+path, err)
	}

	return &DB{DB: db, path: path, busyTimeout: cfg.BusyTimeout}, nil
}

func (d *DB) Path() string {
	return d.path
}
