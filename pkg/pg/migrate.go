package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Logger defines the interface required for migration logging integration.
// Compatible with slog, required for routing goose output to application
// logging instead of stdout/stderr.
type Logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MigrateFS applies schema migrations from an embedded filesystem using goose.
// Handles the pgx->database/sql conversion required since goose doesn't
// natively support pgx.
func MigrateFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, log Logger) error {
	// Bridge pgx connection pool to the database/sql interface goose expects.
	// The wrapper shares the underlying connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close database connection", "error", err)
		}
	}(db)

	goose.SetLogger(newSlogAdapter(log))
	goose.SetBaseFS(fsys)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	return nil
}

// migrateSlogAdapter bridges goose's Printf-style logging to structured logging.
// Maps goose's Fatalf to ErrorContext and Printf to InfoContext for consistency.
type migrateSlogAdapter struct {
	log Logger
}

func newSlogAdapter(log Logger) goose.Logger {
	return &migrateSlogAdapter{
		log: log,
	}
}

func (a *migrateSlogAdapter) Fatalf(format string, v ...any) {
	a.log.ErrorContext(context.Background(), fmt.Sprintf(format, v...))
}

func (a *migrateSlogAdapter) Printf(format string, v ...any) {
	a.log.InfoContext(context.Background(), fmt.Sprintf(format, v...))
}
