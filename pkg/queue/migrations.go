package queue

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/outreachq/pkg/pg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the queue schema (tasks and tasks_dlq tables) to the
// database behind the pool. Safe to call on every startup; already applied
// migrations are skipped.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log pg.Logger) error {
	return pg.MigrateFS(ctx, pool, migrationsFS, "migrations", log)
}
