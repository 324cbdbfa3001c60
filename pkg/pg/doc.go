// Package pg provides PostgreSQL connection management for the task store:
// pooled connections with startup retries, a healthcheck closure, and
// goose-based schema migrations from embedded SQL files.
//
// Usage:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := queue.Migrate(ctx, pool, slog.Default()); err != nil {
//		return err
//	}
package pg
