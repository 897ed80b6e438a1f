package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	newPool = pgxpool.New
	pingDB  = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres opens a pgx pool against url. An empty url returns nil:
// the service then runs without candle history rather than refusing to
// start, since Postgres only backs the archival endpoints.
func InitPostgres(ctx context.Context, url string) *pgxpool.Pool {
	if url == "" {
		log.Println("Postgres disabled, candle history will not be persisted")
		return nil
	}

	pool, err := newPool(ctx, url)
	if err != nil {
		log.Fatalf("failed to create postgres pool: %v", err)
	}
	if err := pingDB(ctx, pool); err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	log.Println("Connected to Postgres")
	return pool
}
