package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"github.com/xxxsen/common/logutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/xxxsen/nl2sql/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const retryBase = 500 * time.Millisecond

// connectWithRetry calls ping until it succeeds or the retry budget runs out.
func connectWithRetry(ctx context.Context, retries int, name string, ping func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			logutil.GetLogger(ctx).Warn("store not reachable, retrying", zap.String("store", name), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
}

func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, retries int) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := connectWithRetry(ctx, retries, config.StorePostgres, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func ApplyMigrations(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return err
		}
		for _, q := range strings.Split(string(content), ";") {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			if _, err := db.Exec(q); err != nil {
				return fmt.Errorf("execute query in %s: %w", file, err)
			}
		}
	}
	return nil
}

func OpenMongo(ctx context.Context, cfg config.MongoConfig, retries int) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	ping := func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
	if err := connectWithRetry(ctx, retries, config.StoreMongo, ping); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}
