package repo

import (
	"context"
	"fmt"

	"github.com/xxxsen/nl2sql/internal/config"
	"github.com/xxxsen/nl2sql/internal/db"
)

// OpenUserRepo connects the configured backend and prepares its schema. The
// returned func releases the connection.
func OpenUserRepo(ctx context.Context, cfg config.StoreConfig) (IUserRepo, func(), error) {
	switch cfg.Type {
	case config.StoreMongo:
		client, err := db.OpenMongo(ctx, cfg.Mongo, cfg.ConnectRetries)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		users := NewMongoUserRepo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := users.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return users, closeFn, nil
	case config.StorePostgres:
		conn, err := db.OpenPostgres(ctx, cfg.Postgres, cfg.ConnectRetries)
		if err != nil {
			return nil, nil, err
		}
		if err := db.ApplyMigrations(conn); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return NewPGUserRepo(conn), func() { _ = conn.Close() }, nil
	case config.StoreMemory:
		return NewMemoryUserRepo(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
