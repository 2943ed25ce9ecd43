package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// BuildCatalogStore picks MongoDB when a client is given and the in-memory
// store otherwise, then adds the Redis snapshot cache when Redis is available.
func BuildCatalogStore(ctx context.Context, cfg *appconfig.Config, mongoClient *mongo.Client, redisClient *redis.Client, logger *logging.Logger) (catalog.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var store catalog.Store
	if mongoClient != nil {
		mongoStore := catalog.NewMongoStore(mongoClient.Database(cfg.MongoDatabase))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: catalog indexes: %w", err)
		}
		store = mongoStore
	} else {
		logger.Warn("no MONGO_URL configured; using in-memory catalog")
		store = catalog.NewMemoryStore()
	}

	if redisClient != nil {
		store = catalog.NewCachedStore(store, redisClient, cfg.CatalogCacheTTL, logger)
		logger.Info("catalog snapshot cache enabled", "ttl", cfg.CatalogCacheTTL)
	}
	return store, nil
}
