// Package cache is the rendered-response cache. Every cached read records
// the dependency tags it was built from; writes invalidate by tag, so a
// new read path only has to declare what it depends on.
package cache

import (
	"context"
	"time"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Dependency tags.
const (
	TagResources    = "resources"
	TagEvents       = "events"
	TagPartners     = "partners"
	TagMembers      = "members"
	TagApplications = "applications"
	TagHome         = "home"
)

// Entry is one cached response.
type Entry struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store is implemented by the in-process and the redis caches.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry, tags []string)
	Invalidate(ctx context.Context, tags ...string)
}

// New picks the redis store when a URL is configured and reachable,
// otherwise an in-process store.
func New(cfg *config.Config) Store {
	if cfg.CacheRedisURL != "" {
		opts, err := redis.ParseURL(cfg.CacheRedisURL)
		if err != nil {
			logger.Get().Warnf("cache: invalid redis url, using memory: %v", err)
			return NewMemory(cfg.CacheTTL)
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Get().Warnf("cache: redis unreachable, using memory: %v", err)
			client.Close()
			return NewMemory(cfg.CacheTTL)
		}
		logger.Get().Info("cache: using redis")
		return NewRedis(client, cfg.CacheTTL)
	}
	return NewMemory(cfg.CacheTTL)
}
