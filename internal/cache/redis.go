package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gcforum/portal/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	entryPrefix = "gcforum:page:"
	tagPrefix   = "gcforum:tag:"
)

// Redis shares cached entries between processes. Errors are logged and
// treated as misses; the cache never fails a request.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := r.client.Get(ctx, entryPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Backend("cache.get", err)
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (r *Redis) Set(ctx context.Context, key string, entry *Entry, tags []string) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, entryPrefix+key, raw, r.ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagPrefix+tag, key)
		pipe.Expire(ctx, tagPrefix+tag, 2*r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Backend("cache.set", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		keys, err := r.client.SMembers(ctx, tagPrefix+tag).Result()
		if err != nil {
			logger.Backend("cache.invalidate", err)
			continue
		}
		del := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			del = append(del, entryPrefix+k)
		}
		del = append(del, tagPrefix+tag)
		if err := r.client.Del(ctx, del...).Err(); err != nil {
			logger.Backend("cache.invalidate", err)
		}
	}
}
