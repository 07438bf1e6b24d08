package cache

import (
	"context"
	"testing"
	"time"

	"github.com/gcforum/portal/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_InvalidateByTag(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	m.Set(ctx, "/api/resources", &Entry{Status: 200, Body: []byte("r")}, []string{TagResources})
	m.Set(ctx, "/api/home", &Entry{Status: 200, Body: []byte("h")}, []string{TagResources, TagEvents, TagHome})
	m.Set(ctx, "/api/events", &Entry{Status: 200, Body: []byte("e")}, []string{TagEvents})

	m.Invalidate(ctx, TagResources)

	_, ok := m.Get(ctx, "/api/resources")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "/api/home")
	assert.False(t, ok)

	got, ok := m.Get(ctx, "/api/events")
	require.True(t, ok)
	assert.Equal(t, []byte("e"), got.Body)
}

func TestMemory_InvalidateUnknownTag(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	m.Set(ctx, "k", &Entry{Status: 200}, nil)

	m.Invalidate(ctx, "nothing")

	_, ok := m.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20 * time.Millisecond)
	m.Set(ctx, "k", &Entry{Status: 200}, []string{TagHome})

	time.Sleep(40 * time.Millisecond)

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_UnreachableIsMiss(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := NewRedis(client, time.Minute)
	r.Set(ctx, "k", &Entry{Status: 200}, []string{TagHome})
	r.Invalidate(ctx, TagHome)

	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNew_FallsBackToMemory(t *testing.T) {
	cfg := &config.Config{CacheTTL: time.Minute}
	assert.IsType(t, &Memory{}, New(cfg))

	cfg.CacheRedisURL = "not a url"
	assert.IsType(t, &Memory{}, New(cfg))
}
