package cache

import (
	"context"
	"testing"

	"irrigation-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestUnconfiguredCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, config.RedisConfig{}, zap.NewNop())
	assert.False(t, c.Enabled())

	c.Set(ctx, "products:all", []string{"pump"})
	var out []string
	assert.False(t, c.Get(ctx, "products:all", &out))
	assert.Nil(t, out)

	c.Invalidate(ctx, "products:")
	assert.NoError(t, c.Close())
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	var out map[string]int
	assert.False(t, c.Get(context.Background(), "k", &out))
	c.Set(context.Background(), "k", 1)
	c.Invalidate(context.Background(), "k")
	assert.NoError(t, c.Close())
}
