package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(&Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	first, err := client.MarkOnce(ctx, "dedup:test:1", time.Minute)
	require.NoError(t, err)
	second, err := client.MarkOnce(ctx, "dedup:test:1", time.Minute)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	mr.FastForward(2 * time.Minute)
	again, err := client.MarkOnce(ctx, "dedup:test:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestUnmarkAllowsNextMark(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(&Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	first, err := client.MarkOnce(ctx, "dedup:test:2", time.Minute)
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, client.Unmark(ctx, "dedup:test:2"))
	assert.False(t, mr.Exists("dedup:test:2"))

	again, err := client.MarkOnce(ctx, "dedup:test:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(&Config{Addr: addr})
	assert.Error(t, err)
}
