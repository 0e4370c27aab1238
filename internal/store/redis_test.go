// ABOUTME: Redis-specific tests for key layout and outage handling

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_KeyLayout(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	id, err := s.Put(ctx, Document{"name": "scout-1"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:doc:"+id))
	members, err := mr.ZMembers("test:ids")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, members)

	require.NoError(t, s.Delete(ctx, id))
	body, err := mr.Get("test:doc:" + id)
	require.NoError(t, err)
	assert.Contains(t, body, `"_deleted":true`)
}

func TestRedisStore_Unavailable(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	mr.Close()

	_, err := s.Put(ctx, Document{"name": "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), ErrUnavailable)
	assert.ErrorIs(t, s.Delete(ctx, "any"), ErrUnavailable)
}

func TestOpen_RedisUnreachable(t *testing.T) {
	_, err := Open(context.Background(), Options{
		Driver: DriverRedis,
		Redis:  RedisOptions{Addr: "127.0.0.1:1"},
	})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MockStore{}, mem)

	lite, err := Open(ctx, Options{Driver: DriverModernc, Path: t.TempDir() + "/roster.db"})
	require.NoError(t, err)
	defer lite.Close()
	assert.IsType(t, &SQLiteStore{}, lite)

	_, err = Open(ctx, Options{Driver: "mongo"})
	assert.Error(t, err)
}
