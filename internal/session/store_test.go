package session

import (
	"context"
	"testing"
	"time"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("lifecycle", func(t *testing.T) {
		userID := uuid.New()
		expires := time.Now().Add(time.Minute)
		err := store.Create(ctx, domain.Session{UserID: userID, TokenHash: "test_lifecycle", ExpiresAt: expires})
		require.NoError(t, err)

		sess, err := store.Get(ctx, "test_lifecycle")
		require.NoError(t, err)
		assert.Equal(t, userID, sess.UserID)
		assert.Equal(t, "test_lifecycle", sess.TokenHash)
		assert.False(t, sess.IsExpired())
		assert.WithinDuration(t, expires, sess.ExpiresAt, 2*time.Second)

		require.NoError(t, store.Delete(ctx, "test_lifecycle"))
		_, err = store.Get(ctx, "test_lifecycle")
		assert.ErrorIs(t, err, ErrNotFound)

		// deleting twice is fine
		assert.NoError(t, store.Delete(ctx, "test_lifecycle"))
	})

	t.Run("unknown hash", func(t *testing.T) {
		_, err := store.Get(ctx, "test_unknown")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, store.Delete(ctx, "test_unknown"))
	})

	t.Run("sessions are independent", func(t *testing.T) {
		a, b := uuid.New(), uuid.New()
		require.NoError(t, store.Create(ctx, domain.Session{UserID: a, TokenHash: "test_a", ExpiresAt: time.Now().Add(time.Minute)}))
		require.NoError(t, store.Create(ctx, domain.Session{UserID: b, TokenHash: "test_b", ExpiresAt: time.Now().Add(time.Minute)}))

		require.NoError(t, store.Delete(ctx, "test_a"))
		sess, err := store.Get(ctx, "test_b")
		require.NoError(t, err)
		assert.Equal(t, b, sess.UserID)
	})

	t.Run("rejects expired", func(t *testing.T) {
		err := store.Create(ctx, domain.Session{UserID: uuid.New(), TokenHash: "test_expired", ExpiresAt: time.Now().Add(-time.Second)})
		assert.Error(t, err)
		_, err = store.Get(ctx, "test_expired")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newMiniRedisStore(t)
	testStore(t, store)
}

func TestRedisStore_ExpiresWithTTL(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	err := store.Create(ctx, domain.Session{UserID: uuid.New(), TokenHash: "test_ttl", ExpiresAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL(RedisPrefix+"test_ttl").Seconds(), 2)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "test_ttl")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	require.NoError(t, mr.Set(RedisPrefix+"test_corrupt", "not-a-uuid"))

	_, err := store.Get(context.Background(), "test_corrupt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ServerDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client)

	_, err := store.Get(context.Background(), "test_down")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "an outage is not a missing session")
}

// TestRedisStore_Live runs the same checks against a real Redis on
// localhost:6379 when one is running.
func TestRedisStore_Live(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		iter := client.Scan(ctx, 0, RedisPrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
		client.Close()
	})

	testStore(t, NewRedisStore(client))
}
