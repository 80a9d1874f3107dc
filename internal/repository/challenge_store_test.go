package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type challengeStore interface {
	Put(ctx context.Context, c Challenge) error
	Get(ctx context.Context, userID string) (Challenge, error)
	IncrAttempts(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string) error
}

func TestChallengeStores(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	stores := map[string]challengeStore{
		"redis":  NewRedisChallengeStore(rdb, "otp"),
		"memory": NewMemoryChallengeStore(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := Challenge{UserID: "u1", CodeHash: "code", SecretHash: "secret", ExpiresAt: time.Now().Add(time.Minute)}
			require.NoError(t, s.Put(ctx, c))

			got, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "code", got.CodeHash)
			assert.Equal(t, "secret", got.SecretHash)
			assert.Zero(t, got.Attempts)

			n, err := s.IncrAttempts(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			// a fresh challenge resets the attempt counter
			require.NoError(t, s.Put(ctx, c))
			got, err = s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Zero(t, got.Attempts)

			require.NoError(t, s.Delete(ctx, "u1"))
			_, err = s.Get(ctx, "u1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisChallengeExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s := NewRedisChallengeStore(rdb, "")

	require.NoError(t, s.Put(context.Background(), Challenge{UserID: "u1", ExpiresAt: time.Now().Add(10 * time.Second)}))
	mr.FastForward(11 * time.Second)

	_, err := s.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}
