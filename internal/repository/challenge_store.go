package repository

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Challenge is a pending passwordless login for one account.  Only hashes of
// the one-time code and of the magic link secret are kept.
type Challenge struct {
	UserID     string
	CodeHash   string // bcrypt
	SecretHash string // sha256 hex
	Attempts   int
	ExpiresAt  time.Time
}

// RedisChallengeStore keeps challenges in Redis hashes that expire on their
// own.  A new challenge for the same user replaces the previous one.
type RedisChallengeStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisChallengeStore(rdb *redis.Client, prefix string) *RedisChallengeStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisChallengeStore{rdb: rdb, prefix: prefix}
}

func (s *RedisChallengeStore) key(userID string) string { return s.prefix + ":" + userID }

// Put stores c under its user id until c.ExpiresAt.
func (s *RedisChallengeStore) Put(ctx context.Context, c Challenge) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return errors.New("challenge already expired")
	}
	key := s.key(c.UserID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		"code_hash":   c.CodeHash,
		"secret_hash": c.SecretHash,
		"attempts":    c.Attempts,
		"expires_at":  c.ExpiresAt.UTC().Unix(),
	})
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns the live challenge for userID or ErrNotFound.
func (s *RedisChallengeStore) Get(ctx context.Context, userID string) (Challenge, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return Challenge{}, err
	}
	if len(vals) == 0 {
		return Challenge{}, ErrNotFound
	}
	attempts, _ := strconv.Atoi(vals["attempts"])
	exp, _ := strconv.ParseInt(vals["expires_at"], 10, 64)
	return Challenge{
		UserID:     userID,
		CodeHash:   vals["code_hash"],
		SecretHash: vals["secret_hash"],
		Attempts:   attempts,
		ExpiresAt:  time.Unix(exp, 0).UTC(),
	}, nil
}

// IncrAttempts records a failed verification and returns the new count.
func (s *RedisChallengeStore) IncrAttempts(ctx context.Context, userID string) (int, error) {
	n, err := s.rdb.HIncrBy(ctx, s.key(userID), "attempts", 1).Result()
	return int(n), err
}

// Delete drops the challenge for userID.
func (s *RedisChallengeStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, s.key(userID)).Err()
}

// MemoryChallengeStore is the in-process fallback used when Redis is not
// reachable.  Challenges do not survive a restart.
type MemoryChallengeStore struct {
	mu   sync.Mutex
	data map[string]Challenge
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{data: make(map[string]Challenge)}
}

func (s *MemoryChallengeStore) Put(_ context.Context, c Challenge) error {
	s.mu.Lock()
	s.data[c.UserID] = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, userID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[userID]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	if time.Now().After(c.ExpiresAt) {
		delete(s.data, userID)
		return Challenge{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryChallengeStore) IncrAttempts(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[userID]
	if !ok {
		return 0, ErrNotFound
	}
	c.Attempts++
	s.data[userID] = c
	return c.Attempts, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.data, userID)
	s.mu.Unlock()
	return nil
}
