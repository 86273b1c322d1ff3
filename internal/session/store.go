package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no live session matches a token hash.
var ErrNotFound = errors.New("session not found")

// Store persists sessions keyed by the SHA-256 hash of the raw token.
type Store interface {
	Create(ctx context.Context, s domain.Session) error
	// Get returns ErrNotFound for unknown and expired sessions.
	Get(ctx context.Context, tokenHash string) (*domain.Session, error)
	// Delete is a no-op for unknown hashes.
	Delete(ctx context.Context, tokenHash string) error
	// DeleteExpired removes expired sessions and reports how many went.
	DeleteExpired(ctx context.Context) (int64, error)
}

// =============================================================================
// Postgres
// =============================================================================

// PostgresStore keeps sessions in the sessions table.
type PostgresStore struct {
	queries *repository.Queries
}

// NewPostgresStore creates a Store backed by the sessions table.
func NewPostgresStore(queries *repository.Queries) *PostgresStore {
	return &PostgresStore{queries: queries}
}

func (s *PostgresStore) Create(ctx context.Context, sess domain.Session) error {
	_, err := s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    sess.UserID,
		TokenHash: sess.TokenHash,
		ExpiresAt: sess.ExpiresAt,
	})
	return err
}

func (s *PostgresStore) Get(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row, err := s.queries.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sess := &domain.Session{
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}
	if sess.IsExpired() {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	return s.queries.DeleteSession(ctx, tokenHash)
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	return s.queries.DeleteExpiredSessions(ctx)
}

// =============================================================================
// Redis
// =============================================================================

// RedisPrefix is the key prefix for session records.
//
//	Key:   session:<token hash>
//	Value: <user id>
//	TTL:   remaining session lifetime
const RedisPrefix = "session:"

// RedisStore keeps sessions as expiring Redis keys.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a Store using the provided Redis client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", sess.ExpiresAt)
	}
	return s.client.Set(ctx, RedisPrefix+sess.TokenHash, sess.UserID.String(), ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, tokenHash string) (*domain.Session, error) {
	key := RedisPrefix + tokenHash

	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	raw, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}

	sess := &domain.Session{UserID: userID, TokenHash: tokenHash}
	if ttl := ttlCmd.Val(); ttl > 0 {
		sess.ExpiresAt = time.Now().Add(ttl)
	}
	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, RedisPrefix+tokenHash).Err()
}

// DeleteExpired is a no-op: Redis expires keys on its own.
func (s *RedisStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
