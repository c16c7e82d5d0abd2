// Package session stores refresh sessions and revoked access-token ids.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound means the refresh token is unknown, expired or already used.
var ErrNotFound = errors.New("session not found or expired")

// Data is what a refresh token resolves to.
type Data struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is implemented by RedisStore and MemoryStore. Token hashes, never
// raw tokens, are passed in.
type Store interface {
	SaveRefresh(ctx context.Context, tokenHash string, data Data, expiresAt time.Time) error
	// ConsumeRefresh returns the session and deletes it in one step, so a
	// refresh token can be rotated at most once.
	ConsumeRefresh(ctx context.Context, tokenHash string) (Data, error)
	RevokeRefresh(ctx context.Context, tokenHash string) error
	RevokeAccess(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessRevoked(ctx context.Context, jti string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

const defaultRefreshTTL = 30 * 24 * time.Hour

func ttlUntil(expiresAt time.Time, fallback time.Duration) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fallback
	}
	return ttl
}
