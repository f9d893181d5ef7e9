package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Token purposes.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposePasswordReset = "password_reset"
)

// ErrTokenInvalid is returned for unknown, expired or already used tokens.
var ErrTokenInvalid = errors.New("token is invalid or expired")

// TokenStore issues single-use tokens and tracks revoked sessions.
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func tokenKey(purpose, token string) string { return "token:" + purpose + ":" + token }

func revokedKey(sessionID string) string { return "session:revoked:" + sessionID }

// Issue creates a random token bound to userID that expires after ttl.
func (s *TokenStore) Issue(ctx context.Context, purpose, userID string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("TokenStore.Issue: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := s.rdb.Set(ctx, tokenKey(purpose, token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("TokenStore.Issue: %w", err)
	}
	return token, nil
}

// Consume returns the user bound to the token and deletes it.
func (s *TokenStore) Consume(ctx context.Context, purpose, token string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, tokenKey(purpose, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("TokenStore.Consume: %w", err)
	}
	return userID, nil
}

// RevokeSession marks a session id as signed out for ttl.
func (s *TokenStore) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedKey(sessionID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("TokenStore.RevokeSession: %w", err)
	}
	return nil
}

func (s *TokenStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("TokenStore.IsRevoked: %w", err)
	}
	return n > 0, nil
}
