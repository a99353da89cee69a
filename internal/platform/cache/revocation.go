package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// RevocationList marks user identifiers whose outstanding bearer tokens must
// no longer authenticate (e.g. after account deletion). Entries expire with
// the token validity window, after which no live token can reference the id.
type RevocationList struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRevocationList(rdb *redis.Client, ttl time.Duration) *RevocationList {
	return &RevocationList{rdb: rdb, ttl: ttl}
}

func (l *RevocationList) Revoke(ctx context.Context, userID string) error {
	return l.rdb.Set(ctx, revokedKeyPrefix+userID, 1, l.ttl).Err()
}

func (l *RevocationList) IsRevoked(ctx context.Context, userID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, revokedKeyPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
