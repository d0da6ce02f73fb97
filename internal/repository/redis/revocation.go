package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

var (
	_ model.RevocationStore    = (*RevocationCache)(nil)
	_ model.RevocationRecorder = (*RevocationCache)(nil)
)

const (
	keyPrefix    = "auth:revoked:"
	neverRevoked = "0"
)

// recordScript sets KEYS[1] to ARGV[1] with a PX of ARGV[2] unless the
// stored value is already a later timestamp. Values are unpadded decimal
// nanoseconds, so a longer string is the larger number.
var recordScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	if #cur > #ARGV[1] or (#cur == #ARGV[1] and cur >= ARGV[1]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// RevocationCache is a read-through cache of per-user revocation timestamps in
// front of the authoritative store. Redis failures fall back to the store.
//
// Reads only fill a missing entry and Record only moves an entry forward, so
// a read racing a revocation can never leave an older value cached.
type RevocationCache struct {
	client  goredis.UniversalClient
	backing model.RevocationStore
	ttl     time.Duration
	logger  *logger.Logger
}

func NewRevocationCache(client goredis.UniversalClient, backing model.RevocationStore, ttl time.Duration, logger *logger.Logger) *RevocationCache {
	return &RevocationCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		logger:  logger,
	}
}

func cacheKey(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

func (c *RevocationCache) LastRevokedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	key := cacheKey(userID)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		revokedAt, decodeErr := decode(val)
		if decodeErr == nil {
			return revokedAt, nil
		}
		c.logger.Warn("Revocation cache: corrupt entry", "key", key, "error", decodeErr)
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.logger.Warn("Revocation cache: delete failed", "key", key, "error", err)
		}
	case errors.Is(err, goredis.Nil):
	default:
		c.logger.Warn("Revocation cache: get failed, using store", "user_id", userID, "error", err)
		return c.backing.LastRevokedAt(ctx, userID)
	}

	revokedAt, err := c.backing.LastRevokedAt(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.client.SetNX(ctx, key, encode(revokedAt), c.ttl).Err(); err != nil {
		c.logger.Warn("Revocation cache: set failed", "user_id", userID, "error", err)
	}

	return revokedAt, nil
}

// BumpRevocation writes to the store and then records the timestamp. Callers
// that bump inside a transaction use the store directly and call Record after
// commit instead.
func (c *RevocationCache) BumpRevocation(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if err := c.backing.BumpRevocation(ctx, userID, at); err != nil {
		return err
	}
	return c.Record(ctx, userID, at)
}

// Record stores at as the cached revocation timestamp unless a later one is
// already cached. A failure is reported because an older entry would keep
// revoked tokens valid until it expires.
func (c *RevocationCache) Record(ctx context.Context, userID uuid.UUID, at time.Time) error {
	err := recordScript.Run(ctx, c.client, []string{cacheKey(userID)}, encode(&at), c.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to record revocation in cache: %w: %w", model.ErrStoreUnavailable, err)
	}
	return nil
}

func encode(revokedAt *time.Time) string {
	if revokedAt == nil {
		return neverRevoked
	}
	return strconv.FormatInt(revokedAt.UnixNano(), 10)
}

func decode(val string) (*time.Time, error) {
	if val == neverRevoked {
		return nil, nil
	}
	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, err
	}
	t := time.Unix(0, nanos).UTC()
	return &t, nil
}
