package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token,
// so an expired lock re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles the quote-and-accept lock in Redis.
type LockStore struct {
	client *redis.Client
	owner  string
}

// NewLockStore creates a LockStore with a per-process owner token.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client, owner: uuid.New().String()}
}

// AcceptLockKey returns the Redis key of an appointment's accept lock.
func AcceptLockKey(appointmentID string) string {
	return "lock:accept:" + appointmentID
}

// AcquireAcceptLock attempts to acquire the quote-and-accept lock of an appointment.
// Returns false if another rider is already quoting it.
func (s *LockStore) AcquireAcceptLock(ctx context.Context, appointmentID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, AcceptLockKey(appointmentID), s.owner, ttl).Result()
}

// ReleaseAcceptLock releases the accept lock if this process still owns it.
func (s *LockStore) ReleaseAcceptLock(ctx context.Context, appointmentID string) error {
	return releaseScript.Run(ctx, s.client, []string{AcceptLockKey(appointmentID)}, s.owner).Err()
}
