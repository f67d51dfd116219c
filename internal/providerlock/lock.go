package providerlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const withdrawalKeyFormat = "urbanease:withdrawal:provider:%s"

var ErrLockHeld = errors.New("withdrawal_in_progress")

// Locker serializes withdrawal allocation per provider across instances.
// The database row locks remain the in-transaction guarantee; this lock
// rejects a second in-flight request early instead of letting it block.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// AcquireWithdrawal takes the provider's withdrawal lock. When no redis
// client is configured the locker is nil and acquisition is a no-op.
func (l *Locker) AcquireWithdrawal(ctx context.Context, providerID snowflake.ID, ttl time.Duration) (string, error) {
	if l == nil || l.client == nil {
		return "", nil
	}
	if ttl <= 0 {
		return "", errors.New("lock ttl must be positive")
	}

	key := fmt.Sprintf(withdrawalKeyFormat, providerID.String())
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

func (l *Locker) ReleaseWithdrawal(ctx context.Context, providerID snowflake.ID, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	key := fmt.Sprintf(withdrawalKeyFormat, providerID.String())
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
