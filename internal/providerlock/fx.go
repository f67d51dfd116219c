package providerlock

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/urbanease/urbanease/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("provider.lock",
	fx.Provide(NewFromConfig),
)

// NewFromConfig builds the locker when redis is configured; otherwise the
// returned nil locker degrades to single-instance operation.
func NewFromConfig(cfg config.Config) *Locker {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})
	return NewLocker(client)
}
