package notification

import (
	"github.com/urbanease/urbanease/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Notifier {
	if !cfg.Notification.Enabled {
		return NoopNotifier{}
	}
	return NewLogNotifier(log, cfg.Notification.Sender)
}
