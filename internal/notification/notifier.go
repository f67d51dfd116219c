package notification

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// Notifier delivers provider-facing messages. Delivery is fire-and-forget:
// callers must never let a send failure roll back a ledger mutation.
type Notifier interface {
	Notify(ctx context.Context, providerID snowflake.ID, subject, body string) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, providerID snowflake.ID, subject, body string) error {
	return nil
}

// LogNotifier records the message on the structured log. The outbound
// delivery transport lives outside this service; this is the boundary.
type LogNotifier struct {
	log    *zap.Logger
	sender string
}

func NewLogNotifier(log *zap.Logger, sender string) *LogNotifier {
	return &LogNotifier{
		log:    log.Named("notification"),
		sender: sender,
	}
}

func (n *LogNotifier) Notify(ctx context.Context, providerID snowflake.ID, subject, body string) error {
	n.log.Info("provider notification",
		zap.String("provider_id", providerID.String()),
		zap.String("sender", n.sender),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
