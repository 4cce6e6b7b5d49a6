package notifysvc

import (
	"context"
	"fmt"

	"github.com/aminofabian/squlll/core"
)

// LogNotifier reports notifications through the logger, at the level matching the notification.
type LogNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notif core.Notification) {
	msg := fmt.Sprintf("%s: %s", notif.Title, notif.Message)
	switch notif.Level {
	case core.LevelError:
		n.logger.Error(msg, notif.Tenant)
	case core.LevelWarning:
		n.logger.Warn(msg, notif.Tenant)
	default:
		n.logger.Info(msg, notif.Tenant)
	}
}

// Multi forwards every notification to each of its notifiers, in order.
type Multi []core.Notifier

var _ core.Notifier = (Multi)(nil)

func (m Multi) Notify(ctx context.Context, notif core.Notification) {
	for _, n := range m {
		n.Notify(ctx, notif)
	}
}
