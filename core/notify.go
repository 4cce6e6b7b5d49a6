package core

import "context"

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

type (
	Notification struct {
		Tenant  Tenant
		Level   NotificationLevel
		Title   string
		Message string
	}

	// Notifier is the notification surface workflows report their summaries to.
	Notifier interface {
		Notify(ctx context.Context, n Notification)
	}
)

// LevelFor picks the notification level of a batch from its success and failure counts.
func LevelFor(succeeded, failed int) NotificationLevel {
	switch {
	case failed == 0:
		return LevelSuccess
	case succeeded > 0:
		return LevelWarning
	default:
		return LevelError
	}
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}
