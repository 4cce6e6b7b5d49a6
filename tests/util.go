package testutil

import (
	"context"
	"fmt"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/aminofabian/squlll/core"
)

// Validator returns a validator and its translator, with every custom validation registered.
func Validator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	return core.NewValidator(translator), translator
}

// Logger records every message it receives.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			msg += ": " + err.Error()
		}
	}
	l.Messages = append(l.Messages, fmt.Sprintf("[%s] %s", level, msg))
}

// Lines returns a copy of the recorded messages.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.Messages...)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args...) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args...) }

// Notifier records every notification it receives.
type Notifier struct {
	mu            sync.Mutex
	Notifications []core.Notification
}

var _ core.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(_ context.Context, notif core.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notifications = append(n.Notifications, notif)
}

func (n *Notifier) All() []core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Notification{}, n.Notifications...)
}

// Levels returns the level of every notification received, in order.
func (n *Notifier) Levels() []core.NotificationLevel {
	n.mu.Lock()
	defer n.mu.Unlock()
	levels := make([]core.NotificationLevel, 0, len(n.Notifications))
	for _, notif := range n.Notifications {
		levels = append(levels, notif.Level)
	}
	return levels
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }
