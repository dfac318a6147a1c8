// Package notify provides user-facing notifications for the import flow.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Summary returns the default headline shown with a message of this level.
func (l Level) Summary() string {
	switch l {
	case LevelSuccess:
		return "Success"
	case LevelWarn:
		return "Warning"
	case LevelError:
		return "Error"
	default:
		return "Info"
	}
}

// Notification is a single message delivered to the user
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Summary string    `json:"summary"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier delivers messages to the user. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// Service logs every notification and fans it out to subscribers.
type Service struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs []chan Notification
}

// NewService creates a notification service
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// Notify implements Notifier
func (s *Service) Notify(ctx context.Context, level Level, message string) {
	n := Notification{
		Level:   level,
		Message: message,
		Summary: level.Summary(),
		SentAt:  time.Now(),
	}

	s.logger.LogAttrs(ctx, logLevel(level), "notification",
		slog.String("level", string(level)),
		slog.String("message", message),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- n:
		default:
			// Slow subscribers miss notifications rather than block the flow.
		}
	}
}

// Subscribe returns a buffered channel receiving every subsequent
// notification and a function that ends the subscription.
func (s *Service) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Notification, buffer)

	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, c := range s.subs {
				if c == ch {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// Notify implements Notifier
func (r *Recorder) Notify(_ context.Context, level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{
		Level:   level,
		Message: message,
		Summary: level.Summary(),
		SentAt:  time.Now(),
	})
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notifications) == 0 {
		return Notification{}, false
	}
	return r.notifications[len(r.notifications)-1], true
}

func logLevel(level Level) slog.Level {
	switch level {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
