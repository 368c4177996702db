package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultCapacity is the number of undelivered notifications kept by a Feed.
const DefaultCapacity = 50

// Notification is a transient, user-visible message.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier raises user-visible notifications.
type Notifier interface {
	// Success raises a confirmation message.
	Success(message string)

	// Error raises an error message.
	Error(message string)
}

// Feed is a Notifier that queues notifications until the UI drains them.
// It is safe for concurrent use.
type Feed struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	now      func() time.Time
	logger   zerolog.Logger
}

// NewFeed creates a feed holding at most capacity undelivered notifications.
// When full, the oldest notification is dropped.
func NewFeed(capacity int, logger zerolog.Logger) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		capacity: capacity,
		now:      time.Now,
		logger:   logger.With().Str("component", "notifications").Logger(),
	}
}

// Success raises a confirmation message.
func (f *Feed) Success(message string) {
	f.logger.Info().Str("level", string(LevelSuccess)).Msg(message)
	f.push(LevelSuccess, message)
}

// Error raises an error message.
func (f *Feed) Error(message string) {
	f.logger.Warn().Str("level", string(LevelError)).Msg(message)
	f.push(LevelError, message)
}

func (f *Feed) push(level Level, message string) {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: f.now(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) >= f.capacity {
		dropped := len(f.items) - f.capacity + 1
		f.items = append(f.items[:0], f.items[dropped:]...)
	}
	f.items = append(f.items, n)
}

// Drain returns all pending notifications in the order they were raised and
// clears the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.items
	f.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Pending returns the number of notifications not yet drained.
func (f *Feed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
