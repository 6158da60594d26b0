package deferred

import "time"

// Deletion is a notification message due to be removed.
type Deletion struct {
	ID        int64
	ChatID    string
	MessageID string
	DeleteAt  time.Time
	CreatedAt time.Time
}
