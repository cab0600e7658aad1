package storage

import "time"

type AllowedGroup struct {
	GroupID int64
	AddedBy int64
	AddedAt time.Time
}

// UsageRecord is one append-only audit row. GroupID is nil for actions
// taken in a private chat.
type UsageRecord struct {
	UserID    int64
	Username  string
	FirstName string
	GroupID   *int64
	Command   string
}

type GroupStats struct {
	GroupID       int64
	TotalCommands int64
	LastActive    time.Time
}
