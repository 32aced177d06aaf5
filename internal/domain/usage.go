package domain

import "time"

// EventType is the action recorded in a usage log entry.
type EventType string

const (
	EventSwitch  EventType = "switch"
	EventMessage EventType = "message"
	EventError   EventType = "error"
	EventDenial  EventType = "denial"
)

// UsageEntry is one append-only usage log record. Entries are written for
// analytics only and are never read back by the routing logic.
type UsageEntry struct {
	BotInstance    string
	UserID         string
	FunctionName   string
	Event          EventType
	MessagePreview string
	Metadata       map[string]any
	CreatedAt      time.Time
}

// UserStats aggregates usage log entries for a single user.
type UserStats struct {
	MessageCount int
	ByFunction   map[string]int
	LastActive   *time.Time
}

// FunctionStats aggregates usage log entries for a single function.
type FunctionStats struct {
	MessageCount int
	UniqueUsers  int
	ErrorCount   int
}
