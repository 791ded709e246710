package database

import (
	"time"
)

// SentRecord is the persistent mark that an article was delivered. At most one
// record exists per hash; inserting a duplicate is a no-op.
type SentRecord struct {
	ID         int64
	Hash       string
	GUID       string
	Title      string
	Link       string
	SentAt     time.Time
	MessageID  string
	FeedSource string
}

// FailureRecord tracks delivery failures per hash with upsert semantics:
// repeated failures increment RetryCount and overwrite the error and timestamp.
type FailureRecord struct {
	ID           int64
	Hash         string
	ErrorMessage string
	RetryCount   int
	LastRetry    time.Time
	Resolved     bool
}

// Stats is the read-only aggregate exposed for operational visibility.
type Stats struct {
	TotalSent       int `json:"total_sent"`
	PendingFailures int `json:"pending_failures"`
	SentLastHour    int `json:"sent_last_hour"`
}
