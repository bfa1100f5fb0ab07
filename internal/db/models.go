package db

import (
	"database/sql"
	"time"
)

// Post statuses follow the lifecycle pending -> posted | failed.
const (
	StatusPending = "pending"
	StatusPosted  = "posted"
	StatusFailed  = "failed"
)

// ContentSource is a piece of source material that posts are derived from.
type ContentSource struct {
	ID          int64
	SourceType  string
	Category    sql.NullString
	URL         sql.NullString
	Title       sql.NullString
	ContentHash string
	CreatedAt   time.Time
	ProcessedAt sql.NullTime
}

// PostHistory is one posting attempt, created before the network call and
// updated with the outcome afterwards.
type PostHistory struct {
	ID             int64
	SourceID       sql.NullInt64
	Platform       string
	Content        string
	ContentHash    string
	PlatformPostID sql.NullString
	URL            sql.NullString
	Status         string
	ErrorMessage   sql.NullString
	PostedAt       sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
