package db

import (
	"context"
	"crypto/md5"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBTX is the interface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the prepared query methods.
type Queries struct {
	db DBTX
}

// New creates a Queries instance.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// HashContent derives the dedup hash for a piece of content and its creation
// time, so identical text posted at different times hashes differently.
func HashContent(content string, createdAt time.Time) string {
	sum := md5.Sum([]byte(content + "-" + createdAt.UTC().Format(time.RFC3339Nano)))
	return fmt.Sprintf("%x", sum)
}

// CreateContentSourceParams are the inputs for CreateContentSource.
type CreateContentSourceParams struct {
	SourceType string
	Category   string
	URL        string
	Title      string
}

// CreateContentSource inserts a content source and returns it.
func (q *Queries) CreateContentSource(ctx context.Context, params CreateContentSourceParams) (ContentSource, error) {
	sourceType := params.SourceType
	if sourceType == "" {
		sourceType = "generated"
	}
	now := time.Now().UTC()
	hash := HashContent(params.Title+params.URL, now)

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO content_sources (source_type, category, url, title, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sourceType, nullString(params.Category), nullString(params.URL), nullString(params.Title), hash, now)
	if err != nil {
		return ContentSource{}, fmt.Errorf("insert content source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return ContentSource{}, fmt.Errorf("content source id: %w", err)
	}

	return ContentSource{
		ID:          id,
		SourceType:  sourceType,
		Category:    nullString(params.Category),
		URL:         nullString(params.URL),
		Title:       nullString(params.Title),
		ContentHash: hash,
		CreatedAt:   now,
	}, nil
}

// CreatePostParams are the inputs for CreatePost.
type CreatePostParams struct {
	Platform string
	Content  string
	SourceID int64 // 0 means no source
}

// CreatePost records a pending post before the adapter is invoked.
func (q *Queries) CreatePost(ctx context.Context, params CreatePostParams) (PostHistory, error) {
	if params.Platform == "" {
		return PostHistory{}, fmt.Errorf("platform is required")
	}
	if params.Content == "" {
		return PostHistory{}, fmt.Errorf("content is required")
	}

	now := time.Now().UTC()
	hash := HashContent(params.Content, now)

	var sourceID sql.NullInt64
	if params.SourceID != 0 {
		sourceID = sql.NullInt64{Int64: params.SourceID, Valid: true}
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO post_history (source_id, platform, content, content_hash, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sourceID, params.Platform, params.Content, hash, StatusPending, now, now)
	if err != nil {
		return PostHistory{}, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return PostHistory{}, fmt.Errorf("post id: %w", err)
	}

	return PostHistory{
		ID:          id,
		SourceID:    sourceID,
		Platform:    params.Platform,
		Content:     params.Content,
		ContentHash: hash,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdatePostStatusParams are the inputs for UpdatePostStatus.
type UpdatePostStatusParams struct {
	ID             int64
	Status         string
	ErrorMessage   string
	PlatformPostID string
	URL            string
}

// UpdatePostStatus records the outcome of a posting attempt. A transition to
// "posted" also stamps posted_at.
func (q *Queries) UpdatePostStatus(ctx context.Context, params UpdatePostStatusParams) error {
	switch params.Status {
	case StatusPending, StatusPosted, StatusFailed:
	default:
		return fmt.Errorf("invalid status %q", params.Status)
	}

	now := time.Now().UTC()
	var postedAt sql.NullTime
	if params.Status == StatusPosted {
		postedAt = sql.NullTime{Time: now, Valid: true}
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE post_history
		SET status = ?, error_message = ?, platform_post_id = ?, url = ?,
		    posted_at = COALESCE(?, posted_at), updated_at = ?
		WHERE id = ?
	`, params.Status, nullString(params.ErrorMessage), nullString(params.PlatformPostID),
		nullString(params.URL), postedAt, now, params.ID)
	if err != nil {
		return fmt.Errorf("update post status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("post %d not found", params.ID)
	}
	return nil
}

// GetPostHistoryParams filter the history listing. Zero values mean no
// filter; Days limits to posts created in the last N days.
type GetPostHistoryParams struct {
	Platform string
	Status   string
	Days     int
	Limit    int
}

// GetPostHistory returns posting attempts, newest first.
func (q *Queries) GetPostHistory(ctx context.Context, params GetPostHistoryParams) ([]PostHistory, error) {
	var conds []string
	var args []any

	if params.Platform != "" {
		conds = append(conds, "platform = ?")
		args = append(args, params.Platform)
	}
	if params.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, params.Status)
	}
	if params.Days > 0 {
		conds = append(conds, "created_at >= ?")
		args = append(args, time.Now().UTC().AddDate(0, 0, -params.Days))
	}

	query := `
		SELECT id, source_id, platform, content, content_hash, platform_post_id,
		       url, status, error_message, posted_at, created_at, updated_at
		FROM post_history
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if params.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, params.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query post history: %w", err)
	}
	defer rows.Close()

	var posts []PostHistory
	for rows.Next() {
		var p PostHistory
		if err := rows.Scan(&p.ID, &p.SourceID, &p.Platform, &p.Content, &p.ContentHash,
			&p.PlatformPostID, &p.URL, &p.Status, &p.ErrorMessage,
			&p.PostedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// GetPost returns one posting attempt by id.
func (q *Queries) GetPost(ctx context.Context, id int64) (PostHistory, error) {
	var p PostHistory
	err := q.db.QueryRowContext(ctx, `
		SELECT id, source_id, platform, content, content_hash, platform_post_id,
		       url, status, error_message, posted_at, created_at, updated_at
		FROM post_history WHERE id = ?
	`, id).Scan(&p.ID, &p.SourceID, &p.Platform, &p.Content, &p.ContentHash,
		&p.PlatformPostID, &p.URL, &p.Status, &p.ErrorMessage,
		&p.PostedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return PostHistory{}, fmt.Errorf("get post %d: %w", id, err)
	}
	return p, nil
}

// CountPostsToday counts successful posts for a platform since local
// midnight UTC.
func (q *Queries) CountPostsToday(ctx context.Context, platform string) (int64, error) {
	y, m, d := time.Now().UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM post_history
		WHERE platform = ? AND status = ? AND posted_at >= ?
	`, platform, StatusPosted, midnight).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
