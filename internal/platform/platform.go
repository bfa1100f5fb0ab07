package platform

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Name identifies a destination network.
type Name string

const (
	DevTo    Name = "devto"
	Mastodon Name = "mastodon"
	Threads  Name = "threads"
	LinkedIn Name = "linkedin"
	Twitter  Name = "twitter"
)

// Request carries the content to publish plus optional platform-specific
// metadata. Fields that a platform does not understand are ignored by its
// adapter.
type Request struct {
	Content string

	// MediaPaths are local files to attach, for platforms that support media.
	MediaPaths []string

	// Title and Tags apply to article platforms (Dev.to).
	Title string
	Tags  []string

	// Visibility applies to Mastodon ("public", "unlisted", "private").
	Visibility string
}

// Result is the structured outcome of every adapter call. The JSON shape is
// stable; downstream storage and reporting match on these field names.
type Result struct {
	Success    bool   `json:"success"`
	Platform   string `json:"platform,omitempty"`
	PostID     string `json:"post_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Error      string `json:"error,omitempty"`
	HasMedia   bool   `json:"has_media,omitempty"`
	MediaCount int    `json:"media_count,omitempty"`
}

// Platform is the contract every adapter implements. Post never returns a
// raw error: failures of any kind surface as a Result with Success=false.
type Platform interface {
	// Name returns the platform identifier.
	Name() Name

	// Authenticate establishes or refreshes the adapter's session. It
	// returns a nil error only when the adapter is ready to post.
	Authenticate(ctx context.Context) error

	// Post publishes content to the platform.
	Post(ctx context.Context, req Request) Result

	// CheckStatus is a lightweight liveness probe. It never errors.
	CheckStatus(ctx context.Context) bool
}

// failure builds a failed Result for a platform.
func failure(name Name, err error) Result {
	return Result{Success: false, Platform: string(name), Error: err.Error()}
}

// logPostMetrics emits the per-attempt metrics entry every adapter records.
// Content length is counted in runes, matching the platform limits.
func logPostMetrics(name Name, content string, success bool, mediaCount int) {
	slog.Info("post metrics",
		"timestamp", time.Now().UTC().Format(time.RFC3339),
		"platform", name,
		"content_length", utf8.RuneCountInString(content),
		"success", success,
		"media_count", mediaCount,
	)
}
