package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	t.Run("starts pending with a content hash", func(t *testing.T) {
		post, err := store.CreatePost(ctx, CreatePostParams{
			Platform: "mastodon",
			Content:  "first post",
		})
		require.NoError(t, err)

		assert.NotZero(t, post.ID)
		assert.Equal(t, StatusPending, post.Status)
		assert.Len(t, post.ContentHash, 32)
		assert.False(t, post.SourceID.Valid)
	})

	t.Run("requires platform and content", func(t *testing.T) {
		_, err := store.CreatePost(ctx, CreatePostParams{Content: "x"})
		assert.ErrorContains(t, err, "platform is required")

		_, err = store.CreatePost(ctx, CreatePostParams{Platform: "devto"})
		assert.ErrorContains(t, err, "content is required")
	})

	t.Run("links a content source", func(t *testing.T) {
		source, err := store.CreateContentSource(ctx, CreateContentSourceParams{
			Category: "engineering",
			Title:    "Release notes",
		})
		require.NoError(t, err)

		post, err := store.CreatePost(ctx, CreatePostParams{
			Platform: "devto",
			Content:  "derived post",
			SourceID: source.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, source.ID, post.SourceID.Int64)
	})
}

func TestUpdatePostStatus(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	t.Run("posted stamps posted_at and platform id", func(t *testing.T) {
		post, err := store.CreatePost(ctx, CreatePostParams{Platform: "mastodon", Content: "c"})
		require.NoError(t, err)

		err = store.UpdatePostStatus(ctx, UpdatePostStatusParams{
			ID:             post.ID,
			Status:         StatusPosted,
			PlatformPostID: "109",
			URL:            "https://mastodon.example/@bot/109",
		})
		require.NoError(t, err)

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPosted, got.Status)
		assert.Equal(t, "109", got.PlatformPostID.String)
		assert.True(t, got.PostedAt.Valid)
		assert.WithinDuration(t, time.Now().UTC(), got.PostedAt.Time, time.Minute)
	})

	t.Run("failed records the error message", func(t *testing.T) {
		post, err := store.CreatePost(ctx, CreatePostParams{Platform: "devto", Content: "c"})
		require.NoError(t, err)

		err = store.UpdatePostStatus(ctx, UpdatePostStatusParams{
			ID:           post.ID,
			Status:       StatusFailed,
			ErrorMessage: "status 502",
		})
		require.NoError(t, err)

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, "status 502", got.ErrorMessage.String)
		assert.False(t, got.PostedAt.Valid)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		err := store.UpdatePostStatus(ctx, UpdatePostStatusParams{ID: 1, Status: "maybe"})
		assert.ErrorContains(t, err, "invalid status")
	})

	t.Run("rejects unknown post", func(t *testing.T) {
		err := store.UpdatePostStatus(ctx, UpdatePostStatusParams{ID: 99999, Status: StatusPosted})
		assert.ErrorContains(t, err, "not found")
	})
}

func TestGetPostHistory(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	mastodon, err := store.CreatePost(ctx, CreatePostParams{Platform: "mastodon", Content: "a"})
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, CreatePostParams{Platform: "devto", Content: "b"})
	require.NoError(t, err)

	require.NoError(t, store.UpdatePostStatus(ctx, UpdatePostStatusParams{
		ID: mastodon.ID, Status: StatusPosted,
	}))

	t.Run("no filters returns everything", func(t *testing.T) {
		posts, err := store.GetPostHistory(ctx, GetPostHistoryParams{})
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	})

	t.Run("platform filter", func(t *testing.T) {
		posts, err := store.GetPostHistory(ctx, GetPostHistoryParams{Platform: "devto"})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "devto", posts[0].Platform)
	})

	t.Run("status filter", func(t *testing.T) {
		posts, err := store.GetPostHistory(ctx, GetPostHistoryParams{Status: StatusPosted})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, mastodon.ID, posts[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		posts, err := store.GetPostHistory(ctx, GetPostHistoryParams{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	})
}

func TestCountPostsToday(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	post, err := store.CreatePost(ctx, CreatePostParams{Platform: "threads", Content: "x"})
	require.NoError(t, err)
	require.NoError(t, store.UpdatePostStatus(ctx, UpdatePostStatusParams{
		ID: post.ID, Status: StatusPosted,
	}))

	// A pending post must not count.
	_, err = store.CreatePost(ctx, CreatePostParams{Platform: "threads", Content: "y"})
	require.NoError(t, err)

	n, err := store.CountPostsToday(ctx, "threads")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.CountPostsToday(ctx, "mastodon")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHashContent(t *testing.T) {
	now := time.Now()
	h1 := HashContent("same text", now)
	h2 := HashContent("same text", now.Add(time.Second))

	assert.Len(t, h1, 32)
	assert.NotEqual(t, h1, h2, "same text at different times must hash differently")
	assert.Equal(t, h1, HashContent("same text", now))
}
