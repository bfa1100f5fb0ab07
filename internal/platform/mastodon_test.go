package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMastodonAdapter_Name(t *testing.T) {
	adapter := NewMastodonAdapter(MastodonConfig{})
	assert.Equal(t, Mastodon, adapter.Name())
}

func TestMastodonAdapter_Authenticate(t *testing.T) {
	t.Run("missing token fails without network", func(t *testing.T) {
		adapter := NewMastodonAdapter(MastodonConfig{Server: "https://example.invalid"})
		err := adapter.Authenticate(context.Background())

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("valid token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/accounts/verify_credentials", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id": "1", "username": "bot"}`))
		}))
		defer server.Close()

		adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "tok"})
		require.NoError(t, adapter.Authenticate(context.Background()))
		assert.True(t, adapter.authenticated)
	})

	t.Run("rejected token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "bad"})
		var aErr *AuthError
		require.ErrorAs(t, adapter.Authenticate(context.Background()), &aErr)
	})
}

func TestMastodonAdapter_Post(t *testing.T) {
	t.Run("posts formatted status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/statuses", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "line one\n\nline two", r.PostForm.Get("status"))
			assert.Equal(t, "public", r.PostForm.Get("visibility"))
			w.Write([]byte(`{"id": "109", "url": "https://mastodon.example/@bot/109"}`))
		}))
		defer server.Close()

		adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "tok"})
		adapter.authenticated = true

		res := adapter.Post(context.Background(), Request{Content: "line one\n\n\nline two\n"})
		assert.True(t, res.Success)
		assert.Equal(t, "mastodon", res.Platform)
		assert.Equal(t, "109", res.PostID)
		assert.Equal(t, "https://mastodon.example/@bot/109", res.URL)
		assert.False(t, res.HasMedia)
	})

	t.Run("long content truncated to limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			status := r.PostForm.Get("status")
			assert.Equal(t, MastodonMaxLength, utf8.RuneCountInString(status))
			assert.True(t, strings.HasSuffix(status, "..."))
			w.Write([]byte(`{"id": "1"}`))
		}))
		defer server.Close()

		adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "tok"})
		adapter.authenticated = true

		res := adapter.Post(context.Background(), Request{Content: strings.Repeat("x", 600)})
		assert.True(t, res.Success)
	})

	t.Run("custom visibility", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "unlisted", r.PostForm.Get("visibility"))
			w.Write([]byte(`{"id": "2"}`))
		}))
		defer server.Close()

		adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "tok"})
		adapter.authenticated = true

		res := adapter.Post(context.Background(), Request{Content: "hi", Visibility: "unlisted"})
		assert.True(t, res.Success)
	})

	t.Run("media uploaded before status", func(t *testing.T) {
		img := writeTestPNG(t, t.TempDir(), 10, 10)

		var uploads, statuses int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v2/media":
				uploads++
				require.Zero(t, statuses, "media must be uploaded before the status")
				w.Write([]byte(`{"id": "m1"}`))
			case "/api/v1/statuses":
				statuses++
				require.NoError(t, r.ParseForm())
				assert.Equal(t, []string{"m1"}, r.PostForm["media_ids[]"])
				w.Write([]byte(`{"id": "3"}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "tok"})
		adapter.authenticated = true

		res := adapter.Post(context.Background(), Request{Content: "with pic", MediaPaths: []string{img}})
		assert.True(t, res.Success)
		assert.True(t, res.HasMedia)
		assert.Equal(t, 1, res.MediaCount)
		assert.Equal(t, 1, uploads)
	})

	t.Run("invalid media fails before network", func(t *testing.T) {
		adapter := NewMastodonAdapter(MastodonConfig{Server: "https://example.invalid", AccessToken: "tok"})
		adapter.authenticated = true

		res := adapter.Post(context.Background(), Request{Content: "x", MediaPaths: []string{"/nope.jpg"}})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "not found")
	})

	t.Run("auth expiry marks adapter unauthenticated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "tok"})
		adapter.authenticated = true
		adapter.retryPolicy.BaseDelay = 0

		res := adapter.Post(context.Background(), Request{Content: "x"})
		assert.False(t, res.Success)
		assert.False(t, adapter.authenticated)
	})
}

func TestMastodonAdapter_CheckStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/instance", r.URL.Path)
		w.Write([]byte(`{"uri": "mastodon.example"}`))
	}))
	defer server.Close()

	adapter := NewMastodonAdapter(MastodonConfig{Server: server.URL, AccessToken: "tok"})
	assert.True(t, adapter.CheckStatus(context.Background()))
}
