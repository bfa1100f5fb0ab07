package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowbeak/syndibot/internal/ratelimit"
)

func newTestThreadsAdapter(t *testing.T, handler http.Handler) (*ThreadsAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := NewThreadsAdapter(ThreadsConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "https://localhost/callback",
		AccessToken:  "tok",
		TokenExpiry:  time.Now().Add(time.Hour),
		RateLimits:   ratelimit.DefaultConfig(),
	})
	adapter.baseURL = server.URL
	adapter.tokenURL = server.URL + "/oauth/access_token"
	adapter.retryPolicy.BaseDelay = 0
	return adapter, server
}

func TestThreadsAdapter_Authenticate(t *testing.T) {
	t.Run("valid unexpired token needs no network", func(t *testing.T) {
		adapter := NewThreadsAdapter(ThreadsConfig{
			AccessToken: "tok",
			TokenExpiry: time.Now().Add(time.Hour),
		})
		require.NoError(t, adapter.Authenticate(context.Background()))
		assert.True(t, adapter.authenticated)
	})

	t.Run("expired token refreshed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/oauth/access_token", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "refresh", r.PostForm.Get("refresh_token"))
			w.Write([]byte(`{"access_token": "fresh", "expires_in": 3600}`))
		}))
		defer server.Close()

		adapter := NewThreadsAdapter(ThreadsConfig{
			ClientID:     "cid",
			ClientSecret: "secret",
			AccessToken:  "stale",
			RefreshToken: "refresh",
			TokenExpiry:  time.Now().Add(-time.Minute),
		})
		adapter.tokenURL = server.URL + "/oauth/access_token"

		require.NoError(t, adapter.Authenticate(context.Background()))
		assert.Equal(t, "fresh", adapter.accessToken)
		assert.True(t, adapter.tokenExpiry.After(time.Now()))
	})

	t.Run("no tokens points to interactive setup", func(t *testing.T) {
		adapter := NewThreadsAdapter(ThreadsConfig{})
		err := adapter.Authenticate(context.Background())

		var aErr *AuthError
		require.ErrorAs(t, err, &aErr)
		assert.Contains(t, err.Error(), "syndibot setup threads")
	})
}

func TestThreadsAdapter_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		w.Write([]byte(`{"access_token": "at", "refresh_token": "rt", "expires_in": 7200}`))
	}))
	defer server.Close()

	adapter := NewThreadsAdapter(ThreadsConfig{ClientID: "cid", ClientSecret: "secret"})
	adapter.tokenURL = server.URL

	require.NoError(t, adapter.ExchangeCode(context.Background(), "the-code"))

	access, refresh, expiry := adapter.Tokens()
	assert.Equal(t, "at", access)
	assert.Equal(t, "rt", refresh)
	assert.True(t, expiry.After(time.Now().Add(time.Hour)))
}

func TestThreadsAdapter_Post(t *testing.T) {
	t.Run("text post", func(t *testing.T) {
		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/me/posts", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "hello threads", r.PostForm.Get("message"))
			assert.Equal(t, "tok", r.PostForm.Get("access_token"))
			assert.Empty(t, r.PostForm.Get("media_id"))
			w.Write([]byte(`{"id": "17890"}`))
		}))

		res := adapter.Post(context.Background(), Request{Content: "hello threads"})
		assert.True(t, res.Success)
		assert.Equal(t, "threads", res.Platform)
		assert.Equal(t, "17890", res.PostID)
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		var calls int
		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"id": "42"}`))
		}))

		res := adapter.Post(context.Background(), Request{Content: "flaky"})
		assert.True(t, res.Success)
		assert.Equal(t, "42", res.PostID)
		assert.Equal(t, 3, calls)
	})

	t.Run("rate limit refusal is immediate and final", func(t *testing.T) {
		var calls int
		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{"id": "1"}`))
		}))

		now := time.Now()
		adapter.limiter = ratelimit.NewWithClock(ratelimit.DefaultConfig(), func() time.Time { return now })
		adapter.limiter.RecordPost()

		res := adapter.Post(context.Background(), Request{Content: "too soon"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "rate limit")
		assert.Zero(t, calls, "a rate-limited post must not reach the network")
	})

	t.Run("successful post recorded against the limit", func(t *testing.T) {
		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id": "1"}`))
		}))

		now := time.Now()
		adapter.limiter = ratelimit.NewWithClock(ratelimit.DefaultConfig(), func() time.Time { return now })

		res := adapter.Post(context.Background(), Request{Content: "first"})
		require.True(t, res.Success)
		assert.False(t, adapter.limiter.CanPost(), "minimum interval must now hold")
	})

	t.Run("failed post not recorded against the limit", func(t *testing.T) {
		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "bad"}`))
		}))

		now := time.Now()
		adapter.limiter = ratelimit.NewWithClock(ratelimit.DefaultConfig(), func() time.Time { return now })

		res := adapter.Post(context.Background(), Request{Content: "doomed"})
		require.False(t, res.Success)
		assert.True(t, adapter.limiter.CanPost(), "a failed post must not consume quota")
	})

	t.Run("single media id", func(t *testing.T) {
		img := writeTestPNG(t, t.TempDir(), 10, 10)

		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/me/media":
				w.Write([]byte(`{"id": "m1"}`))
			case "/me/posts":
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "m1", r.PostForm.Get("media_id"))
				assert.Empty(t, r.PostForm.Get("carousel_media_ids"))
				w.Write([]byte(`{"id": "2"}`))
			}
		}))

		res := adapter.Post(context.Background(), Request{Content: "pic", MediaPaths: []string{img}})
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.MediaCount)
	})

	t.Run("multiple media become a carousel", func(t *testing.T) {
		dir := t.TempDir()
		img := writeTestPNG(t, dir, 10, 10)

		uploads := 0
		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/me/media":
				uploads++
				if uploads == 1 {
					w.Write([]byte(`{"id": "m1"}`))
				} else {
					w.Write([]byte(`{"id": "m2"}`))
				}
			case "/me/posts":
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "m1,m2", r.PostForm.Get("carousel_media_ids"))
				assert.Empty(t, r.PostForm.Get("media_id"))
				w.Write([]byte(`{"id": "3"}`))
			}
		}))

		res := adapter.Post(context.Background(), Request{Content: "pics", MediaPaths: []string{img, img}})
		assert.True(t, res.Success)
		assert.Equal(t, 2, res.MediaCount)
	})

	t.Run("invalid media fails before upload", func(t *testing.T) {
		var calls int
		adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))

		res := adapter.Post(context.Background(), Request{Content: "x", MediaPaths: []string{"/missing.png"}})
		assert.False(t, res.Success)
		assert.Zero(t, calls)
	})
}

func TestThreadsAdapter_Reply(t *testing.T) {
	adapter, _ := newTestThreadsAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/17890/replies", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "nice thread", r.PostForm.Get("message"))
		w.Write([]byte(`{"id": "17891"}`))
	}))

	res := adapter.Reply(context.Background(), "17890", Request{Content: "nice thread"})
	assert.True(t, res.Success)
	assert.Equal(t, "17891", res.PostID)
}
