package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"path/filepath"
	"time"

	"github.com/hollowbeak/syndibot/internal/browser"
	"github.com/hollowbeak/syndibot/internal/ratelimit"
	"github.com/hollowbeak/syndibot/internal/retry"
)

const threadsWebURL = "https://www.threads.net"

// ThreadsBrowserAdapter publishes to Threads by driving the web UI with an
// Instagram login. Each authenticate or post operation opens a fresh browser
// session and closes it on every exit path.
type ThreadsBrowserAdapter struct {
	httpClient *http.Client
	newSession browser.Factory

	username string
	password string

	authenticated bool
	limiter       *ratelimit.Limiter
	retryPolicy   retry.Policy
}

// ThreadsBrowserConfig holds configuration for the browser-driven adapter.
type ThreadsBrowserConfig struct {
	Username   string
	Password   string
	RateLimits ratelimit.Config
}

// NewThreadsBrowserAdapter creates a browser-driven Threads adapter. The
// factory opens exclusive automation sessions; tests inject a fake.
func NewThreadsBrowserAdapter(cfg ThreadsBrowserConfig, factory browser.Factory) *ThreadsBrowserAdapter {
	jar, _ := cookiejar.New(nil)
	policy := retry.DefaultPolicy()
	policy.Retryable = IsTransient
	return &ThreadsBrowserAdapter{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		newSession:  factory,
		username:    cfg.Username,
		password:    cfg.Password,
		limiter:     ratelimit.New(cfg.RateLimits),
		retryPolicy: policy,
	}
}

// Name returns the platform identifier.
func (t *ThreadsBrowserAdapter) Name() Name {
	return Threads
}

// Authenticate logs in to Instagram through a browser session and harvests
// the session cookies. Missing credentials fail before any session opens.
func (t *ThreadsBrowserAdapter) Authenticate(ctx context.Context) error {
	if t.username == "" || t.password == "" {
		return &ValidationError{Platform: Threads, Reason: "missing Instagram credentials"}
	}
	if t.newSession == nil {
		return &ValidationError{Platform: Threads, Reason: "no browser automation backend configured"}
	}

	session, err := t.newSession(ctx)
	if err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	defer session.Close()

	if err := session.Navigate(ctx, "https://www.instagram.com/accounts/login/"); err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	if err := session.WaitVisible(ctx, `input[name="username"]`); err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	if err := session.Fill(ctx, `input[name="username"]`, t.username); err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	if err := session.Fill(ctx, `input[name="password"]`, t.password); err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	if err := session.Click(ctx, `button[type="submit"]`); err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}

	// A "save login info" interstitial may or may not appear; dismissing it
	// is best effort.
	if err := session.WaitVisible(ctx, `button.not-now`); err == nil {
		_ = session.Click(ctx, `button.not-now`)
	}

	if err := session.WaitVisible(ctx, "nav"); err != nil {
		return &AuthError{Platform: Threads, Err: fmt.Errorf("login did not complete: %w", err)}
	}

	cookies, err := session.Cookies(ctx)
	if err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	if err := browser.CopyCookies(t.httpClient, threadsWebURL, cookies); err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}

	t.authenticated = true
	slog.Info("authenticated with Threads via browser", "username", t.username)
	return nil
}

// Post publishes a thread through the web composer. Rate-limit refusals fail
// immediately and are never retried; transient posting failures are.
func (t *ThreadsBrowserAdapter) Post(ctx context.Context, req Request) Result {
	if !t.limiter.CanPost() {
		return failure(Threads, &RateLimitError{Platform: Threads, Reason: "posting quota exhausted"})
	}

	for _, path := range req.MediaPaths {
		if err := ValidateMedia(path); err != nil {
			return failure(Threads, &ValidationError{Platform: Threads, Reason: err.Error()})
		}
	}

	content := FormatContent(req.Content, ThreadsMaxLength)
	if content == "" {
		return failure(Threads, &ValidationError{Platform: Threads, Reason: "empty content"})
	}

	mediaPaths := make([]string, 0, len(req.MediaPaths))
	for _, path := range req.MediaPaths {
		if IsImage(path) {
			path = OptimizeImage(path)
		}
		mediaPaths = append(mediaPaths, path)
	}

	err := retry.Do(ctx, t.retryPolicy, func() error {
		return t.compose(ctx, content, mediaPaths)
	})

	logPostMetrics(Threads, content, err == nil, len(mediaPaths))

	if err != nil {
		return failure(Threads, err)
	}

	t.limiter.RecordPost()
	slog.Info("posted to Threads via browser")
	return Result{
		Success:    true,
		Platform:   string(Threads),
		HasMedia:   len(mediaPaths) > 0,
		MediaCount: len(mediaPaths),
	}
}

// compose runs one posting attempt in a fresh session.
func (t *ThreadsBrowserAdapter) compose(ctx context.Context, content string, mediaPaths []string) error {
	if !t.authenticated {
		if err := t.Authenticate(ctx); err != nil {
			return err
		}
	}

	session, err := t.newSession(ctx)
	if err != nil {
		return &PostError{Platform: Threads, Err: err}
	}
	defer session.Close()

	if err := session.Navigate(ctx, threadsWebURL); err != nil {
		return &PostError{Platform: Threads, Err: err}
	}
	if err := session.WaitVisible(ctx, `[aria-label="Create new thread"]`); err != nil {
		return &PostError{Platform: Threads, Err: err}
	}
	if err := session.Click(ctx, `[aria-label="Create new thread"]`); err != nil {
		return &PostError{Platform: Threads, Err: err}
	}

	for _, path := range mediaPaths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return &PostError{Platform: Threads, Err: err}
		}
		if err := session.WaitVisible(ctx, `input[type="file"]`); err != nil {
			return &PostError{Platform: Threads, Err: err}
		}
		if err := session.Fill(ctx, `input[type="file"]`, abs); err != nil {
			return &PostError{Platform: Threads, Err: err}
		}
		if err := session.WaitVisible(ctx, `[aria-label="Media preview"]`); err != nil {
			return &PostError{Platform: Threads, Err: err}
		}
	}

	if err := session.WaitVisible(ctx, `[aria-label="Post content"]`); err != nil {
		return &PostError{Platform: Threads, Err: err}
	}
	if err := session.Fill(ctx, `[aria-label="Post content"]`, content); err != nil {
		return &PostError{Platform: Threads, Err: err}
	}
	if err := session.Click(ctx, `button.post-submit`); err != nil {
		return &PostError{Platform: Threads, Err: err}
	}

	return nil
}

// CheckStatus probes the Threads web frontend.
func (t *ThreadsBrowserAdapter) CheckStatus(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, threadsWebURL, nil)
	if err != nil {
		return false
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
