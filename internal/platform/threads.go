package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hollowbeak/syndibot/internal/ratelimit"
	"github.com/hollowbeak/syndibot/internal/retry"
)

const (
	threadsDefaultBaseURL  = "https://graph.threads.net/v1"
	threadsDefaultTokenURL = "https://graph.threads.net/oauth/access_token"
)

// ThreadsAdapter posts via the official Threads Graph API. Posting is gated
// by a local rate limiter and a rate-limit refusal is never retried.
type ThreadsAdapter struct {
	httpClient *http.Client
	baseURL    string
	tokenURL   string

	clientID     string
	clientSecret string
	redirectURI  string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time

	authenticated bool
	limiter       *ratelimit.Limiter
	retryPolicy   retry.Policy
}

// ThreadsConfig holds configuration for the Threads API adapter.
type ThreadsConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	RateLimits   ratelimit.Config
}

// NewThreadsAdapter creates a new Threads API adapter.
func NewThreadsAdapter(cfg ThreadsConfig) *ThreadsAdapter {
	policy := retry.DefaultPolicy()
	policy.Retryable = IsTransient
	return &ThreadsAdapter{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:      threadsDefaultBaseURL,
		tokenURL:     threadsDefaultTokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
		tokenExpiry:  cfg.TokenExpiry,
		limiter:      ratelimit.New(cfg.RateLimits),
		retryPolicy:  policy,
	}
}

// Name returns the platform identifier.
func (t *ThreadsAdapter) Name() Name {
	return Threads
}

// AuthorizeURL returns the URL a user must visit to grant access. The
// authorization code from the redirect is exchanged with ExchangeCode.
func (t *ThreadsAdapter) AuthorizeURL() string {
	return fmt.Sprintf("https://www.threads.net/oauth/authorize?client_id=%s&redirect_uri=%s&scope=threads_basic,threads_media&response_type=code",
		url.QueryEscape(t.clientID), url.QueryEscape(t.redirectURI))
}

type threadsTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExchangeCode trades an authorization code for tokens.
func (t *ThreadsAdapter) ExchangeCode(ctx context.Context, code string) error {
	form := url.Values{}
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", t.redirectURI)

	return t.requestTokens(ctx, form)
}

func (t *ThreadsAdapter) refreshAccessToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", t.refreshToken)

	return t.requestTokens(ctx, form)
}

func (t *ThreadsAdapter) requestTokens(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{Platform: Threads, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Platform: Threads, Err: fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, string(body))}
	}

	var tokens threadsTokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return &AuthError{Platform: Threads, Err: fmt.Errorf("parse token response: %w", err)}
	}

	t.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		t.refreshToken = tokens.RefreshToken
	}
	expiresIn := tokens.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	t.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	t.authenticated = true

	slog.Info("Threads tokens refreshed", "expires_at", t.tokenExpiry.Format(time.RFC3339))
	return nil
}

// Tokens returns the current token set so it can be persisted.
func (t *ThreadsAdapter) Tokens() (access, refresh string, expiry time.Time) {
	return t.accessToken, t.refreshToken, t.tokenExpiry
}

// Authenticate ensures a usable access token. It refreshes an expired token
// when a refresh token is on hand; a missing token set cannot be recovered
// without the interactive setup flow.
func (t *ThreadsAdapter) Authenticate(ctx context.Context) error {
	if t.accessToken != "" && (t.tokenExpiry.IsZero() || time.Now().Before(t.tokenExpiry)) {
		t.authenticated = true
		return nil
	}

	if t.refreshToken != "" {
		return t.refreshAccessToken(ctx)
	}

	return &AuthError{
		Platform: Threads,
		Err:      fmt.Errorf("no usable token; run `syndibot setup threads` to authorize"),
	}
}

type threadsPostResponse struct {
	ID string `json:"id"`
}

// Post publishes a thread. Rate-limit refusals fail immediately without any
// network traffic, and only successful posts are recorded against the limit.
func (t *ThreadsAdapter) Post(ctx context.Context, req Request) Result {
	if !t.limiter.CanPost() {
		return failure(Threads, &RateLimitError{Platform: Threads, Reason: "posting quota exhausted"})
	}

	if !t.authenticated {
		if err := t.Authenticate(ctx); err != nil {
			return failure(Threads, err)
		}
	}

	for _, path := range req.MediaPaths {
		if err := ValidateMedia(path); err != nil {
			return failure(Threads, &ValidationError{Platform: Threads, Reason: err.Error()})
		}
	}

	message := FormatContent(req.Content, ThreadsMaxLength)

	var mediaIDs []string
	for _, path := range req.MediaPaths {
		upload := path
		if IsImage(path) {
			upload = OptimizeImage(path)
		}
		id, err := t.uploadMedia(ctx, upload)
		if err != nil {
			return failure(Threads, err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", t.accessToken)
	switch {
	case len(mediaIDs) == 1:
		form.Set("media_id", mediaIDs[0])
	case len(mediaIDs) > 1:
		form.Set("carousel_media_ids", strings.Join(mediaIDs, ","))
	}

	var id string
	err := retry.Do(ctx, t.retryPolicy, func() error {
		var err error
		id, err = t.submit(ctx, t.baseURL+"/me/posts", form)
		return err
	})

	logPostMetrics(Threads, message, err == nil, len(mediaIDs))

	if err != nil {
		return failure(Threads, err)
	}

	t.limiter.RecordPost()
	slog.Info("posted to Threads", "id", id)
	return Result{
		Success:    true,
		Platform:   string(Threads),
		PostID:     id,
		HasMedia:   len(mediaIDs) > 0,
		MediaCount: len(mediaIDs),
	}
}

// Reply posts a reply under an existing thread. It shares Post's rate limit.
func (t *ThreadsAdapter) Reply(ctx context.Context, threadID string, req Request) Result {
	if !t.limiter.CanPost() {
		return failure(Threads, &RateLimitError{Platform: Threads, Reason: "posting quota exhausted"})
	}

	if !t.authenticated {
		if err := t.Authenticate(ctx); err != nil {
			return failure(Threads, err)
		}
	}

	message := FormatContent(req.Content, ThreadsMaxLength)

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", t.accessToken)

	var id string
	err := retry.Do(ctx, t.retryPolicy, func() error {
		var err error
		id, err = t.submit(ctx, t.baseURL+"/"+threadID+"/replies", form)
		return err
	})

	logPostMetrics(Threads, message, err == nil, 0)

	if err != nil {
		return failure(Threads, err)
	}

	t.limiter.RecordPost()
	return Result{
		Success:  true,
		Platform: string(Threads),
		PostID:   id,
	}
}

func (t *ThreadsAdapter) submit(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		t.authenticated = false
		return "", &AuthError{Platform: Threads, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	default:
		return "", &PostError{Platform: Threads, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	var posted threadsPostResponse
	if err := json.Unmarshal(body, &posted); err != nil {
		return "", &PostError{Platform: Threads, Err: fmt.Errorf("parse response: %w", err)}
	}
	return posted.ID, nil
}

func (t *ThreadsAdapter) uploadMedia(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ValidationError{Platform: Threads, Reason: err.Error()}
	}
	defer f.Close()

	var buf strings.Builder
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("access_token", t.accessToken); err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	if strings.HasSuffix(strings.ToLower(path), ".mp4") {
		if err := writer.WriteField("type", "VIDEO"); err != nil {
			return "", &PostError{Platform: Threads, Err: err}
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/me/media", strings.NewReader(buf.String()))
	if err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &PostError{Platform: Threads, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &PostError{Platform: Threads, Err: fmt.Errorf("media upload status %d: %s", resp.StatusCode, string(body))}
	}

	var media struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &media); err != nil {
		return "", &PostError{Platform: Threads, Err: fmt.Errorf("parse media response: %w", err)}
	}
	if media.ID == "" {
		return "", &PostError{Platform: Threads, Err: fmt.Errorf("no media id in response")}
	}

	slog.Debug("uploaded media to Threads", "path", path, "media_id", media.ID)
	return media.ID, nil
}

// Profile fetches the authenticated user's profile.
func (t *ThreadsAdapter) Profile(ctx context.Context) (map[string]any, error) {
	if !t.authenticated {
		if err := t.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/me?access_token="+url.QueryEscape(t.accessToken), nil)
	if err != nil {
		return nil, &PostError{Platform: Threads, Err: err}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &PostError{Platform: Threads, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PostError{Platform: Threads, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PostError{Platform: Threads, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &PostError{Platform: Threads, Err: fmt.Errorf("parse profile: %w", err)}
	}
	return profile, nil
}

// CheckStatus probes the API status endpoint.
func (t *ThreadsAdapter) CheckStatus(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/status", nil)
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
