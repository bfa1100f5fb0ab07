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

	"github.com/hollowbeak/syndibot/internal/retry"
)

// MastodonAdapter posts statuses to a Mastodon server.
type MastodonAdapter struct {
	httpClient    *http.Client
	server        string
	accessToken   string
	authenticated bool
	retryPolicy   retry.Policy
}

// MastodonConfig holds configuration for the Mastodon adapter.
type MastodonConfig struct {
	Server      string // base URL, e.g. https://mastodon.social
	AccessToken string
}

// NewMastodonAdapter creates a new Mastodon adapter.
func NewMastodonAdapter(cfg MastodonConfig) *MastodonAdapter {
	policy := retry.DefaultPolicy()
	policy.Retryable = IsTransient
	return &MastodonAdapter{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		server:      strings.TrimRight(cfg.Server, "/"),
		accessToken: cfg.AccessToken,
		retryPolicy: policy,
	}
}

// Name returns the platform identifier.
func (m *MastodonAdapter) Name() Name {
	return Mastodon
}

// Authenticate verifies the access token. A missing token fails without a
// network call.
func (m *MastodonAdapter) Authenticate(ctx context.Context) error {
	if m.accessToken == "" {
		return &ValidationError{Platform: Mastodon, Reason: "missing access token"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.server+"/api/v1/accounts/verify_credentials", nil)
	if err != nil {
		return &AuthError{Platform: Mastodon, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &AuthError{Platform: Mastodon, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		m.authenticated = false
		return &AuthError{Platform: Mastodon, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	m.authenticated = true
	slog.Debug("authenticated with Mastodon", "server", m.server)
	return nil
}

// mastodonStatus is the relevant slice of the status creation response.
type mastodonStatus struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type mastodonMedia struct {
	ID string `json:"id"`
}

// Post publishes a status, uploading any media attachments first. Content
// is normalized to the 500-character ceiling.
func (m *MastodonAdapter) Post(ctx context.Context, req Request) Result {
	if !m.authenticated {
		if err := m.Authenticate(ctx); err != nil {
			return failure(Mastodon, err)
		}
	}

	// Validate media before any network call.
	for _, path := range req.MediaPaths {
		if err := ValidateMedia(path); err != nil {
			return failure(Mastodon, &ValidationError{Platform: Mastodon, Reason: err.Error()})
		}
	}

	status := FormatContent(req.Content, MastodonMaxLength)

	var mediaIDs []string
	for _, path := range req.MediaPaths {
		upload := path
		if IsImage(path) {
			upload = OptimizeImage(path)
		}
		id, err := m.uploadMedia(ctx, upload)
		if err != nil {
			return failure(Mastodon, err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = "public"
	}

	var posted mastodonStatus
	err := retry.Do(ctx, m.retryPolicy, func() error {
		return m.postStatus(ctx, status, visibility, mediaIDs, &posted)
	})

	logPostMetrics(Mastodon, status, err == nil, len(mediaIDs))

	if err != nil {
		return failure(Mastodon, err)
	}

	slog.Info("posted to Mastodon", "id", posted.ID, "url", posted.URL)
	return Result{
		Success:    true,
		Platform:   string(Mastodon),
		PostID:     posted.ID,
		URL:        posted.URL,
		HasMedia:   len(mediaIDs) > 0,
		MediaCount: len(mediaIDs),
	}
}

func (m *MastodonAdapter) postStatus(ctx context.Context, status, visibility string, mediaIDs []string, out *mastodonStatus) error {
	form := url.Values{}
	form.Set("status", status)
	form.Set("visibility", visibility)
	for _, id := range mediaIDs {
		form.Add("media_ids[]", id)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.server+"/api/v1/statuses", strings.NewReader(form.Encode()))
	if err != nil {
		return &PostError{Platform: Mastodon, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.accessToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return &PostError{Platform: Mastodon, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &PostError{Platform: Mastodon, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		m.authenticated = false
		return &AuthError{Platform: Mastodon, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	default:
		return &PostError{Platform: Mastodon, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &PostError{Platform: Mastodon, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

// uploadMedia uploads one attachment and returns its media ID.
func (m *MastodonAdapter) uploadMedia(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ValidationError{Platform: Mastodon, Reason: err.Error()}
	}
	defer f.Close()

	var buf strings.Builder
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", &PostError{Platform: Mastodon, Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", &PostError{Platform: Mastodon, Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &PostError{Platform: Mastodon, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.server+"/api/v2/media", strings.NewReader(buf.String()))
	if err != nil {
		return "", &PostError{Platform: Mastodon, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.accessToken)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return "", &PostError{Platform: Mastodon, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &PostError{Platform: Mastodon, Err: err}
	}

	// 202 means the attachment is still processing but usable.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", &PostError{Platform: Mastodon, Err: fmt.Errorf("media upload status %d: %s", resp.StatusCode, string(body))}
	}

	var media mastodonMedia
	if err := json.Unmarshal(body, &media); err != nil {
		return "", &PostError{Platform: Mastodon, Err: fmt.Errorf("parse media response: %w", err)}
	}

	slog.Debug("uploaded media to Mastodon", "path", path, "media_id", media.ID)
	return media.ID, nil
}

// CheckStatus probes the instance endpoint.
func (m *MastodonAdapter) CheckStatus(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.server+"/api/v1/instance", nil)
	if err != nil {
		return false
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
