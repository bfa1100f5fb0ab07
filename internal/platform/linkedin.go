package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hollowbeak/syndibot/internal/retry"
)

const linkedInDefaultBaseURL = "https://www.linkedin.com"

// LinkedInAdapter posts through LinkedIn's internal share endpoint using
// session cookies harvested from a logged-in browser. The JSESSIONID value
// doubles as the CSRF token.
type LinkedInAdapter struct {
	httpClient  *http.Client
	baseURL     string
	jsessionID  string
	liAt        string
	retryPolicy retry.Policy
}

// LinkedInConfig holds the session cookies for the LinkedIn adapter.
type LinkedInConfig struct {
	JSESSIONID string
	LiAt       string
}

// NewLinkedInAdapter creates a new LinkedIn adapter. Quotes around the
// JSESSIONID cookie value are stripped.
func NewLinkedInAdapter(cfg LinkedInConfig) *LinkedInAdapter {
	policy := retry.DefaultPolicy()
	policy.Retryable = IsTransient
	return &LinkedInAdapter{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:     linkedInDefaultBaseURL,
		jsessionID:  strings.Trim(strings.TrimSpace(cfg.JSESSIONID), `"`),
		liAt:        strings.TrimSpace(cfg.LiAt),
		retryPolicy: policy,
	}
}

// Name returns the platform identifier.
func (l *LinkedInAdapter) Name() Name {
	return LinkedIn
}

func (l *LinkedInAdapter) headers(req *http.Request) {
	req.Header.Set("accept", "application/vnd.linkedin.normalized+json+2.1")
	req.Header.Set("accept-language", "en-US,en;q=0.9")
	req.Header.Set("content-type", "application/json; charset=UTF-8")
	req.Header.Set("csrf-token", l.jsessionID)
	req.Header.Set("origin", l.baseURL)
	req.Header.Set("cookie", fmt.Sprintf(`JSESSIONID="%s"; li_at=%s`, l.jsessionID, l.liAt))
	req.Header.Set("Referer", l.baseURL+"/feed/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36")
}

// Authenticate verifies that both session cookies are present and that the
// feed answers with them.
func (l *LinkedInAdapter) Authenticate(ctx context.Context) error {
	if l.jsessionID == "" || l.liAt == "" {
		return &ValidationError{Platform: LinkedIn, Reason: "missing session cookies"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL, nil)
	if err != nil {
		return &AuthError{Platform: LinkedIn, Err: err}
	}
	l.headers(req)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return &AuthError{Platform: LinkedIn, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &AuthError{Platform: LinkedIn, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	l.refreshSession(resp.Header)
	return nil
}

// refreshSession absorbs rotated session cookies from a response. LinkedIn
// rotates JSESSIONID and li_at mid-session and the stale values stop working.
func (l *LinkedInAdapter) refreshSession(h http.Header) {
	for _, setCookie := range h.Values("Set-Cookie") {
		for _, part := range strings.Split(setCookie, ";") {
			part = strings.TrimSpace(part)
			if v, ok := strings.CutPrefix(part, "JSESSIONID="); ok {
				if v = strings.Trim(v, `"`); v != "" && v != l.jsessionID {
					l.jsessionID = v
					slog.Debug("LinkedIn JSESSIONID rotated")
				}
			}
			if v, ok := strings.CutPrefix(part, "li_at="); ok {
				if v != "" && v != l.liAt {
					l.liAt = v
					slog.Debug("LinkedIn li_at rotated")
				}
			}
		}
	}
}

// linkedInShare is the normShares request payload.
type linkedInShare struct {
	VisibleToConnectionsOnly  bool     `json:"visibleToConnectionsOnly"`
	ExternalAudienceProviders []string `json:"externalAudienceProviders"`
	CommentaryV2              struct {
		Text       string   `json:"text"`
		Attributes []string `json:"attributes"`
	} `json:"commentaryV2"`
	Origin                 string `json:"origin"`
	AllowedCommentersScope string `json:"allowedCommentersScope"`
	PostState              string `json:"postState"`
}

// Post publishes a share. Content beyond the 3000-character ceiling is
// rejected rather than truncated; long-form posts should be authored within
// the limit.
func (l *LinkedInAdapter) Post(ctx context.Context, req Request) Result {
	if l.jsessionID == "" || l.liAt == "" {
		return failure(LinkedIn, &ValidationError{Platform: LinkedIn, Reason: "missing session cookies"})
	}

	text := strings.TrimSpace(req.Content)
	if text == "" {
		return failure(LinkedIn, &ValidationError{Platform: LinkedIn, Reason: "empty content"})
	}
	if !FitsInLimit(text, LinkedInMaxLength) {
		return failure(LinkedIn, &ValidationError{
			Platform: LinkedIn,
			Reason:   fmt.Sprintf("content exceeds %d characters", LinkedInMaxLength),
		})
	}

	err := retry.Do(ctx, l.retryPolicy, func() error {
		return l.share(ctx, text)
	})

	logPostMetrics(LinkedIn, text, err == nil, 0)

	if err != nil {
		return failure(LinkedIn, err)
	}

	slog.Info("posted to LinkedIn", "content_length", len(text))
	return Result{
		Success:  true,
		Platform: string(LinkedIn),
	}
}

func (l *LinkedInAdapter) share(ctx context.Context, text string) error {
	var payload linkedInShare
	payload.ExternalAudienceProviders = []string{}
	payload.CommentaryV2.Text = text
	payload.CommentaryV2.Attributes = []string{}
	payload.Origin = "FEED"
	payload.AllowedCommentersScope = "ALL"
	payload.PostState = "PUBLISHED"

	body, err := json.Marshal(payload)
	if err != nil {
		return &PostError{Platform: LinkedIn, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/voyager/api/contentcreation/normShares", bytes.NewReader(body))
	if err != nil {
		return &PostError{Platform: LinkedIn, Err: err}
	}
	l.headers(req)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return &PostError{Platform: LinkedIn, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &PostError{Platform: LinkedIn, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Platform: LinkedIn, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	case resp.StatusCode >= http.StatusBadRequest:
		return &PostError{Platform: LinkedIn, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	}

	l.refreshSession(resp.Header)
	return nil
}

// CheckStatus probes the site root with the session headers.
func (l *LinkedInAdapter) CheckStatus(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL, nil)
	if err != nil {
		return false
	}
	l.headers(req)
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
