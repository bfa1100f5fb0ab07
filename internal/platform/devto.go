package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollowbeak/syndibot/internal/retry"
)

const devToDefaultBaseURL = "https://dev.to/api"

// DevToAdapter publishes markdown articles to Dev.to.
type DevToAdapter struct {
	httpClient    *http.Client
	apiKey        string
	baseURL       string
	authenticated bool
	retryPolicy   retry.Policy
}

// DevToConfig holds configuration for the Dev.to adapter.
type DevToConfig struct {
	APIKey  string
	BaseURL string // defaults to the public API; overridable for tests
}

// NewDevToAdapter creates a new Dev.to adapter.
func NewDevToAdapter(cfg DevToConfig) *DevToAdapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = devToDefaultBaseURL
	}
	policy := retry.DefaultPolicy()
	policy.Retryable = IsTransient
	return &DevToAdapter{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		retryPolicy: policy,
	}
}

// Name returns the platform identifier.
func (d *DevToAdapter) Name() Name {
	return DevTo
}

// Authenticate verifies the API key against the authenticated-articles
// endpoint. A missing key fails without a network call.
func (d *DevToAdapter) Authenticate(ctx context.Context) error {
	if d.apiKey == "" {
		return &ValidationError{Platform: DevTo, Reason: "missing API key"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/articles/me", nil)
	if err != nil {
		return &AuthError{Platform: DevTo, Err: err}
	}
	req.Header.Set("api-key", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &AuthError{Platform: DevTo, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		d.authenticated = false
		return &AuthError{Platform: DevTo, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	d.authenticated = true
	slog.Debug("authenticated with Dev.to")
	return nil
}

// devToArticleRequest is the request body for article creation.
type devToArticleRequest struct {
	Article devToArticle `json:"article"`
}

type devToArticle struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Published    bool     `json:"published"`
	Tags         []string `json:"tags"`
}

// devToArticleResponse is the relevant slice of the creation response.
type devToArticleResponse struct {
	ID  json.Number `json:"id"`
	URL string      `json:"url"`
}

// Post publishes an article. A title is required; tags default to
// "technology".
func (d *DevToAdapter) Post(ctx context.Context, req Request) Result {
	if !d.authenticated {
		if err := d.Authenticate(ctx); err != nil {
			return failure(DevTo, err)
		}
	}

	if req.Title == "" {
		return failure(DevTo, &ValidationError{Platform: DevTo, Reason: "title is required for Dev.to posts"})
	}

	tags := req.Tags
	if len(tags) == 0 {
		tags = []string{"technology"}
	}

	body, err := json.Marshal(devToArticleRequest{
		Article: devToArticle{
			Title:        req.Title,
			BodyMarkdown: req.Content,
			Published:    true,
			Tags:         tags,
		},
	})
	if err != nil {
		return failure(DevTo, err)
	}

	var article devToArticleResponse
	err = retry.Do(ctx, d.retryPolicy, func() error {
		return d.createArticle(ctx, body, &article)
	})

	logPostMetrics(DevTo, req.Content, err == nil, 0)

	if err != nil {
		return failure(DevTo, err)
	}

	slog.Info("posted to Dev.to", "title", req.Title, "url", article.URL)
	return Result{
		Success:  true,
		Platform: string(DevTo),
		PostID:   article.ID.String(),
		URL:      article.URL,
	}
}

func (d *DevToAdapter) createArticle(ctx context.Context, body []byte, out *devToArticleResponse) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/articles", bytes.NewReader(body))
	if err != nil {
		return &PostError{Platform: DevTo, Err: err}
	}
	httpReq.Header.Set("api-key", d.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return &PostError{Platform: DevTo, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &PostError{Platform: DevTo, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		d.authenticated = false
		return &AuthError{Platform: DevTo, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	default:
		return &PostError{Platform: DevTo, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &PostError{Platform: DevTo, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

// CheckStatus probes the public articles endpoint.
func (d *DevToAdapter) CheckStatus(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/articles", nil)
	if err != nil {
		return false
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
