package platform

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hollowbeak/syndibot/internal/browser"
	"github.com/hollowbeak/syndibot/internal/config"
	"github.com/hollowbeak/syndibot/internal/metrics"
	"github.com/hollowbeak/syndibot/internal/ratelimit"
)

// Manager owns one adapter per enabled platform. Adapters are constructed
// eagerly from config; a platform without credentials simply has no entry.
type Manager struct {
	platforms map[Name]Platform
	collector *metrics.Collector
}

// NewManager builds adapters for every platform the config enables. The
// browser factory is only consulted when Threads runs in browser mode and is
// required then; it may be nil otherwise. The collector may be nil.
func NewManager(cfg *config.Config, factory browser.Factory, collector *metrics.Collector) (*Manager, error) {
	if cfg.ThreadsEnabled() && cfg.ThreadsMode == "browser" && factory == nil {
		return nil, fmt.Errorf("THREADS_MODE=browser requires a browser factory")
	}

	m := &Manager{
		platforms: make(map[Name]Platform),
		collector: collector,
	}

	if cfg.DevToEnabled() {
		m.platforms[DevTo] = NewDevToAdapter(DevToConfig{APIKey: cfg.DevToAPIKey})
	}

	if cfg.MastodonEnabled() {
		m.platforms[Mastodon] = NewMastodonAdapter(MastodonConfig{
			Server:      cfg.MastodonServer,
			AccessToken: cfg.MastodonAccessToken,
		})
	}

	if cfg.ThreadsEnabled() {
		limits := ratelimit.Config{
			PostsPerHour:    cfg.ThreadsPostsPerHour,
			PostsPerDay:     cfg.ThreadsPostsPerDay,
			MinimumInterval: cfg.ThreadsMinInterval,
			CooldownPeriod:  cfg.ThreadsCooldown,
		}
		if cfg.ThreadsMode == "browser" {
			m.platforms[Threads] = NewThreadsBrowserAdapter(ThreadsBrowserConfig{
				Username:   cfg.InstagramUsername,
				Password:   cfg.InstagramPassword,
				RateLimits: limits,
			}, factory)
		} else {
			m.platforms[Threads] = NewThreadsAdapter(ThreadsConfig{
				ClientID:     cfg.ThreadsClientID,
				ClientSecret: cfg.ThreadsClientSecret,
				RedirectURI:  cfg.ThreadsRedirectURI,
				AccessToken:  cfg.ThreadsAccessToken,
				RefreshToken: cfg.ThreadsRefreshToken,
				TokenExpiry:  cfg.ThreadsTokenExpiry,
				RateLimits:   limits,
			})
		}
	}

	if cfg.LinkedInEnabled() {
		m.platforms[LinkedIn] = NewLinkedInAdapter(LinkedInConfig{
			JSESSIONID: cfg.LinkedInJSESSIONID,
			LiAt:       cfg.LinkedInLiAt,
		})
	}

	return m, nil
}

// Register adds or replaces an adapter. Used by tests and by callers that
// build adapters outside config.
func (m *Manager) Register(p Platform) {
	m.platforms[p.Name()] = p
}

// Enabled returns the names of all constructed adapters.
func (m *Manager) Enabled() []Name {
	names := make([]Name, 0, len(m.platforms))
	for name := range m.platforms {
		names = append(names, name)
	}
	return names
}

// Get returns the adapter for a platform, if constructed.
func (m *Manager) Get(name Name) (Platform, bool) {
	p, ok := m.platforms[name]
	return p, ok
}

// AuthenticateAll attempts authentication on every adapter and reports
// per-platform success. One platform's failure never stops the others.
func (m *Manager) AuthenticateAll(ctx context.Context) map[Name]bool {
	results := make(map[Name]bool, len(m.platforms))
	for name, p := range m.platforms {
		err := p.Authenticate(ctx)
		if err != nil {
			slog.Warn("authentication failed", "platform", name, "error", err)
		}
		results[name] = err == nil
	}
	return results
}

// PostTo posts to a single platform. An unconfigured platform yields a
// failed Result rather than an error.
func (m *Manager) PostTo(ctx context.Context, name Name, req Request) Result {
	p, ok := m.platforms[name]
	if !ok {
		return Result{
			Success:  false,
			Platform: string(name),
			Error:    fmt.Sprintf("platform %s not initialized", name),
		}
	}
	res := m.post(ctx, p, req)
	if m.collector != nil {
		m.collector.RecordPost(string(name), res.Success, utf8.RuneCountInString(req.Content))
	}
	return res
}

// PostToAll fans the request out to every adapter sequentially. Failures are
// isolated per platform; every enabled platform gets its attempt and its own
// Result.
func (m *Manager) PostToAll(ctx context.Context, req Request) map[Name]Result {
	results := make(map[Name]Result, len(m.platforms))
	for name, p := range m.platforms {
		res := m.post(ctx, p, req)
		if m.collector != nil {
			m.collector.RecordPost(string(name), res.Success, utf8.RuneCountInString(req.Content))
		}
		results[name] = res
	}
	return results
}

// post invokes one adapter, converting a panic into a failed Result so a
// misbehaving adapter cannot take down the fan-out.
func (m *Manager) post(ctx context.Context, p Platform, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("adapter panicked", "platform", p.Name(), "panic", r)
			res = Result{
				Success:  false,
				Platform: string(p.Name()),
				Error:    fmt.Sprintf("adapter panic: %v", r),
			}
		}
	}()
	return p.Post(ctx, req)
}

// CheckStatus reports reachability for one platform.
func (m *Manager) CheckStatus(ctx context.Context, name Name) bool {
	p, ok := m.platforms[name]
	if !ok {
		return false
	}
	return p.CheckStatus(ctx)
}

// CheckAll reports reachability for every adapter.
func (m *Manager) CheckAll(ctx context.Context) map[Name]bool {
	results := make(map[Name]bool, len(m.platforms))
	for name, p := range m.platforms {
		results[name] = p.CheckStatus(ctx)
	}
	return results
}
