// Package ratelimit enforces posting quotas for a single platform adapter:
// rolling hourly and daily caps, a minimum spacing between posts, and a
// cooldown once a cap is hit. State is in-memory only and resets on process
// restart.
package ratelimit

import (
	"time"
)

// Config holds the quota parameters for one limiter.
type Config struct {
	PostsPerHour    int
	PostsPerDay     int
	MinimumInterval time.Duration
	CooldownPeriod  time.Duration
}

// DefaultConfig mirrors the conservative limits used for Threads.
func DefaultConfig() Config {
	return Config{
		PostsPerHour:    5,
		PostsPerDay:     20,
		MinimumInterval: 5 * time.Minute,
		CooldownPeriod:  time.Hour,
	}
}

// Limiter tracks post timestamps over rolling windows. It is not safe for
// concurrent use; each adapter owns its limiter and the call chain is
// synchronous.
type Limiter struct {
	cfg Config
	now func() time.Time

	posts         []time.Time
	lastPost      time.Time
	cooldownUntil time.Time
}

// New creates a limiter with the given config.
func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, now: time.Now}
}

// NewWithClock creates a limiter with an injected clock, for tests.
func NewWithClock(cfg Config, now func() time.Time) *Limiter {
	return &Limiter{cfg: cfg, now: now}
}

// CanPost reports whether a post is currently admissible. It does not
// mutate state.
func (l *Limiter) CanPost() bool {
	now := l.now()

	if now.Before(l.cooldownUntil) {
		return false
	}

	if !l.lastPost.IsZero() && now.Sub(l.lastPost) < l.cfg.MinimumInterval {
		return false
	}

	if l.countSince(now.Add(-time.Hour)) >= l.cfg.PostsPerHour {
		return false
	}

	if l.countSince(now.Add(-24*time.Hour)) >= l.cfg.PostsPerDay {
		return false
	}

	return true
}

// RecordPost records a confirmed successful post. If the post fills either
// cap, the limiter enters cooldown for the configured duration; the cooldown
// holds even after the triggering window slides clear. Failed attempts must
// not be recorded, so they never count against the quota.
func (l *Limiter) RecordPost() {
	now := l.now()
	l.posts = append(l.posts, now)
	l.lastPost = now
	l.prune(now)

	if l.countSince(now.Add(-time.Hour)) >= l.cfg.PostsPerHour ||
		l.countSince(now.Add(-24*time.Hour)) >= l.cfg.PostsPerDay {
		l.cooldownUntil = now.Add(l.cfg.CooldownPeriod)
	}
}

// countSince counts recorded posts at or after cutoff.
func (l *Limiter) countSince(cutoff time.Time) int {
	n := 0
	for _, t := range l.posts {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

// prune drops timestamps older than the daily window.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	kept := l.posts[:0]
	for _, t := range l.posts {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	l.posts = kept
}
