// Package ratelimit implements the per-recipient burst, rapid-attempt,
// and ban policy described in §4.6. Its shape — a mutex-guarded
// map[string]*state plus an injectable nowFunc for deterministic tests —
// is lifted directly from the teacher's per-MX-host circuit breaker
// (internal/engine/circuit_breaker.go), generalized from host-keyed
// delivery circuits to recipient-keyed send admission.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/sendbridge/mailer/internal/mailerr"
)

// Config mirrors the rateLimiting block of §3's configuration.
type Config struct {
	PerRecipient           bool
	BurstLimit             int
	CooldownPeriod         time.Duration
	BanDuration            time.Duration
	MaxConsecutiveFailures int
	FailureCooldown        time.Duration
	MaxRapidAttempts       int
	RapidPeriod            time.Duration
}

// DefaultConfig returns §3's documented defaults.
func DefaultConfig() Config {
	return Config{
		PerRecipient:           true,
		BurstLimit:             5,
		CooldownPeriod:         time.Second,
		BanDuration:            2 * time.Hour,
		MaxConsecutiveFailures: 3,
		FailureCooldown:        5 * time.Minute,
		MaxRapidAttempts:       10,
		RapidPeriod:            10 * time.Second,
	}
}

// BanRecorder receives ban-transition notifications so the metrics
// accumulator (C7) can track banned_recipients_count without this package
// importing it. Pass nil to disable.
type BanRecorder interface {
	IncBannedRecipients()
	DecBannedRecipients()
	IncRateLimitExceeded()
}

// state is the per-recipient admission state described in §3's
// RecipientLimitState.
type state struct {
	count               int
	lastReset           time.Time
	banned              bool
	banExpiry           time.Time
	consecutiveFailures int
	lastFailure         time.Time
	rapidAttempts       int
	lastAttempt         time.Time
}

// Controller enforces Config against a per-recipient map that lives for
// the process — entries are created on first sighting and never evicted
// (§3; §9 flags unbounded growth as a follow-up for an LRU cap, not
// implemented here since no capacity is named in the config surface).
type Controller struct {
	mu      sync.Mutex
	states  map[string]*state
	cfg     Config
	nowFunc func() time.Time
	metrics BanRecorder
}

// New creates a Controller. metrics may be nil.
func New(cfg Config, metrics BanRecorder) *Controller {
	return &Controller{
		states:  make(map[string]*state),
		cfg:     cfg,
		nowFunc: time.Now,
		metrics: metrics,
	}
}

// recordBan transitions would-be-fresh book keeping into the metrics
// sink, if any.
func (c *Controller) recordBan() {
	if c.metrics != nil {
		c.metrics.IncBannedRecipients()
	}
}

func (c *Controller) recordBanCleared() {
	if c.metrics != nil {
		c.metrics.DecBannedRecipients()
	}
}

func (c *Controller) recordRateLimitExceeded() {
	if c.metrics != nil {
		c.metrics.IncRateLimitExceeded()
	}
}

// Check runs the full §4.6 algorithm for recipient and returns a
// rate_limit_error if the send must be rejected, nil if admitted (in
// which case the recipient's count has already been incremented).
func (c *Controller) Check(recipient string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	st, ok := c.states[recipient]
	if !ok {
		st = &state{}
		c.states[recipient] = st
	}

	// 1. Rapid-attempt check.
	if !st.lastAttempt.IsZero() && now.Sub(st.lastAttempt) < c.cfg.RapidPeriod {
		st.rapidAttempts++
		if st.rapidAttempts >= c.cfg.MaxRapidAttempts {
			st.banned = true
			st.banExpiry = now.Add(c.cfg.BanDuration)
			st.lastAttempt = now
			c.recordBan()
			return mailerr.RateLimited("Too many rapid sending attempts")
		}
	} else {
		st.rapidAttempts = 1
	}
	st.lastAttempt = now

	// 2. Active-ban check.
	if st.banned {
		if now.Before(st.banExpiry) {
			c.recordRateLimitExceeded()
			return mailerr.RateLimited(fmt.Sprintf("recipient %s is temporarily banned", recipient))
		}
		st.banned = false
		st.count = 0
		st.lastReset = now
		st.consecutiveFailures = 0
		st.rapidAttempts = 0
		c.recordBanCleared()
	}

	// 3. Consecutive-failure check.
	if st.consecutiveFailures >= c.cfg.MaxConsecutiveFailures {
		if !st.lastFailure.IsZero() && now.Sub(st.lastFailure) < c.cfg.FailureCooldown {
			st.banned = true
			st.banExpiry = now.Add(c.cfg.BanDuration)
			c.recordBan()
			return mailerr.RateLimited("recipient temporarily banned after repeated failures")
		}
		st.consecutiveFailures = 0
	}

	// 4. Window reset.
	if st.lastReset.IsZero() || now.Sub(st.lastReset) > c.cfg.CooldownPeriod {
		st.count = 0
		st.lastReset = now
	}

	// 5. Burst check.
	if st.count >= c.cfg.BurstLimit {
		c.recordRateLimitExceeded()
		return mailerr.RateLimited("Rate limit exceeded for recipient")
	}

	st.count++
	return nil
}

// RecordSuccess resets consecutiveFailures for every recipient of a send
// that completed successfully.
func (c *Controller) RecordSuccess(recipients []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range recipients {
		if st, ok := c.states[r]; ok {
			st.consecutiveFailures = 0
		}
	}
}

// RecordFailure increments consecutiveFailures and stamps lastFailure for
// every recipient of a send that failed.
func (c *Controller) RecordFailure(recipients []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	for _, r := range recipients {
		st, ok := c.states[r]
		if !ok {
			st = &state{}
			c.states[r] = st
		}
		st.consecutiveFailures++
		st.lastFailure = now
	}
}
