// Package ratelimit implements the per-user sliding-window limits that gate
// inbound updates and order creation.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/avelune/xmrbridge/core/logger"
)

// Defaults mirror the backend contract: 30 messages per minute, 3 orders per hour.
const (
	DefaultMessageLimit  = 30
	DefaultMessageWindow = time.Minute
	DefaultOrderLimit    = 3
	DefaultOrderWindow   = time.Hour
)

// Options configures a Limiter. Zero values fall back to the defaults above.
type Options struct {
	MessageLimit  int
	MessageWindow time.Duration
	OrderLimit    int
	OrderWindow   time.Duration
}

type bucket []time.Time

// prune drops timestamps older than window relative to now.
// The bucket invariant: every retained entry is strictly inside the window.
func (b bucket) prune(window time.Duration, now time.Time) bucket {
	cutoff := now.Add(-window)
	kept := b[:0]
	for _, ts := range b {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Limiter owns the sliding-window buckets for all users. All access is
// synchronized internally; the zero value is not usable, construct via New.
type Limiter struct {
	mu      sync.Mutex
	msgs    map[int64]bucket
	orders  map[int64]bucket
	opts    Options
	nowFunc func() time.Time
}

// New builds a Limiter with the provided options.
func New(opts Options) *Limiter {
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = DefaultMessageLimit
	}
	if opts.MessageWindow <= 0 {
		opts.MessageWindow = DefaultMessageWindow
	}
	if opts.OrderLimit <= 0 {
		opts.OrderLimit = DefaultOrderLimit
	}
	if opts.OrderWindow <= 0 {
		opts.OrderWindow = DefaultOrderWindow
	}
	return &Limiter{
		msgs:    make(map[int64]bucket),
		orders:  make(map[int64]bucket),
		opts:    opts,
		nowFunc: time.Now,
	}
}

// AllowMessage checks and records one inbound update for the user.
// A rejected update is not recorded, so a flooding user recovers as soon as the
// earliest accepted timestamp slides out of the window.
func (l *Limiter) AllowMessage(userID int64) bool {
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.msgs[userID].prune(l.opts.MessageWindow, now)
	if len(b) >= l.opts.MessageLimit {
		l.msgs[userID] = b
		logger.RL.Warn("message limit",
			slog.String("event", "ratelimit.message"),
			slog.Int64("user_id", userID),
			slog.Int("count", len(b)),
			slog.Int("limit", l.opts.MessageLimit),
		)
		return false
	}
	l.msgs[userID] = append(b, now)
	return true
}

// CanCreateOrder reports whether the user is under the order-creation quota.
// It does not record anything: the caller records via RecordOrder only after
// the backend confirms creation. Under concurrent confirms for one user this
// check-then-act ordering can admit a slight over-limit; per-user update
// serialization keeps that window closed in practice.
func (l *Limiter) CanCreateOrder(userID int64) bool {
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.orders[userID].prune(l.opts.OrderWindow, now)
	l.orders[userID] = b
	return len(b) < l.opts.OrderLimit
}

// RecordOrder appends one order-creation timestamp for the user.
func (l *Limiter) RecordOrder(userID int64) {
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.orders[userID].prune(l.opts.OrderWindow, now)
	l.orders[userID] = append(b, now)
}

// OrderLimit exposes the configured quota for user-facing messages.
func (l *Limiter) OrderLimit() int {
	return l.opts.OrderLimit
}
