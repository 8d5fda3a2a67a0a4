// Package gate implements the alert cooldown ledger: a per-key
// last-fired-timestamp map that decides whether a detected condition may
// reach notification.
package gate

import (
	"fmt"
	"sync"
	"time"

	"coinsentry/internal/logger"
	"coinsentry/internal/models"
)

// Key builds a ledger key. Alert categories form disjoint key spaces; the
// optional sub-identifier separates per-target cooldowns (profit-taking
// price targets, trailing-stop sub-checks) within one asset.
func Key(category models.AlertCategory, assetID, sub string) string {
	if sub == "" {
		return fmt.Sprintf("%s:%s", category, assetID)
	}
	return fmt.Sprintf("%s:%s:%s", category, assetID, sub)
}

// Store is the durable sink for ledger writes.
type Store interface {
	SaveCooldown(key string, firedAt time.Time) error
}

// Ledger tracks when each alert key last fired. Allowed never writes; the
// caller records a fire with MarkFired only after a confirmed successful
// dispatch, so a gated detection or a failed send leaves the ledger
// untouched.
type Ledger struct {
	mu        sync.Mutex
	lastFired map[string]time.Time
	store     Store
}

// New returns a ledger seeded with previously persisted fire times.
// Both arguments may be nil.
func New(store Store, seed map[string]time.Time) *Ledger {
	l := &Ledger{
		lastFired: make(map[string]time.Time, len(seed)),
		store:     store,
	}
	for k, v := range seed {
		l.lastFired[k] = v
	}
	return l
}

// Allowed reports whether the key may fire at now: either no prior fire is
// recorded, or at least minInterval has elapsed since the last one.
func (l *Ledger) Allowed(key string, now time.Time, minInterval time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.lastFired[key]
	if !ok {
		return true
	}
	return now.Sub(last) >= minInterval
}

// MarkFired records a confirmed dispatch for the key and writes it through
// to the durable store. The in-memory record is authoritative for gating;
// a failed write only costs cooldown continuity across a restart.
func (l *Ledger) MarkFired(key string, now time.Time) {
	l.mu.Lock()
	l.lastFired[key] = now
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.SaveCooldown(key, now); err != nil {
			logger.Warn("Failed to persist cooldown for %s: %v", key, err)
		}
	}
}

// LastFired returns the recorded fire time for the key, if any.
func (l *Ledger) LastFired(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.lastFired[key]
	return t, ok
}
