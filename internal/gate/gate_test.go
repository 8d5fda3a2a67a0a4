package gate

import (
	"errors"
	"testing"
	"time"

	"coinsentry/internal/models"
)

func TestAllowed_NoPriorFire(t *testing.T) {
	l := New(nil, nil)
	if !l.Allowed("signal:solana", time.Now(), 6*time.Hour) {
		t.Error("expected first fire to be allowed")
	}
}

func TestAllowed_CooldownBoundary(t *testing.T) {
	l := New(nil, nil)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	l.MarkFired("signal:solana", t0)

	if l.Allowed("signal:solana", t0.Add(5*time.Hour+59*time.Minute), 6*time.Hour) {
		t.Error("expected rejection at 5h59m")
	}
	if !l.Allowed("signal:solana", t0.Add(6*time.Hour), 6*time.Hour) {
		t.Error("expected allowance at exactly 6h")
	}
}

func TestAllowed_GatingDoesNotWrite(t *testing.T) {
	l := New(nil, nil)
	t0 := time.Now()
	l.MarkFired("top:sui", t0)

	// Repeated rejected checks must not refresh the cooldown window.
	for i := 0; i < 10; i++ {
		l.Allowed("top:sui", t0.Add(time.Hour), 6*time.Hour)
	}
	if !l.Allowed("top:sui", t0.Add(6*time.Hour), 6*time.Hour) {
		t.Error("rejected checks must not extend the cooldown")
	}
}

func TestDisjointKeySpaces(t *testing.T) {
	l := New(nil, nil)
	t0 := time.Now()
	l.MarkFired(Key(models.AlertSignal, "solana", ""), t0)

	if !l.Allowed(Key(models.AlertTop, "solana", ""), t0, 6*time.Hour) {
		t.Error("categories must cool down independently")
	}
	if !l.Allowed(Key(models.AlertSignal, "chainlink", ""), t0, 6*time.Hour) {
		t.Error("assets must cool down independently")
	}
	if !l.Allowed(Key(models.AlertProfitTaking, "solana", "340.00"), t0, 6*time.Hour) {
		t.Error("per-target keys must cool down independently")
	}
}

func TestSeedFromPersistedState(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	l := New(nil, map[string]time.Time{"price:sui": t0})
	if l.Allowed("price:sui", t0.Add(time.Hour), 6*time.Hour) {
		t.Error("seeded cooldown must gate after restart")
	}
}

type recordingStore struct {
	keys []string
	err  error
}

func (r *recordingStore) SaveCooldown(key string, _ time.Time) error {
	r.keys = append(r.keys, key)
	return r.err
}

func TestMarkFired_WritesThrough(t *testing.T) {
	store := &recordingStore{}
	l := New(store, nil)
	l.MarkFired("dip_buy:sei-network", time.Now())
	if len(store.keys) != 1 || store.keys[0] != "dip_buy:sei-network" {
		t.Errorf("expected write-through, got %v", store.keys)
	}
}

func TestMarkFired_StoreFailureStillGates(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	l := New(store, nil)
	t0 := time.Now()
	l.MarkFired("portfolio:portfolio", t0)
	if l.Allowed("portfolio:portfolio", t0.Add(time.Hour), 12*time.Hour) {
		t.Error("in-memory gating must survive a persistence failure")
	}
}
