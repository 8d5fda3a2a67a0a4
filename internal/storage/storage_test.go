package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"coinsentry/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(100, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func f64(v float64) *float64 { return &v }

func TestStorage_SaveLoadDetectorStates(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	states := map[string]models.DetectorState{
		"solana": {
			AssetID:       "solana",
			DynamicATH:    f64(270.5),
			EMA50Position: models.EMAPositionAbove,
			UpdatedAt:     now,
		},
		"chainlink": {
			AssetID:   "chainlink",
			UpdatedAt: now,
		},
	}

	if err := s.SaveDetectorStates(states); err != nil {
		t.Fatalf("SaveDetectorStates: %v", err)
	}
	loaded, err := s.LoadDetectorStates()
	if err != nil {
		t.Fatalf("LoadDetectorStates: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 states, got %d", len(loaded))
	}

	sol := loaded["solana"]
	if sol.DynamicATH == nil || *sol.DynamicATH != 270.5 {
		t.Errorf("dynamic ATH: got %v, want 270.5", sol.DynamicATH)
	}
	if sol.EMA50Position != models.EMAPositionAbove {
		t.Errorf("position: got %q, want above", sol.EMA50Position)
	}
	if !sol.UpdatedAt.Equal(now) {
		t.Errorf("updated_at: got %v, want %v", sol.UpdatedAt, now)
	}

	link := loaded["chainlink"]
	if link.DynamicATH != nil {
		t.Errorf("expected unseeded ATH to round-trip as nil, got %v", *link.DynamicATH)
	}
	if link.EMA50Position != models.EMAPositionUnknown {
		t.Errorf("expected unknown position, got %q", link.EMA50Position)
	}
}

func TestStorage_SaveDetectorStates_Overwrites(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	first := map[string]models.DetectorState{
		"solana": {AssetID: "solana", DynamicATH: f64(200), UpdatedAt: now},
	}
	if err := s.SaveDetectorStates(first); err != nil {
		t.Fatalf("SaveDetectorStates: %v", err)
	}

	second := map[string]models.DetectorState{
		"solana": {AssetID: "solana", DynamicATH: f64(270), EMA50Position: models.EMAPositionBelow, UpdatedAt: now.Add(time.Hour)},
	}
	if err := s.SaveDetectorStates(second); err != nil {
		t.Fatalf("SaveDetectorStates: %v", err)
	}

	loaded, err := s.LoadDetectorStates()
	if err != nil {
		t.Fatalf("LoadDetectorStates: %v", err)
	}
	if got := loaded["solana"]; *got.DynamicATH != 270 || got.EMA50Position != models.EMAPositionBelow {
		t.Errorf("expected latest snapshot to win, got %+v", got)
	}
}

func TestStorage_LoadDetectorStates_Empty(t *testing.T) {
	s := newTestStorage(t)
	loaded, err := s.LoadDetectorStates()
	if err != nil {
		t.Fatalf("LoadDetectorStates: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty map on first run, got %d states", len(loaded))
	}
}

func TestStorage_SaveLoadCooldowns(t *testing.T) {
	s := newTestStorage(t)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.SaveCooldown("signal:solana", t0); err != nil {
		t.Fatalf("SaveCooldown: %v", err)
	}
	if err := s.SaveCooldown("top:sui", t0.Add(time.Hour)); err != nil {
		t.Fatalf("SaveCooldown: %v", err)
	}
	// Re-firing the same key replaces its timestamp.
	if err := s.SaveCooldown("signal:solana", t0.Add(6*time.Hour)); err != nil {
		t.Fatalf("SaveCooldown: %v", err)
	}

	loaded, err := s.LoadCooldowns()
	if err != nil {
		t.Fatalf("LoadCooldowns: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 cooldowns, got %d", len(loaded))
	}
	if !loaded["signal:solana"].Equal(t0.Add(6 * time.Hour)) {
		t.Errorf("signal:solana fired_at: got %v", loaded["signal:solana"])
	}
	if !loaded["top:sui"].Equal(t0.Add(time.Hour)) {
		t.Errorf("top:sui fired_at: got %v", loaded["top:sui"])
	}
}

func testEvaluation(assetID string, ts time.Time, score float64) *models.EvaluationRecord {
	return &models.EvaluationRecord{
		ID:        uuid.NewString(),
		Timestamp: ts,
		AssetID:   assetID,
		Indicators: models.IndicatorSnapshot{
			Price: f64(250),
			RSI:   f64(62.5),
		},
		Score:           score,
		SignalAlertSent: score >= 75,
	}
}

func TestStorage_AppendAndReadEvaluations(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		rec := testEvaluation("solana", now.Add(time.Duration(i)*time.Hour), 50+float64(i*10))
		if err := s.AppendEvaluation(rec); err != nil {
			t.Fatalf("AppendEvaluation %d: %v", i, err)
		}
	}
	if err := s.AppendEvaluation(testEvaluation("chainlink", now, 40)); err != nil {
		t.Fatalf("AppendEvaluation: %v", err)
	}

	records, err := s.RecentEvaluations("solana", 10)
	if err != nil {
		t.Fatalf("RecentEvaluations: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records for solana, got %d", len(records))
	}
	// Newest first.
	if records[0].Score != 70 {
		t.Errorf("expected newest record first (score 70), got %f", records[0].Score)
	}
	if records[0].Indicators.RSI == nil || *records[0].Indicators.RSI != 62.5 {
		t.Errorf("indicator payload did not round-trip: %+v", records[0].Indicators)
	}
	if !records[0].SignalAlertSent {
		t.Error("expected signal_alert_sent to round-trip as true")
	}
}

func TestStorage_EvaluationRotation(t *testing.T) {
	s, err := New(5, ":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	now := time.Now()
	for i := 0; i < 10; i++ {
		rec := testEvaluation(fmt.Sprintf("asset-%d", i), now.Add(time.Duration(i)*time.Minute), 50)
		if err := s.AppendEvaluation(rec); err != nil {
			t.Fatalf("AppendEvaluation %d: %v", i, err)
		}
	}

	for i := 0; i < 10; i++ {
		records, err := s.RecentEvaluations(fmt.Sprintf("asset-%d", i), 1)
		if err != nil {
			t.Fatalf("RecentEvaluations: %v", err)
		}
		kept := len(records) == 1
		if i < 5 && kept {
			t.Errorf("old record asset-%d should have been rotated out", i)
		}
		if i >= 5 && !kept {
			t.Errorf("recent record asset-%d should have been kept", i)
		}
	}
}

func TestStorage_DefaultPath(t *testing.T) {
	s, err := New(10, "")
	if err != nil {
		t.Fatalf("New with empty path: %v", err)
	}
	defer s.Close()
}
