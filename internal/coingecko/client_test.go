package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(srv.URL, 5*time.Second, 3, 10*time.Millisecond)
	return c, srv
}

func TestGetMarketChart(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/solana/market_chart" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "daily" {
			t.Errorf("expected daily interval, got %q", got)
		}
		w.Write([]byte(`{
			"prices": [[1700000000000, 100.0], [1700086400000, 110.0], [1700172800000, 105.0]],
			"total_volumes": [[1700000000000, 1000.0], [1700086400000, 2000.0], [1700172800000, 1500.0]]
		}`))
	}))
	defer srv.Close()

	series, err := c.GetMarketChart(context.Background(), "solana", 250)
	if err != nil {
		t.Fatalf("GetMarketChart: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", series.Len())
	}
	if series.Samples[1].Price != 110.0 || series.Samples[1].Volume != 2000.0 {
		t.Errorf("sample 1 mismatch: %+v", series.Samples[1])
	}
	if err := series.Validate(); err != nil {
		t.Errorf("series must be strictly ascending: %v", err)
	}
}

func TestGetMarketChart_DuplicateTimestampKeepsNewerRow(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"prices": [[1700000000000, 100.0], [1700000000000, 101.0]],
			"total_volumes": [[1700000000000, 1000.0], [1700000000000, 1100.0]]
		}`))
	}))
	defer srv.Close()

	series, err := c.GetMarketChart(context.Background(), "solana", 1)
	if err != nil {
		t.Fatalf("GetMarketChart: %v", err)
	}
	if series.Len() != 1 {
		t.Fatalf("expected collapsed duplicate, got %d samples", series.Len())
	}
	if series.Samples[0].Price != 101.0 {
		t.Errorf("expected newer row to win, got price %f", series.Samples[0].Price)
	}
}

func TestGetSpotQuotes(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("include_24hr_change"); got != "true" {
			t.Errorf("expected include_24hr_change=true, got %q", got)
		}
		w.Write([]byte(`{
			"solana": {"usd": 250.5, "usd_24h_change": -3.2},
			"chainlink": {"usd": 18.1}
		}`))
	}))
	defer srv.Close()

	quotes, err := c.GetSpotQuotes(context.Background(), []string{"solana", "chainlink"})
	if err != nil {
		t.Fatalf("GetSpotQuotes: %v", err)
	}
	sol := quotes["solana"]
	if sol.Price != 250.5 || sol.Change24h == nil || *sol.Change24h != -3.2 {
		t.Errorf("solana quote mismatch: %+v", sol)
	}
	if quotes["chainlink"].Change24h != nil {
		t.Error("missing 24h change must stay nil")
	}
}

func TestGetAssetDetail(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/sui" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"market_data": {"ath": {"usd": 5.35}},
			"public_interest_score": 42.0
		}`))
	}))
	defer srv.Close()

	detail, err := c.GetAssetDetail(context.Background(), "sui")
	if err != nil {
		t.Fatalf("GetAssetDetail: %v", err)
	}
	if detail.ATH == nil || *detail.ATH != 5.35 {
		t.Errorf("ATH mismatch: %v", detail.ATH)
	}
	if detail.PublicInterest == nil || *detail.PublicInterest != 42.0 {
		t.Errorf("public interest mismatch: %v", detail.PublicInterest)
	}
}

func TestGetBTCDominance(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/simple/price":
			w.Write([]byte(`{"bitcoin": {"usd_market_cap": 1200000000000}}`))
		case "/global":
			w.Write([]byte(`{"data": {"total_market_cap": {"usd": 2400000000000}}}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	dom, err := c.GetBTCDominance(context.Background())
	if err != nil {
		t.Fatalf("GetBTCDominance: %v", err)
	}
	if dom == nil || *dom != 50.0 {
		t.Errorf("expected 50%% dominance, got %v", dom)
	}
}

func TestGetJSON_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"solana": {"usd": 250.0}}`))
	}))
	defer srv.Close()

	prices, err := c.GetSpotPrices(context.Background(), []string{"solana"})
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if prices["solana"] != 250.0 {
		t.Errorf("price mismatch: %v", prices)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGetJSON_PermanentClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := c.GetAssetDetail(context.Background(), "nonexistent"); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("404 must not be retried, got %d attempts", calls.Load())
	}
}
