package notify

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func testMessage() Message {
	return Message{
		Title:       "🚨 Crypto Signal Alert: Solana 🚨",
		Description: "A strong signal detected for Solana!",
		Color:       ColorSignal,
		Fields: []Field{
			{Name: "Signal Score", Value: "85.50/100", Inline: true},
			{Name: "Current Price", Value: "$250.00", Inline: true},
		},
		Footer: "Signal alert generated at 2025-06-01 12:00:00 UTC",
	}
}

func TestDiscord_SendsEmbedPayload(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &got); err != nil {
			t.Errorf("payload is not valid JSON: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, 5*time.Second, 3, 10*time.Millisecond)
	if err := d.Send(testMessage()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(got.Embeds))
	}
	embed := got.Embeds[0]
	if embed.Title != "🚨 Crypto Signal Alert: Solana 🚨" {
		t.Errorf("title mismatch: %q", embed.Title)
	}
	if embed.Color != ColorSignal {
		t.Errorf("color mismatch: %d", embed.Color)
	}
	if len(embed.Fields) != 2 || embed.Fields[0].Name != "Signal Score" {
		t.Errorf("fields mismatch: %+v", embed.Fields)
	}
	if embed.Footer == nil || embed.Footer.Text == "" {
		t.Error("expected footer text")
	}
}

func TestDiscord_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, 5*time.Second, 3, 10*time.Millisecond)
	if err := d.Send(testMessage()); err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDiscord_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, 5*time.Second, 3, 10*time.Millisecond)
	if err := d.Send(testMessage()); err == nil {
		t.Fatal("expected error for bad request")
	}
	if calls.Load() != 1 {
		t.Errorf("400 must not be retried, got %d attempts", calls.Load())
	}
}

type fakeChannel struct {
	err   error
	calls int
}

func (f *fakeChannel) Send(Message) error {
	f.calls++
	return f.err
}

func TestMulti_SucceedsWhenAnyChannelDelivers(t *testing.T) {
	bad := &fakeChannel{err: errors.New("webhook down")}
	good := &fakeChannel{}
	m := NewMulti(bad, good)

	if err := m.Send(testMessage()); err != nil {
		t.Errorf("expected success with one healthy channel, got %v", err)
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Errorf("expected both channels attempted, got %d/%d", bad.calls, good.calls)
	}
}

func TestMulti_FailsWhenAllChannelsFail(t *testing.T) {
	m := NewMulti(&fakeChannel{err: errors.New("down")}, &fakeChannel{err: errors.New("also down")})
	if err := m.Send(testMessage()); err == nil {
		t.Error("expected error when every channel fails")
	}
}
