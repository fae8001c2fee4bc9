package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testNotification() Notification {
	return Notification{
		InventoryID:      "WG-0001",
		DropPct:          decimal.NewFromFloat(6.25),
		ThresholdPct:     decimal.NewFromFloat(5),
		BaselinePressure: decimal.NewFromFloat(30),
		CurrentPressure:  decimal.NewFromFloat(28.12),
		DetectedAt:       time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		Channels:         []string{"telegram"},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	if !strings.Contains(received["text"], "WG-0001") {
		t.Fatalf("alert text should name the gallon: %q", received["text"])
	}
	if !strings.Contains(received["text"], "6.25%") {
		t.Fatalf("alert text should carry the drop percentage: %q", received["text"])
	}
}

func TestTelegramNotifierRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("ok=false should yield an error")
	}
}

func TestTelegramNotifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("bad-token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("non-2xx status should yield an error")
	}
}

func TestRenderMessage(t *testing.T) {
	text := renderMessage(testNotification())

	for _, want := range []string{
		"[Gallon Leak Alert]",
		"Gallon: WG-0001",
		"Drop: 6.25% (threshold 5.00%)",
		"Pressure: 30.00 -> 28.12 PSI",
		"Channels: telegram",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered message missing %q:\n%s", want, text)
		}
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
