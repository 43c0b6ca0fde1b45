package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/focusfive/internal/testutil"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeDayCreated, Data: map[string]string{"date": "2025-01-15"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: day.created\n") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `data: {"date":"2025-01-15"}`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDayEvent_StatsThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDayEvent("created", "2025-01-15")
	b.PublishDayEvent("updated", "2025-01-16")
	b.PublishDayEvent("renamed", "2025-01-17")

	time.Sleep(50 * time.Millisecond)
	statsCount, dayCount := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeStatsUpdated) {
			statsCount++
		} else {
			dayCount++
		}
	}
	if dayCount != 2 {
		t.Errorf("day events = %d, want 2 (unknown kind dropped)", dayCount)
	}
	if statsCount != 1 {
		t.Errorf("stats events = %d, want 1 (throttled)", statsCount)
	}
}

func TestPublishDayEvent_StatsAfterInterval(t *testing.T) {
	b := NewBroker(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDayEvent("updated", "2025-01-15")
	time.Sleep(100 * time.Millisecond)
	b.PublishDayEvent("deleted", "2025-01-15")
	time.Sleep(50 * time.Millisecond)

	stats := 0
	sawDelete := false
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeStatsUpdated) {
			stats++
		}
		if strings.Contains(s, TypeDayDeleted) {
			sawDelete = true
		}
	}
	if stats != 2 || !sawDelete {
		t.Errorf("stats = %d, deleted = %v", stats, sawDelete)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, WithHeartbeat(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishDayEvent("updated", "2025-01-15")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: day.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, ": ping") {
		t.Errorf("handler output missing heartbeat: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Capacity is 64; the extra events must not block the loop.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
	if b.ClientCount() != 1 {
		t.Error("broker loop stalled")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeDayUpdated, Data: map[string]string{"date": "2025-01-15"}})
	b.PublishDayEvent("updated", "2025-01-15")
	b.Close()
}

func TestPublishDayEvent_ThrottleUsesClock(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	b := NewBroker(time.Minute, WithClock(clock.Now))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDayEvent("updated", "2025-01-15")
	b.PublishDayEvent("updated", "2025-01-15")
	clock.Advance(time.Minute)
	b.PublishDayEvent("updated", "2025-01-15")
	b.ClientCount() // every publish above has been handled once this returns

	stats := 0
	for _, s := range drain(ch) {
		if strings.HasPrefix(s, "event: "+TypeStatsUpdated) {
			stats++
		}
	}
	if stats != 2 {
		t.Errorf("stats events = %d, want 2", stats)
	}
}
