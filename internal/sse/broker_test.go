package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

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

	b.Publish(Event{Type: TypeNotice, Data: NoticePayload{Message: "hello"}})

	select {
	case msg := <-ch:
		want := "id: 1\nevent: " + TypeNotice + "\ndata: {\"message\":\"hello\"}\n\n"
		if string(msg) != want {
			t.Errorf("frame = %q, want %q", msg, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_DashboardThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The first change refreshes at once, the second waits for the interval.
	b.PublishChange("item.created", "a")
	b.PublishChange("item.renewed", "a")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	dashCount := 0
	changeCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, TypeDashboard) {
				dashCount++
			} else {
				changeCount++
			}
		default:
			break loop
		}
	}

	if changeCount != 2 {
		t.Errorf("change events = %d, want 2", changeCount)
	}
	if dashCount != 1 {
		t.Errorf("dashboard events = %d, want 1 (throttled)", dashCount)
	}
}

func TestPublishChange_TrailingDashboardRefresh(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("item.created", "a")
	b.PublishChange("item.renewed", "a")
	b.PublishChange("item.deleted", "a")

	var refreshes []string
	deadline := time.After(time.Second)
	for len(refreshes) < 2 {
		select {
		case msg := <-ch:
			if s := string(msg); strings.Contains(s, "event: "+TypeDashboard) {
				refreshes = append(refreshes, s)
			}
		case <-deadline:
			t.Fatalf("dashboard refreshes = %q, want 2", refreshes)
		}
	}
	if !strings.Contains(refreshes[0], `{"changes":1}`) {
		t.Errorf("immediate refresh = %q", refreshes[0])
	}
	if !strings.Contains(refreshes[1], `{"changes":2}`) {
		t.Errorf("trailing refresh = %q", refreshes[1])
	}
}

func TestPublishChange_Payload(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("data.cleared", "")
	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: data.cleared") || strings.Contains(s, `"id"`) || !strings.Contains(s, `"at":`) {
			t.Errorf("collection change frame = %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
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

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange("item.updated", "x")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("handler output missing retry hint: %q", body)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}
	if !strings.Contains(body, "event: item.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
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

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: NoticePayload{Message: "x"}})
	}
	// If we reach here without deadlock, the test passes.
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

	// Should be safe no-op after close.
	b.PublishChange("item.updated", "x")
	b.PublishNotice("bye")
}

func TestPublishNotice(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNotice("You have 1 items expiring soon and 0 expired items.")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: "+TypeNotice) || !strings.Contains(s, "expiring soon") {
			t.Errorf("unexpected notice %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notice")
	}
}
