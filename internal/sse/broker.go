// Package sse streams tracker changes and reminder notices to browsers as
// Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker besides the tracker's own change kinds.
const (
	TypeDashboard = "dashboard.updated"
	TypeNotice    = "reminder.notice"
)

// heartbeat is how often an idle stream receives a comment line so proxies
// keep the connection open.
const heartbeat = 25 * time.Second

// Event is one message for every subscriber. Data is encoded as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ChangePayload is the data of an item, category or settings change event.
type ChangePayload struct {
	ID string    `json:"id,omitempty"`
	At time.Time `json:"at"`
}

// DashboardPayload tells clients to refetch the dashboard. Changes counts the
// change events folded into this refresh.
type DashboardPayload struct {
	Changes int `json:"changes"`
}

// NoticePayload carries a user-facing message.
type NoticePayload struct {
	Message string `json:"message"`
}

// Broker fans events out to subscribed streams. The subscriber set, the
// frame sequence and the dashboard refresh state belong to the loop started
// by NewBroker; every method reaches them through a channel.
//
// Dashboard refreshes are rate limited: the first change after a quiet
// interval refreshes at once, later changes inside the interval are folded
// into one trailing refresh when it ends.
type Broker struct {
	refreshEvery time.Duration

	join   chan chan []byte
	leave  chan chan []byte
	events chan Event
	counts chan chan int

	quit    chan struct{}
	done    chan struct{}
	closing atomic.Bool
}

// NewBroker starts a broker that refreshes the dashboard at most once per
// refreshEvery (2s when not positive).
func NewBroker(refreshEvery time.Duration) *Broker {
	if refreshEvery <= 0 {
		refreshEvery = 2 * time.Second
	}
	b := &Broker{
		refreshEvery: refreshEvery,
		join:         make(chan chan []byte),
		leave:        make(chan chan []byte),
		events:       make(chan Event, 256),
		counts:       make(chan chan int),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go b.loop()
	return b
}

// dashboard tracks pending refreshes inside the loop.
type dashboard struct {
	last    time.Time
	pending int
	timer   *time.Timer
	fire    <-chan time.Time
}

func (b *Broker) loop() {
	defer close(b.done)

	subs := make(map[chan []byte]struct{})
	var seq uint64
	var dash dashboard

	send := func(ev Event) {
		seq++
		frame, err := encodeFrame(seq, ev)
		if err != nil {
			return
		}
		for ch := range subs {
			select {
			case ch <- frame:
			default:
				// slow subscriber, frame dropped
			}
		}
	}
	refresh := func(now time.Time) {
		send(Event{Type: TypeDashboard, Data: DashboardPayload{Changes: dash.pending}})
		dash.last = now
		dash.pending = 0
	}

	for {
		select {
		case <-b.quit:
			if dash.timer != nil {
				dash.timer.Stop()
			}
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.join:
			subs[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case resp := <-b.counts:
			resp <- len(subs)

		case ev := <-b.events:
			send(ev)
			if _, isChange := ev.Data.(ChangePayload); !isChange {
				continue
			}
			dash.pending++
			now := time.Now()
			wait := b.refreshEvery - now.Sub(dash.last)
			switch {
			case wait <= 0:
				refresh(now)
			case dash.fire == nil:
				dash.timer = time.NewTimer(wait)
				dash.fire = dash.timer.C
			}

		case now := <-dash.fire:
			dash.timer, dash.fire = nil, nil
			refresh(now)
		}
	}
}

// encodeFrame renders ev as one SSE frame with sequence id seq.
func encodeFrame(seq uint64, ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(seq, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closing.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a new stream. The channel is closed by Unsubscribe or
// Close; after Close it is returned already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closing.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes ch and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closing.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of subscribed streams.
func (b *Broker) ClientCount() int {
	if b.closing.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.counts <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish queues ev for every subscriber. Events with a ChangePayload also
// schedule a dashboard refresh.
func (b *Broker) Publish(ev Event) {
	if b.closing.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// PublishChange announces a tracker change such as "item.renewed" for the
// record id (empty for collection-wide changes).
func (b *Broker) PublishChange(kind, id string) {
	b.Publish(Event{Type: kind, Data: ChangePayload{ID: id, At: time.Now().UTC()}})
}

// PublishNotice broadcasts a reminder or status message.
func (b *Broker) PublishNotice(message string) {
	b.Publish(Event{Type: TypeNotice, Data: NoticePayload{Message: message}})
}

// ServeHTTP streams events to one client until it disconnects or the broker
// closes (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
