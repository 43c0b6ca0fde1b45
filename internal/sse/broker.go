// Package sse streams day change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to subscribers.
const (
	TypeDayCreated   = "day.created"
	TypeDayUpdated   = "day.updated"
	TypeDayDeleted   = "day.deleted"
	TypeStatsUpdated = "stats.updated"
)

var dayEventTypes = map[string]string{
	"created": TypeDayCreated,
	"updated": TypeDayUpdated,
	"deleted": TypeDayDeleted,
}

const (
	clientBuffer     = 64
	defaultHeartbeat = 30 * time.Second
)

// Event is one message for every subscriber. Data is sent as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", e.Type, err)
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

// hub is the state owned by the broker goroutine.
type hub struct {
	clients   map[chan []byte]struct{}
	lastStats time.Time
}

func (h *hub) send(e Event) {
	msg, err := e.frame()
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- msg:
		default: // a client that is not reading misses the event
		}
	}
}

// Broker fans events out to subscribed clients. All client bookkeeping
// runs on one goroutine; callers hand it closures over ops.
type Broker struct {
	statsEvery time.Duration
	heartbeat  time.Duration
	now        func() time.Time

	ops     chan func(*hub)
	quit    chan struct{}
	done    chan struct{}
	closing atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets how often idle streams get a comment line. Zero
// turns heartbeats off.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithClock overrides the time source of the stats throttle.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// NewBroker starts a broker that sends stats.updated at most once per
// statsEvery; a non-positive value means two seconds.
func NewBroker(statsEvery time.Duration, opts ...Option) *Broker {
	if statsEvery <= 0 {
		statsEvery = 2 * time.Second
	}
	b := &Broker{
		statsEvery: statsEvery,
		heartbeat:  defaultHeartbeat,
		now:        time.Now,
		ops:        make(chan func(*hub)),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)
	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case op := <-b.ops:
			op(h)
		case <-b.quit:
			for ch := range h.clients {
				close(ch)
			}
			return
		}
	}
}

// do runs op on the broker goroutine. It reports false once the broker
// is closed, in which case op never runs.
func (b *Broker) do(op func(*hub)) bool {
	if b.closing.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close disconnects every client and stops the broker. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closing.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The channel is closed on Unsubscribe or
// Close, and is returned already closed after Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.do(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of subscribed clients.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.do(func(h *hub) { n <- len(h.clients) }) {
		return 0
	}
	select {
	case v := <-n:
		return v
	case <-b.done:
		return 0
	}
}

// Publish sends e to every client.
func (b *Broker) Publish(e Event) {
	b.do(func(h *hub) { h.send(e) })
}

// PublishDayEvent announces that the day with key date was created,
// updated or deleted, followed by stats.updated unless one went out within
// the throttle interval. Other kinds are ignored.
func (b *Broker) PublishDayEvent(kind, date string) {
	typ, ok := dayEventTypes[kind]
	if !ok {
		return
	}
	data := map[string]string{"date": date}
	b.do(func(h *hub) {
		h.send(Event{Type: typ, Data: data})
		if now := b.now(); now.Sub(h.lastStats) >= b.statsEvery {
			h.lastStats = now
			h.send(Event{Type: TypeStatsUpdated, Data: data})
		}
	})
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var ping <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		ping = t.C
	}
	write := func(p []byte) {
		_, _ = w.Write(p)
		flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping:
			write([]byte(": ping\n\n"))
		case msg, open := <-ch:
			if !open {
				return
			}
			write(msg)
		}
	}
}
