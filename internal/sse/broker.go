// Package sse streams index change notifications to clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	PackageUpdated = "package.updated"
	PackageRemoved = "package.removed"
	IndexSynced    = "index.synced"
)

// Event is one message sent to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type changeSet struct {
	updated []string
	removed []string
}

// Broker fans index change events out to connected listeners.
//
// One goroutine owns the client set and the time of the last index.synced
// event; public methods talk to it over channels.
type Broker struct {
	syncMin time.Duration

	joins   chan chan []byte
	leaves  chan chan []byte
	events  chan Event
	changes chan changeSet
	counts  chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends at most one index.synced event per
// syncThrottle.
func NewBroker(syncThrottle time.Duration) *Broker {
	if syncThrottle <= 0 {
		syncThrottle = 2 * time.Second
	}

	b := &Broker{
		syncMin: syncThrottle,
		joins:   make(chan chan []byte),
		leaves:  make(chan chan []byte),
		events:  make(chan Event, 256),
		changes: make(chan changeSet, 64),
		counts:  make(chan chan int),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	subs := make(map[chan []byte]struct{})
	var lastSync time.Time

	broadcast := func(event Event) {
		raw, err := encode(event)
		if err != nil {
			return
		}
		for ch := range subs {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.joins:
			subs[ch] = struct{}{}

		case ch := <-b.leaves:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case event := <-b.events:
			broadcast(event)

		case cs := <-b.changes:
			for _, name := range cs.updated {
				broadcast(Event{Type: PackageUpdated, Data: map[string]string{"name": name}})
			}
			for _, name := range cs.removed {
				broadcast(Event{Type: PackageRemoved, Data: map[string]string{"name": name}})
			}

			now := time.Now()
			if now.Sub(lastSync) >= b.syncMin {
				lastSync = now
				broadcast(Event{Type: IndexSynced, Data: map[string]int{
					"updated": len(cs.updated),
					"removed": len(cs.removed),
				}})
			}

		case resp := <-b.counts:
			resp <- len(subs)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a listener. The channel is closed on Unsubscribe
// or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.joins <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe drops a listener registered by Subscribe.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaves <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected subs.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.counts <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected subs.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- event:
	case <-b.stopped:
	}
}

// PublishChanges announces the packages one index sync updated or removed,
// followed by a throttled index.synced event. Empty change sets are
// ignored.
func (b *Broker) PublishChanges(updated, removed []string) {
	if b.closed.Load() || len(updated)+len(removed) == 0 {
		return
	}
	select {
	case b.changes <- changeSet{updated: updated, removed: removed}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
