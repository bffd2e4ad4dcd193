// Package sse streams corpus changes to browser and agent clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/agx/internal/ident"
)

// Event types emitted by the broker.
const (
	TypeProposalCreated = "proposal.created"
	TypeProposalUpdated = "proposal.updated"
	TypeProposalDeleted = "proposal.deleted"
	TypeGraphUpdated    = "graph.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type proposalEventReq struct {
	kind string
	path string
}

// ProposalData is the payload of proposal.* events. ID is empty when the
// file name carries no proposal id.
type ProposalData struct {
	Path string `json:"path"`
	ID   string `json:"id,omitempty"`
}

func proposalData(path string) ProposalData {
	d := ProposalData{Path: path}
	if id, ok := ident.FileID(filepath.Base(path)); ok {
		d.ID = id.String()
	}
	return d
}

var proposalEventTypes = map[string]string{
	"created": TypeProposalCreated,
	"updated": TypeProposalUpdated,
	"deleted": TypeProposalDeleted,
}

// Replay and keep-alive tuning.
const (
	replayLimit = 32
	keepAlive   = 15 * time.Second
)

type subscription struct {
	ch    chan []byte
	after string // Last-Event-ID reported by a reconnecting client
}

type record struct {
	id  string
	msg []byte
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the replay backlog and
// the graph throttle timestamp; public methods talk to it over channels.
type Broker struct {
	graphMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	proposalCh    chan proposalEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph throttle interval.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		proposalCh:    make(chan proposalEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func format(id string, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", id, event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	backlog := make([]record, 0, replayLimit)
	var lastGraph time.Time

	send := func(ch chan []byte, msg []byte) {
		select {
		case ch <- msg:
		default:
			// slow client, drop
		}
	}

	broadcast := func(event Event) {
		id := uuid.NewString()
		msg, err := format(id, event)
		if err != nil {
			return
		}
		if len(backlog) == replayLimit {
			copy(backlog, backlog[1:])
			backlog = backlog[:replayLimit-1]
		}
		backlog = append(backlog, record{id: id, msg: msg})
		for ch := range clients {
			send(ch, msg)
		}
	}

	replay := func(sub subscription) {
		if sub.after == "" {
			return
		}
		for i, rec := range backlog {
			if rec.id != sub.after {
				continue
			}
			for _, missed := range backlog[i+1:] {
				send(sub.ch, missed.msg)
			}
			return
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			replay(sub)

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.proposalCh:
			typ, ok := proposalEventTypes[req.kind]
			if !ok {
				continue
			}
			broadcast(Event{Type: typ, Data: proposalData(req.path)})

			// References may have changed; redraws are throttled.
			now := time.Now()
			if now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				broadcast(Event{Type: TypeGraphUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom("")
}

// SubscribeFrom adds a client that first receives the buffered events
// published after lastEventID. An unknown id replays nothing.
func (b *Broker) SubscribeFrom(lastEventID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, after: lastEventID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishProposalEvent publishes a proposal change ("created", "updated" or
// "deleted") and a throttled graph.updated event. Its signature matches the
// catalog watcher callback.
func (b *Broker) PublishProposalEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.proposalCh <- proposalEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Clients that
// reconnect with a Last-Event-ID header get the events they missed.
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

	ch := b.SubscribeFrom(r.Header.Get("Last-Event-ID"))
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
