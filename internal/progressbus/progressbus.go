/*
Package progressbus implements the Progress Bus described in SPEC_FULL.md
§6: a publish/subscribe hub fanning job events out to connected client
sessions grouped by room, one room per job.

It generalizes cuemby/warren's pkg/events.Broker — a single global
best-effort broadcast channel — into one broker keyed by room, with an
explicit overflow policy: a slow subscriber's full queue drops its oldest
queued non-terminal event to make room for the newest one, and never drops
a queued terminal event.
*/
package progressbus

import (
	"sync"
	"time"

	"github.com/cuemby/energyplan-orchestrator/internal/logging"
)

// EventType is the kind of event carried in an Event envelope.
type EventType string

const (
	EventStatus    EventType = "status"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
	EventError     EventType = "error"
)

// Event is one message published to a room.
type Event struct {
	JobID     string      `json:"jobId"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SessionID identifies one connected client session.
type SessionID string

// subscriberQueueSize bounds how many buffered events a single subscriber
// can be behind the publisher before the overflow policy kicks in.
const subscriberQueueSize = 256

// subscriber is one session's view into one room: a bounded outbound
// queue. The rooms a session belongs to are tracked in Bus.membership.
type subscriber struct {
	id     SessionID
	queue  chan Event
	mu     sync.Mutex
	closed bool
}

func newSubscriber(id SessionID) *subscriber {
	return &subscriber{id: id, queue: make(chan Event, subscriberQueueSize)}
}

// deliver enqueues event, applying the overflow policy when the queue is
// full: the oldest queued non-terminal (status or progress) event is
// evicted to make room, so queued terminal events are never dropped and
// the rest keep their order. If every queued event is terminal, the new
// event is not queued.
func (s *subscriber) deliver(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- event:
		return
	default:
	}

	// Queue full: take the queued events out (deliver is the only sender,
	// so this cannot race another send), drop the oldest non-terminal
	// one, and put the rest back followed by event.
	var kept []Event
	for n := len(s.queue); n > 0; n-- {
		select {
		case ev := <-s.queue:
			kept = append(kept, ev)
		default:
		}
	}
	for i, ev := range kept {
		if ev.Type == EventProgress || ev.Type == EventStatus {
			kept = append(kept[:i], kept[i+1:]...)
			break
		}
	}
	for _, ev := range append(kept, event) {
		select {
		case s.queue <- ev:
		default:
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.queue)
}

// Bus is the process-wide Progress Bus. Publishers and subscribers never
// reference each other directly; all coupling goes through room names.
type Bus struct {
	mu    sync.RWMutex
	rooms map[string]map[SessionID]*subscriber
	// membership tracks which rooms each session belongs to, so
	// CloseSession doesn't need to scan every room.
	membership map[SessionID]map[string]bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		rooms:      make(map[string]map[SessionID]*subscriber),
		membership: make(map[SessionID]map[string]bool),
	}
}

// RoomName builds the room identifier for a (kind, jobId) pair, matching
// the "<kind>-job-<id>" convention from SPEC_FULL.md §6.
func RoomName(kind, jobID string) string {
	return kind + "-job-" + jobID
}

// Join adds session to room, creating both if necessary. Idempotent.
func (b *Bus) Join(session SessionID, room string) *Queue {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rooms[room] == nil {
		b.rooms[room] = make(map[SessionID]*subscriber)
	}
	sub, ok := b.rooms[room][session]
	if !ok {
		sub = newSubscriber(session)
		b.rooms[room][session] = sub
	}

	if b.membership[session] == nil {
		b.membership[session] = make(map[string]bool)
	}
	b.membership[session][room] = true

	return &Queue{ch: sub.queue}
}

// Leave removes session from room. Idempotent.
func (b *Bus) Leave(session SessionID, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(session, room)
}

func (b *Bus) leaveLocked(session SessionID, room string) {
	if subs, ok := b.rooms[room]; ok {
		if sub, ok := subs[session]; ok {
			sub.close()
			delete(subs, session)
		}
		if len(subs) == 0 {
			delete(b.rooms, room)
		}
	}
	if rooms, ok := b.membership[session]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(b.membership, session)
		}
	}
}

// CloseSession removes session from every room it belongs to and drains
// its queue. No error is raised to any in-flight publisher.
func (b *Bus) CloseSession(session SessionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rooms := b.membership[session]
	for room := range rooms {
		sub := b.rooms[room][session]
		b.leaveLocked(session, room)
		if sub != nil {
			for range sub.queue {
			}
		}
	}
}

// Publish delivers event to every current subscriber of room, in the
// order Publish is called. Non-blocking per subscriber: a full queue
// triggers the overflow policy instead of blocking the publisher.
func (b *Bus) Publish(room string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := b.rooms[room]
	targets := make([]*subscriber, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	log := logging.WithRoom(room)
	for _, s := range targets {
		s.deliver(event)
	}
	log.Debug().Str("type", string(event.Type)).Int("subscribers", len(targets)).Msg("published event")
}

// Queue is a subscriber's read-only view of its buffered events.
type Queue struct {
	ch chan Event
}

// C returns the channel to range/select over. It closes when the
// subscriber is removed from the bus (Leave or CloseSession).
func (q *Queue) C() <-chan Event {
	return q.ch
}
