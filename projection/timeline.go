// Package projection builds local read models from observed events.
// Projections only consume; they never emit events or touch the broker.
package projection

import (
	"context"
	"sync"

	"chattr/contract"
	"chattr/domain"
	"chattr/domain/event"
)

// Timeline keeps a per-room view of observed traffic: message counts and
// the most recent messages. It is a permanent telemetry sink, so it guards
// itself — it runs outside the hub's serialization.
type Timeline struct {
	mu       sync.Mutex
	keep     int
	counts   map[string]uint64
	recent   map[string][]domain.Message
	presence map[string]int
}

func NewTimeline(keepPerRoom int) *Timeline {
	return &Timeline{
		keep:     keepPerRoom,
		counts:   make(map[string]uint64),
		recent:   make(map[string][]domain.Message),
		presence: make(map[string]int),
	}
}

var _ contract.EventSink = (*Timeline)(nil)

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt := e.(type) {
	case event.MessageReceived:
		t.counts[evt.Room]++
		window := append(t.recent[evt.Room], evt.Message)
		if len(window) > t.keep {
			window = window[len(window)-t.keep:]
		}
		t.recent[evt.Room] = window
	case event.UserEntered:
		t.presence[evt.Room]++
	case event.UserLeft:
		if t.presence[evt.Room] > 0 {
			t.presence[evt.Room]--
		}
	case event.RoomAbandoned:
		delete(t.counts, evt.Room)
		delete(t.recent, evt.Room)
		delete(t.presence, evt.Room)
	}
	return nil
}

// MessageCount reports how many messages a room has seen since start.
func (t *Timeline) MessageCount(room string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[room]
}

// Recent returns the trailing window of messages observed for a room.
func (t *Timeline) Recent(room string) []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.recent[room]))
	copy(out, t.recent[room])
	return out
}

// ObservedPresence reports entries minus departures for a room.
func (t *Timeline) ObservedPresence(room string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.presence[room]
}
