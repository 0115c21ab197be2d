// Package bus is the observable event stream of the command pipeline.
// The dispatcher publishes what happened; the flow display subscribes to the
// types it renders, and the transcript writer receives a read-only tap of
// every event.
package bus

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the payload type of a pipeline event.
type EventType string

const (
	EvtCommandReceived EventType = "command_received" // raw user text accepted
	EvtActionParsed    EventType = "action_parsed"    // interpreter produced an action
	EvtAnswerSaved     EventType = "answer_saved"
	EvtAnswerRemoved   EventType = "answer_removed"
	EvtNavigation      EventType = "navigation" // position changed (next/prev/goto/skip)
	EvtFeedback        EventType = "feedback"   // user-facing message emitted
	EvtCommandError    EventType = "command_error"
	EvtSessionStarted  EventType = "session_started"
	EvtSessionReset    EventType = "session_reset"
	EvtTestCompleted   EventType = "test_completed"
)

// Event is the envelope for everything published on the bus.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

const (
	subscriberBufSize = 64
	tapBufSize        = 256
)

// Bus fans events out to per-type subscribers and a single tap channel.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	tapCh       chan Event
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		tapCh:       make(chan Event, tapBufSize),
	}
}

// Publish fans out an event of the given type. ID and timestamp are filled
// here. Non-blocking: if a subscriber's channel is full, the event is
// dropped with a warning.
func (b *Bus) Publish(t EventType, sessionID, detail string, payload any) {
	evt := Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      t,
		SessionID: sessionID,
		Detail:    detail,
		Payload:   payload,
	}

	b.mu.RLock()
	subs := b.subscribers[t]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[BUS] WARNING: subscriber channel full for type=%s, event dropped", t)
		}
	}

	// Send to tap (transcript). Non-blocking so a stalled writer never
	// backpressures the command pipeline.
	select {
	case b.tapCh <- evt:
	default:
		log.Printf("[BUS] WARNING: tap channel full, transcript event dropped type=%s", t)
	}
}

// Subscribe returns a receive-only channel delivering events of type t.
// Each call creates a new independent subscriber channel.
func (b *Bus) Subscribe(t EventType) <-chan Event {
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[t] = append(b.subscribers[t], ch)
	b.mu.Unlock()
	return ch
}

// Tap returns the read-only tap channel for the transcript writer.
// Only one consumer should call this; repeated calls return the same channel.
func (b *Bus) Tap() <-chan Event {
	return b.tapCh
}
