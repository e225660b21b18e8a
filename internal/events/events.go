// Package events provides the fan-out broadcaster that notifies observers of
// orchestrator state transitions in real time.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier/internal/logger"
)

// EventType represents the type of orchestrator event
type EventType string

const (
	// EventJobClaimed is emitted when a worker claims a queued job
	EventJobClaimed EventType = "job.claimed"
	// EventJobCompleted is emitted when a job finishes successfully
	EventJobCompleted EventType = "job.completed"
	// EventJobRetried is emitted when a failed job re-enters the queue
	EventJobRetried EventType = "job.retried"
	// EventJobFailed is emitted when a job exhausts its retries
	EventJobFailed EventType = "job.failed"
	// EventProofCreated is emitted when a handler attaches evidence to a job
	EventProofCreated EventType = "proof.created"
	// EventGoalScored is emitted when the scoring engine updates a goal score
	EventGoalScored EventType = "goal.scored"
	// EventRunUpdated is emitted when a pipeline run advances or finishes
	EventRunUpdated EventType = "run.updated"
)

// DefaultBufferSize is the per-subscriber event buffer size
const DefaultBufferSize = 100

// Event represents one orchestrator state transition
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	ProjectID uint                   `json:"project_id"`
	JobID     *uint                  `json:"job_id,omitempty"`
	GoalID    *uint                  `json:"goal_id,omitempty"`
	RunID     *uint                  `json:"run_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Subscriber is one observer's handle onto the broadcast stream. Events are
// consumed from C; the buffer is bounded and the oldest event is dropped when
// the subscriber falls behind.
type Subscriber struct {
	C chan Event

	dropped int
}

// Broadcaster fans events out to all current subscribers. Publishing never
// blocks on a slow observer, so queue and worker progress is independent of
// how fast UI clients drain their streams.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[*Subscriber]struct{}
	bufSize int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer
// size; zero or negative means DefaultBufferSize.
func NewBroadcaster(bufSize int) *Broadcaster {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Broadcaster{
		subs:    make(map[*Subscriber]struct{}),
		bufSize: bufSize,
	}
}

// Subscribe registers a new observer and returns its handle.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan Event, b.bufSize)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	logger.Debugf("Event subscriber registered (%d total)", b.Len())
	return sub
}

// Unsubscribe removes an observer and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.C)
	if sub.dropped > 0 {
		logger.Debugf("Event subscriber removed after dropping %d events", sub.dropped)
	}
}

// Len returns the number of current subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish fans the event out to every subscriber. Delivery is best-effort:
// when a subscriber's buffer is full its oldest pending event is dropped to
// make room, keeping per-subscriber order for what is delivered.
func (b *Broadcaster) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub.C <- event:
		default:
			// Full buffer: evict the oldest event, then retry once. The
			// second send can still miss if a reader drained the channel in
			// between, which leaves room anyway.
			select {
			case <-sub.C:
				sub.dropped++
			default:
			}
			select {
			case sub.C <- event:
			default:
				sub.dropped++
			}
		}
	}
}
