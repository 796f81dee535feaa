package wifi

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/puara/puara/internal/logging"
)

// DefaultEventQueue is the bridge capacity used when none is configured.
const DefaultEventQueue = 16

// Bridge carries platform events to the manager. Deliver never blocks the
// platform callback: when the queue is full the oldest queued event is
// dropped so the most recent state always gets through.
type Bridge struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewBridge creates a bridge holding up to capacity pending events.
func NewBridge(capacity int) *Bridge {
	if capacity <= 0 {
		capacity = DefaultEventQueue
	}
	return &Bridge{events: make(chan Event, capacity)}
}

// Deliver queues ev. It is safe to call from any goroutine.
func (b *Bridge) Deliver(ev Event) {
	for {
		select {
		case b.events <- ev:
			return
		default:
		}

		select {
		case old := <-b.events:
			b.dropped.Add(1)
			logging.Warn("WiFi event queue full, dropping oldest event",
				zap.Stringer("dropped", old.Kind),
				zap.Stringer("incoming", ev.Kind),
			)
		default:
		}
	}
}

// Events returns the receive side of the queue.
func (b *Bridge) Events() <-chan Event { return b.events }

// Pending returns the number of queued events.
func (b *Bridge) Pending() int { return len(b.events) }

// Dropped returns how many events were discarded on overflow.
func (b *Bridge) Dropped() uint64 { return b.dropped.Load() }
