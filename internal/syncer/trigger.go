package syncer

// Trigger names an event that should start a sync cycle.
type Trigger int

const (
	// TriggerPush asks for a push of the current local snapshot.
	TriggerPush Trigger = iota + 1
	// TriggerPull asks for a fetch-and-merge (which pushes afterwards).
	TriggerPull
)

// TriggerBus coalesces sync triggers into at most one pending cycle.
// Mutation effects, connectivity changes, and timers all publish here;
// the daemon's single consumer loop drains it, so bursts of triggers
// collapse instead of fanning out into parallel cycles.
type TriggerBus struct {
	ch chan Trigger
}

// NewTriggerBus creates a bus with a single pending slot.
func NewTriggerBus() *TriggerBus {
	return &TriggerBus{ch: make(chan Trigger, 1)}
}

// Request publishes a trigger without blocking. When a cycle is already
// pending the request coalesces into it; a pending push is upgraded to a
// pull (a pull subsumes a push), never downgraded.
func (b *TriggerBus) Request(t Trigger) {
	select {
	case b.ch <- t:
		return
	default:
	}
	if t != TriggerPull {
		return
	}
	// Swap out a pending push for the pull.
	select {
	case <-b.ch:
	default:
	}
	select {
	case b.ch <- t:
	default:
	}
}

// C is the consumer side of the bus.
func (b *TriggerBus) C() <-chan Trigger {
	return b.ch
}
