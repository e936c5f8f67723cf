package batch

import (
	"namewise/pkg/types"
)

// EventKind identifies what changed in a ledger.
type EventKind int

const (
	StateChanged EventKind = iota
	SuggestionArrived
	DecisionChanged
	RenameFinished
)

func (k EventKind) String() string {
	switch k {
	case StateChanged:
		return "state changed"
	case SuggestionArrived:
		return "suggestion arrived"
	case DecisionChanged:
		return "decision changed"
	case RenameFinished:
		return "rename finished"
	default:
		return "unknown"
	}
}

// Event is published to subscribers after every ledger mutation.
type Event struct {
	Kind  EventKind
	State State
	Entry types.FileEntry
	// Suggestion and Decision are set for SuggestionArrived and DecisionChanged.
	Suggestion string
	Decision   Decision
	// NewPath and Err are set for RenameFinished.
	NewPath string
	Err     error
	// Processed and Total track analysis progress.
	Processed int
	Total     int
}

const subscriberBuffer = 256

// Subscribe returns a channel of ledger events and a function that stops
// delivery and closes the channel. Slow subscribers miss events rather than
// stalling the pipeline; Snapshot always has the full picture.
func (l *Ledger) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, sub := range l.subs {
			if sub == ch {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// publish must be called with l.mu held.
func (l *Ledger) publish(ev Event) {
	ev.State = l.state
	ev.Processed = l.processed
	ev.Total = len(l.candidates)
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
