package batch

import (
	"sync"

	"namewise/internal/errors"
	"namewise/pkg/types"
)

// Decision is the user's verdict on one suggestion.
type Decision int

const (
	Pending Decision = iota
	Approved
	Rejected
)

func (d Decision) String() string {
	switch d {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// State is the coarse lifecycle of a ledger.
type State int

const (
	Idle State = iota
	Analyzing
	Reviewing
	Applying
	Completed
)

func (s State) String() string {
	switch s {
	case Analyzing:
		return "analyzing"
	case Reviewing:
		return "reviewing"
	case Applying:
		return "applying"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

var (
	// ErrWrongState is returned when an operation is not valid in the
	// ledger's current state.
	ErrWrongState = errors.New("operation not allowed in current batch state")
	// ErrNothingApproved is returned by ApplyApproved without approved items.
	ErrNothingApproved = errors.New("no approved suggestions to apply")
	// ErrNothingToRetry is returned by RetryFailed when the last apply had
	// no failures.
	ErrNothingToRetry = errors.New("no failed renames to retry")
)

// Failure is one rename that did not happen.
type Failure struct {
	Entry types.FileEntry
	Kind  errors.RenameErrorKind
	Err   error
}

// Renamed is one rename that did happen.
type Renamed struct {
	Entry   types.FileEntry
	NewPath string
}

// Summary reports the outcome of one apply run.
type Summary struct {
	BatchID   string
	Approved  int
	Succeeded int
	Renamed   []Renamed
	Failed    []Failure
}

// Item is the read-only view of one candidate.
type Item struct {
	Entry         types.FileEntry
	Suggestion    string
	HasSuggestion bool
	Decision      Decision
	// Fallback is true when the suggestion was derived locally from the
	// current name instead of coming from the analyzer.
	Fallback bool
}

// Snapshot is an immutable view of a ledger for front ends.
type Snapshot struct {
	ID        string
	State     State
	Items     []Item
	Processed int
	Total     int
	Approved  int
	Succeeded int
}

// Ledger is the mutable record of one batch: its candidates, their
// suggestions, and the user's decisions. A decision exists only for entries
// that have a suggestion. All methods are safe for concurrent use.
type Ledger struct {
	id string
	p  *Pipeline

	mu          sync.Mutex
	state       State
	candidates  []types.FileEntry
	suggestions map[string]string
	decisions   map[string]Decision
	fallbacks   map[string]bool
	processed   int
	succeeded   int
	lastFailed  []types.FileEntry
	subs        []chan Event
}

// ID returns the batch identifier used in the rename journal.
func (l *Ledger) ID() string {
	return l.id
}

// State returns the current lifecycle state.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Candidates returns the filtered, deduplicated candidates in input order.
func (l *Ledger) Candidates() []types.FileEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.FileEntry, len(l.candidates))
	copy(out, l.candidates)
	return out
}

// Suggestion returns the current suggestion for entry, if any.
func (l *Ledger) Suggestion(entry types.FileEntry) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.suggestions[entry.Key()]
	return s, ok
}

// Decision returns the decision for entry, if it has one.
func (l *Ledger) Decision(entry types.FileEntry) (Decision, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.decisions[entry.Key()]
	return d, ok
}

// Snapshot copies the ledger for display.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		ID:        l.id,
		State:     l.state,
		Items:     make([]Item, 0, len(l.candidates)),
		Processed: l.processed,
		Total:     len(l.candidates),
		Succeeded: l.succeeded,
	}
	for _, c := range l.candidates {
		key := c.Key()
		s, ok := l.suggestions[key]
		item := Item{
			Entry:         c,
			Suggestion:    s,
			HasSuggestion: ok,
			Decision:      l.decisions[key],
			Fallback:      l.fallbacks[key],
		}
		if item.Decision == Approved {
			snap.Approved++
		}
		snap.Items = append(snap.Items, item)
	}
	return snap
}

// editable reports whether user decisions may change. Must hold l.mu.
func (l *Ledger) editable() bool {
	return l.state == Analyzing || l.state == Reviewing
}

// setDecisionLocked records d and publishes the change. Must hold l.mu.
func (l *Ledger) setDecisionLocked(entry types.FileEntry, d Decision) {
	key := entry.Key()
	if cur, ok := l.decisions[key]; ok && cur == d {
		return
	}
	l.decisions[key] = d
	l.publish(Event{Kind: DecisionChanged, Entry: entry, Decision: d, Suggestion: l.suggestions[key]})
}

// SetDecision sets the decision for entry. It is a no-op, returning false,
// when the entry has no suggestion yet or the ledger is past review.
func (l *Ledger) SetDecision(entry types.FileEntry, d Decision) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.editable() {
		return false
	}
	if _, ok := l.suggestions[entry.Key()]; !ok {
		return false
	}
	l.setDecisionLocked(entry, d)
	return true
}

// Toggle flips Approved and Rejected, and approves a Pending entry. It
// returns the new decision; entries without a suggestion are left alone.
func (l *Ledger) Toggle(entry types.FileEntry) (Decision, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := entry.Key()
	if !l.editable() {
		return l.decisions[key], false
	}
	if _, ok := l.suggestions[key]; !ok {
		return Pending, false
	}

	next := Approved
	if l.decisions[key] == Approved {
		next = Rejected
	}
	l.setDecisionLocked(entry, next)
	return next, true
}

// EditSuggestion replaces the suggestion for entry. Editing a rejected entry
// approves it. Entries without a suggestion are left alone.
func (l *Ledger) EditSuggestion(entry types.FileEntry, name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := entry.Key()
	if !l.editable() {
		return false
	}
	if _, ok := l.suggestions[key]; !ok {
		return false
	}

	l.suggestions[key] = name
	delete(l.fallbacks, key)
	l.publish(Event{Kind: SuggestionArrived, Entry: entry, Suggestion: name, Decision: l.decisions[key]})

	if l.decisions[key] == Rejected {
		l.setDecisionLocked(entry, Approved)
	}
	return true
}

// ApproveAll approves every entry that has a suggestion.
func (l *Ledger) ApproveAll() int {
	return l.decideAll(Approved)
}

// RejectAll rejects every entry that has a suggestion.
func (l *Ledger) RejectAll() int {
	return l.decideAll(Rejected)
}

func (l *Ledger) decideAll(d Decision) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.editable() {
		return 0
	}
	n := 0
	for _, c := range l.candidates {
		if _, ok := l.suggestions[c.Key()]; ok {
			l.setDecisionLocked(c, d)
			n++
		}
	}
	return n
}

// approvedLocked returns approved entries with their sanitized targets in
// candidate order. Must hold l.mu.
func (l *Ledger) approvedLocked() ([]types.FileEntry, []string) {
	var entries []types.FileEntry
	var targets []string
	for _, c := range l.candidates {
		if l.decisions[c.Key()] == Approved {
			entries = append(entries, c)
			targets = append(targets, Sanitize(l.suggestions[c.Key()]))
		}
	}
	return entries, targets
}

// setStateLocked moves to s and publishes the change. Must hold l.mu.
func (l *Ledger) setStateLocked(s State) {
	if l.state == s {
		return
	}
	l.state = s
	l.publish(Event{Kind: StateChanged})
}
