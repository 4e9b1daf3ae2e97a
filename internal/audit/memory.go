package audit

import "sync"

// Memory is an in-memory Sink for tests and the demo command.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends the event.
func (m *Memory) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of everything recorded so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// LastDecision returns the decision of the most recent event, or "".
func (m *Memory) LastDecision() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return ""
	}
	return m.events[len(m.events)-1].Decision
}

// Discard is a Sink that drops everything. Useful when a caller constructs
// an authority purely for dry-run classification.
type Discard struct{}

func (Discard) Record(Event) {}
