package events

import (
	"context"
	"sync"
)

// MemoryPublisher records events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []FileUpdated
	bodies [][]byte

	// Err, when set, is returned by PublishFileUpdated.
	Err error
}

// NewMemoryPublisher creates an empty recorder.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// PublishFileUpdated records the event and its encoded body.
func (m *MemoryPublisher) PublishFileUpdated(ctx context.Context, event FileUpdated) error {
	if m.Err != nil {
		return m.Err
	}
	body, err := encode(event)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.bodies = append(m.bodies, body)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []FileUpdated {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FileUpdated(nil), m.events...)
}

// Bodies returns the encoded message bodies.
func (m *MemoryPublisher) Bodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.bodies...)
}

// Close does nothing.
func (m *MemoryPublisher) Close(ctx context.Context) error { return nil }
