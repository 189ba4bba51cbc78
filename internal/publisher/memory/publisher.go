// Package memory holds an in-process publisher used in tests and when no
// Pub/Sub project is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Event is one recorded publish.
type Event struct {
	Topic string
	Data  []byte
}

// Publisher records run events instead of sending them anywhere.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
	err    error
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes every subsequent Publish return err.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish marshals the payload the same way the Pub/Sub publisher would and
// records it.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, Event{Topic: topic, Data: data})
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
