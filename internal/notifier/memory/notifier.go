// Package memory contains an in-memory notifier for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Notifier stores published payloads for inspection.
type Notifier struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Publish records the message and returns a pseudo ID.
func (n *Notifier) Publish(_ context.Context, topic string, payload any) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, PublishedMessage{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(n.messages)), nil
}

// Messages returns the recorded publishes.
func (n *Notifier) Messages() []PublishedMessage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]PublishedMessage, len(n.messages))
	copy(out, n.messages)
	return out
}
