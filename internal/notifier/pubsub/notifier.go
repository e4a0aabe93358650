// Package pubsub implements a Google Cloud Pub/Sub change notifier.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// Notifier publishes change events to Pub/Sub topics.
type Notifier struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// New creates a Notifier for the provided client.
func New(client *pubsub.Client) (*Notifier, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	return &Notifier{
		client: client,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

// Publish marshals the payload to JSON and publishes it, returning the
// server-assigned message ID.
func (n *Notifier) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	result := n.topic(topic).Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close stops all topic publish goroutines and releases the client.
func (n *Notifier) Close() error {
	n.mu.Lock()
	for _, t := range n.topics {
		t.Stop()
	}
	n.mu.Unlock()

	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

func (n *Notifier) topic(name string) *pubsub.Topic {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.topics[name]; ok {
		return t
	}
	t := n.client.Topic(name)
	n.topics[name] = t
	return t
}
