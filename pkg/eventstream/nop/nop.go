// Package nop provides a no-op eventstream publisher for tests and disabled mode.
package nop

import (
	"context"

	"github.com/memoirhq/memoir/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishCommit validates input and otherwise does nothing.
func (p *Publisher) PublishCommit(_ context.Context, event *eventstream.MemoryCommittedEvent) error {
	if event == nil {
		return eventstream.ErrNilCommitEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
