package eventstream

import "context"

// Publisher publishes commit events to an event stream backend.
type Publisher interface {
	PublishCommit(ctx context.Context, event *MemoryCommittedEvent) error
	Close() error
}
