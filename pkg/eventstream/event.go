// Package eventstream defines transport-neutral event payloads emitted after
// memory commits, and the Publisher interface backends implement.
package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryCommitted is emitted after a message is reconciled into
	// the memory store.
	EventTypeMemoryCommitted = "memoir.memory.committed"
)

// MemoryCommittedEvent is a transport-neutral event payload for a committed
// memory.
type MemoryCommittedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Commit        CommitMeta  `json:"commit"`
}

// EventSource identifies the scope the commit ran against.
type EventSource struct {
	ScopeKind string `json:"scope_kind"`
	ScopeID   string `json:"scope_id"`
}

// CommitMeta captures what the reconciliation decided.
type CommitMeta struct {
	Action     string `json:"action"`
	MemoryID   string `json:"memory_id"`
	Title      string `json:"title,omitempty"`
	Target     string `json:"target"`
	Expires    string `json:"expires"`
	SweptCount int    `json:"swept_count"`
}
