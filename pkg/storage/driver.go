// Package storage defines the persistence interface for memory records.
// Backends are pluggable via configuration:
//
//	[storage]
//	driver = "sqlite"   # or "postgres", "inmemory"
package storage

import (
	"context"
	"time"

	"github.com/memoirhq/memoir/pkg/memory"
)

// Record pairs a stored memory with its identity: the opaque key under which
// it is stored, stable across updates-in-place and freshly allocated on create.
type Record struct {
	ID     string
	Memory *memory.Memory
}

// Driver is the interface for persisting and querying memory records.
// Implementations own the physical record lifetime; the identity decision
// (create vs. overwrite) belongs to the committer.
type Driver interface {
	// Save persists a memory. An empty id allocates a fresh identity;
	// a non-empty id overwrites that record in place. Returns the identity
	// the memory was stored under.
	Save(ctx context.Context, m *memory.Memory, id string) (string, error)

	// Get retrieves a single memory by identity.
	// Returns NotFoundError if no such record exists.
	Get(ctx context.Context, id string) (*memory.Memory, error)

	// Delete removes a single record by identity. Deleting a missing
	// record is a no-op.
	Delete(ctx context.Context, id string) error

	// List returns every record in the store, expired or not.
	List(ctx context.Context) ([]Record, error)

	// LoadLive returns the non-expired records for a scope as of ref,
	// in stable identity order.
	LoadLive(ctx context.Context, scope memory.Scope, ref time.Time) ([]Record, error)

	// FindLiveByTitle returns the first non-expired record in the scope
	// whose title matches exactly, or NotFoundError.
	FindLiveByTitle(ctx context.Context, scope memory.Scope, title string, ref time.Time) (*Record, error)

	// SweepExpired deletes every record expired as of ref, across all
	// scopes, and returns the deleted records so callers can purge
	// attachments. Safe to run concurrently; idempotent.
	SweepExpired(ctx context.Context, ref time.Time) ([]Record, error)

	// Close releases backend resources.
	Close() error
}
