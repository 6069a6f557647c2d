// Package inmemory provides a map-backed storage driver for tests and
// local development.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards the record map.
	mu sync.RWMutex

	// records maps identity -> serialized memory document.
	records map[string]map[string]any
}

// NewDriver creates a new in-memory storage driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]map[string]any),
	}
}

// Save persists a memory. An empty id allocates a fresh identity.
func (d *Driver) Save(_ context.Context, m *memory.Memory, id string) (string, error) {
	if m == nil {
		return "", errors.New("cannot store nil memory")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	d.records[id] = m.ToMap()
	return id, nil
}

// Get retrieves a memory by identity.
func (d *Driver) Get(_ context.Context, id string) (*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}
	return memory.FromMap(doc)
}

// Delete removes a record by identity. Missing records are a no-op.
func (d *Driver) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.records, id)
	return nil
}

// List returns every record in the store.
func (d *Driver) List(_ context.Context) ([]storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.snapshot(func(*memory.Memory) bool { return true })
}

// LoadLive returns the non-expired records for a scope, ordered by identity.
func (d *Driver) LoadLive(_ context.Context, scope memory.Scope, ref time.Time) ([]storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.snapshot(func(m *memory.Memory) bool {
		return m.Scope == scope && !m.IsExpired(ref)
	})
}

// FindLiveByTitle returns the first live record in a scope with an exact
// title match.
func (d *Driver) FindLiveByTitle(ctx context.Context, scope memory.Scope, title string, ref time.Time) (*storage.Record, error) {
	live, err := d.LoadLive(ctx, scope, ref)
	if err != nil {
		return nil, err
	}
	for i := range live {
		if live[i].Memory.Title == title {
			return &live[i], nil
		}
	}
	return nil, storage.NotFoundError{}
}

// SweepExpired deletes every expired record and returns the deleted pairs.
func (d *Driver) SweepExpired(_ context.Context, ref time.Time) ([]storage.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var deleted []storage.Record
	for id, doc := range d.records {
		m, err := memory.FromMap(doc)
		if err != nil {
			return nil, err
		}
		if m.IsExpired(ref) {
			delete(d.records, id)
			deleted = append(deleted, storage.Record{ID: id, Memory: m})
		}
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i].ID < deleted[j].ID })
	return deleted, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// snapshot collects matching records sorted by identity. Callers must hold
// at least a read lock.
func (d *Driver) snapshot(keep func(*memory.Memory) bool) ([]storage.Record, error) {
	records := make([]storage.Record, 0, len(d.records))
	for id, doc := range d.records {
		m, err := memory.FromMap(doc)
		if err != nil {
			return nil, err
		}
		if keep(m) {
			records = append(records, storage.Record{ID: id, Memory: m})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
