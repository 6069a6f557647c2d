// Package committer reconciles free-form user messages into the memory store.
// A commit loads the scope's live memories, asks the extraction model whether
// the message creates a new event or updates an existing one, normalizes the
// result, persists it, and sweeps expired records.
package committer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memoirhq/memoir/pkg/eventstream"
	"github.com/memoirhq/memoir/pkg/extract"
	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

// PurgeFunc removes uploaded attachments that no live memory references.
type PurgeFunc func(ctx context.Context, urls []string) error

// Result reports what a commit did.
type Result struct {
	Action extract.Action
	ID     string
	Memory *memory.Memory
	Swept  []storage.Record
}

// Committer runs the reconciliation pipeline against a storage driver.
type Committer struct {
	store     storage.Driver
	extractor *extract.Extractor
	log       *zap.Logger
	publisher eventstream.Publisher
	purge     PurgeFunc
}

// Option configures a Committer.
type Option func(*Committer)

// WithPublisher emits a commit event after each successful commit.
func WithPublisher(pub eventstream.Publisher) Option {
	return func(c *Committer) {
		c.publisher = pub
	}
}

// WithPurger removes swept records' attachments after the post-commit sweep.
func WithPurger(purge PurgeFunc) Option {
	return func(c *Committer) {
		c.purge = purge
	}
}

// New creates a Committer. A nil logger disables logging.
func New(store storage.Driver, extractor *extract.Extractor, log *zap.Logger, opts ...Option) *Committer {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Committer{
		store:     store,
		extractor: extractor,
		log:       log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Commit reconciles one message into the store as of the reference date ref.
//
// The load-extract-save sequence is not synchronized: two concurrent commits
// against the same scope can both read the same live set and the later save
// wins. Callers that need stronger guarantees must serialize commits per
// scope themselves.
func (c *Committer) Commit(ctx context.Context, scope memory.Scope, message string, ref time.Time, attachmentURLs []string) (*Result, error) {
	ref = memory.Truncate(ref)

	live, err := c.store.LoadLive(ctx, scope, ref)
	if err != nil {
		return nil, fmt.Errorf("load live memories: %w", err)
	}

	prompt := extract.BuildPrompt(message, live, ref, attachmentURLs)

	raw, err := c.extractor.Extract(ctx, prompt)
	if err != nil {
		return nil, err
	}

	ex, err := extract.Normalize(raw, ref, extract.ExtractURLs(message))
	if err != nil {
		return nil, err
	}

	m := &memory.Memory{
		Target:      ex.Target,
		Expires:     ex.Expires,
		Content:     ex.Content,
		Title:       ex.Title,
		Time:        ex.Time,
		Place:       ex.Place,
		Attachments: ex.Attachments,
		Scope:       scope,
	}

	action, id, err := c.resolveIdentity(ctx, scope, ex, ref)
	if err != nil {
		return nil, err
	}

	id, err = c.store.Save(ctx, m, id)
	if err != nil {
		return nil, fmt.Errorf("save memory: %w", err)
	}

	c.log.Info("committed memory",
		zap.String("action", string(action)),
		zap.String("id", id),
		zap.String("scope_kind", string(scope.Kind)),
		zap.String("scope_id", scope.ID),
		zap.String("title", m.Title),
	)

	// The commit itself has succeeded at this point; sweep, purge, and
	// publish failures are logged, not returned.
	swept := c.sweep(ctx, ref)
	c.publish(ctx, scope, action, id, m, len(swept))

	return &Result{Action: action, ID: id, Memory: m, Swept: swept}, nil
}

// resolveIdentity decides whether the extraction lands on an existing record
// or allocates a new one. An update whose title matches nothing live falls
// back to create.
func (c *Committer) resolveIdentity(ctx context.Context, scope memory.Scope, ex *extract.Extraction, ref time.Time) (extract.Action, string, error) {
	if ex.Action == extract.ActionUpdate && ex.UpdateTitle != "" {
		rec, err := c.store.FindLiveByTitle(ctx, scope, ex.UpdateTitle, ref)
		if err == nil {
			return extract.ActionUpdate, rec.ID, nil
		}
		var notFound storage.NotFoundError
		if !errors.As(err, &notFound) {
			return "", "", fmt.Errorf("find memory %q: %w", ex.UpdateTitle, err)
		}
		c.log.Info("update target not found, creating instead",
			zap.String("update_title", ex.UpdateTitle),
		)
	}

	if ex.Slug != "" {
		return extract.ActionCreate, ex.Target.String() + "-" + ex.Slug, nil
	}

	return extract.ActionCreate, "", nil
}

func (c *Committer) sweep(ctx context.Context, ref time.Time) []storage.Record {
	swept, err := c.store.SweepExpired(ctx, ref)
	if err != nil {
		c.log.Warn("post-commit sweep failed", zap.Error(err))
		return nil
	}

	if len(swept) > 0 {
		c.log.Info("swept expired memories", zap.Int("count", len(swept)))
	}

	if c.purge == nil {
		return swept
	}

	var urls []string
	for _, rec := range swept {
		urls = append(urls, rec.Memory.Attachments...)
	}
	if len(urls) == 0 {
		return swept
	}

	if err := c.purge(ctx, urls); err != nil {
		c.log.Warn("attachment purge failed", zap.Error(err))
	}

	return swept
}

func (c *Committer) publish(ctx context.Context, scope memory.Scope, action extract.Action, id string, m *memory.Memory, sweptCount int) {
	if c.publisher == nil {
		return
	}

	event := &eventstream.MemoryCommittedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeMemoryCommitted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: eventstream.EventSource{
			ScopeKind: string(scope.Kind),
			ScopeID:   scope.ID,
		},
		Commit: eventstream.CommitMeta{
			Action:     string(action),
			MemoryID:   id,
			Title:      m.Title,
			Target:     m.Target.String(),
			Expires:    memory.FormatDate(m.Expires),
			SweptCount: sweptCount,
		},
	}

	if err := c.publisher.PublishCommit(ctx, event); err != nil {
		c.log.Warn("publish commit event failed", zap.Error(err))
	}
}
