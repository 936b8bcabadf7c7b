// Package reconcile coordinates applicant drafts with the records backend:
// it stages edits and deletions locally and persists them in one batch save.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/careers-portal/internal/drafts"
	"github.com/jonathan/careers-portal/internal/validation"
)

// DefaultConcurrency bounds the number of calls a batch save runs at once.
const DefaultConcurrency = 4

// Repository is the remote store of one record kind.
type Repository[T any] interface {
	// List returns the persisted records of an applicant.
	List(ctx context.Context, applicantID string) ([]T, error)
	// Define creates the record when it has no id and updates it otherwise,
	// returning the stored record.
	Define(ctx context.Context, record T) (T, error)
	// Delete removes the records with the given ids.
	Delete(ctx context.Context, ids []string) error
}

// Hooks are callbacks into the enclosing workflow. Any may be nil. They run
// after the triggering operation has released the session.
type Hooks[T any] struct {
	// OnSave runs after a slot's record is written to the drafts.
	OnSave func(slot string, record T)
	// OnDelete runs after a slot is marked for deletion.
	OnDelete func(slot, id string)
	// OnDiscard runs after every unsaved change is dropped.
	OnDiscard func()
	// OnAllSaved runs after a batch save in which every call succeeded.
	OnAllSaved func()
}

// Config holds what every session needs.
type Config struct {
	ApplicantID string
	Backend     drafts.Backend
	Validator   *validation.Validator
	// Concurrency bounds parallel calls during a batch save.
	Concurrency int
	Logger      *zerolog.Logger
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Backend == nil {
		c.Backend = drafts.NewMemoryBackend()
	}
	if c.Validator == nil {
		c.Validator = validation.New()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		l := log.Logger
		c.Logger = &l
	}
	return c
}

// identity reads and writes the server id of a record.
type identity[T any] struct {
	id   func(T) string
	with func(rec T, id, applicantID string) T
}

// core is the state shared by every session kind: a draft store, the queue of
// pending deletions and the ledger of unconfirmed local changes.
type core[T any] struct {
	cfg     Config
	section string
	repo    Repository[T]
	ident   identity[T]
	hooks   Hooks[T]
	logger  zerolog.Logger

	mu      sync.Mutex
	store   *drafts.Store[T]
	pending DeletionQueue
	ledger  Ledger
	// queued holds hook calls to run once mu is released.
	queued []func()
}

func newCore[T any](ctx context.Context, cfg Config, section, kind string, repo Repository[T], ident identity[T], hooks Hooks[T]) *core[T] {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With().
		Str("applicant_id", cfg.ApplicantID).
		Str("section", section).
		Logger()

	c := &core[T]{
		cfg:     cfg,
		section: section,
		repo:    repo,
		ident:   ident,
		hooks:   hooks,
		logger:  logger,
	}
	c.store = drafts.Open[T](ctx, cfg.Backend, drafts.Key(cfg.ApplicantID, kind), drafts.WithLogger(logger))

	// Deletion markers survive a reload; rebuild the queue from them.
	for _, slot := range c.store.Slots() {
		if d, ok := c.store.Get(slot); ok && d.Deleted && d.DeletedID != "" {
			c.pending.Add(PendingDeletion{ID: d.DeletedID, Slot: slot})
		}
	}
	return c
}

// Pending returns the queued deletions.
func (c *core[T]) Pending() []PendingDeletion {
	return c.pending.Items()
}

// HasChanges reports whether there is anything a discard would drop.
func (c *core[T]) HasChanges() bool {
	return c.store.Len() > 0 || c.pending.Len() > 0 || c.ledger.Len() > 0
}

// Drafts returns a copy of the current drafts.
func (c *core[T]) Drafts() map[string]drafts.Draft[T] {
	return c.store.Snapshot()
}

// later queues a hook call. Caller holds c.mu.
func (c *core[T]) later(fn func()) {
	c.queued = append(c.queued, fn)
}

// flush runs queued hook calls outside the lock so hooks may call back into the session.
func (c *core[T]) flush() {
	c.mu.Lock()
	fns := c.queued
	c.queued = nil
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// setDraft writes record into slot through the ledger. Writing over a
// deletion marker unqueues its deletion.
func (c *core[T]) setDraft(ctx context.Context, slot string, record T) error {
	if d, ok := c.store.Get(slot); ok && d.Deleted && d.DeletedID != "" {
		if err := c.ledger.Do(ctx, &unqueueCommand{queue: &c.pending, item: PendingDeletion{ID: d.DeletedID, Slot: slot}}); err != nil {
			return err
		}
	}
	rec := record
	return c.ledger.Do(ctx, newDraftCommand(c.store, slot, &drafts.Draft[T]{Record: &rec}))
}

// clearDraft drops slot's draft through the ledger, unqueuing the deletion it carried.
func (c *core[T]) clearDraft(ctx context.Context, slot string) error {
	d, ok := c.store.Get(slot)
	if !ok {
		return nil
	}
	if d.Deleted && d.DeletedID != "" {
		if err := c.ledger.Do(ctx, &unqueueCommand{queue: &c.pending, item: PendingDeletion{ID: d.DeletedID, Slot: slot}}); err != nil {
			return err
		}
	}
	return c.ledger.Do(ctx, newDraftCommand[T](c.store, slot, nil))
}

// markDeleted hides slot and, when it holds a persisted record, queues its deletion.
func (c *core[T]) markDeleted(ctx context.Context, slot, persistedID string) error {
	if persistedID == "" {
		return c.clearDraft(ctx, slot)
	}
	if err := c.ledger.Do(ctx, newDraftCommand(c.store, slot, &drafts.Draft[T]{Deleted: true, DeletedID: persistedID})); err != nil {
		return err
	}
	return c.ledger.Do(ctx, &queueCommand{queue: &c.pending, item: PendingDeletion{ID: persistedID, Slot: slot}})
}

// discard reverts the ledger and wipes drafts and the deletion queue.
// Nothing is sent to the backend.
func (c *core[T]) discard(ctx context.Context, confirm bool) error {
	if c.HasChanges() && !confirm {
		return ErrConfirmationRequired
	}
	reverted := c.ledger.RevertAll(ctx)
	c.store.ClearAll(ctx)
	c.pending.Clear()

	c.logger.Info().Int("reverted", reverted).Msg("discarded unsaved changes")
	if c.hooks.OnDiscard != nil {
		c.later(c.hooks.OnDiscard)
	}
	return nil
}

// ClearDrafts drops every draft and queued deletion without reverting
// anything, as once the application has been submitted.
func (c *core[T]) ClearDrafts(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.ClearAll(ctx)
	c.pending.Clear()
	c.ledger.Commit()
}

// upsert is one record a batch save defines.
type upsert[T any] struct {
	slot   string
	record T
}

// batchResult collects the outcome of every call of a batch save.
type batchResult[T any] struct {
	defined  map[string]T
	deleted  []PendingDeletion
	failures []SlotFailure
}

func (r batchResult[T]) calls() int {
	return len(r.defined) + len(r.deleted) + len(r.failures)
}

// runBatch issues every define and delete concurrently and waits for all of
// them. A failed call does not stop the others.
func (c *core[T]) runBatch(ctx context.Context, upserts []upsert[T], deletions []PendingDeletion) batchResult[T] {
	res := batchResult[T]{defined: make(map[string]T, len(upserts))}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)

	for _, u := range upserts {
		g.Go(func() error {
			saved, err := c.repo.Define(ctx, u.record)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.failures = append(res.failures, SlotFailure{Slot: u.slot, ID: c.ident.id(u.record), Op: OpDefine, Err: err})
				return nil
			}
			res.defined[u.slot] = saved
			return nil
		})
	}
	for _, d := range deletions {
		g.Go(func() error {
			err := c.repo.Delete(ctx, []string{d.ID})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.failures = append(res.failures, SlotFailure{Slot: d.Slot, ID: d.ID, Op: OpDelete, Err: err})
				return nil
			}
			res.deleted = append(res.deleted, d)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// settlePartial keeps every draft after a failed batch but records what did
// succeed, so a retry only repeats idempotent work: created records get their
// new id stamped into the draft and completed deletions leave the queue.
func (c *core[T]) settlePartial(ctx context.Context, res batchResult[T]) {
	for slot, saved := range res.defined {
		if d, ok := c.store.Get(slot); ok && d.Record != nil && c.ident.id(*d.Record) == "" {
			stamped := c.ident.with(*d.Record, c.ident.id(saved), c.cfg.ApplicantID)
			c.store.Set(ctx, slot, stamped)
		}
	}
	for _, del := range res.deleted {
		c.pending.Remove(del.ID)
		if d, ok := c.store.Get(del.Slot); ok && d.Deleted && d.DeletedID == del.ID {
			c.store.MarkDeleted(ctx, del.Slot, "")
		}
	}
}

// settleSuccess clears drafts, queue and ledger after a fully successful batch.
func (c *core[T]) settleSuccess(ctx context.Context) {
	c.store.ClearAll(ctx)
	c.pending.Clear()
	c.ledger.Commit()
}

func (c *core[T]) batchError(res batchResult[T]) error {
	c.logger.Error().
		Int("failed", len(res.failures)).
		Int("succeeded", res.calls()-len(res.failures)).
		Msg("batch save partially failed")
	return &BatchError{
		Section:   c.section,
		Failures:  res.failures,
		Succeeded: res.calls() - len(res.failures),
	}
}

func (c *core[T]) allSaved() {
	if c.hooks.OnAllSaved != nil {
		c.later(c.hooks.OnAllSaved)
	}
}

func (c *core[T]) saved(slot string, record T) {
	if c.hooks.OnSave != nil {
		c.later(func() { c.hooks.OnSave(slot, record) })
	}
}

func (c *core[T]) deleted(slot, id string) {
	if c.hooks.OnDelete != nil {
		c.later(func() { c.hooks.OnDelete(slot, id) })
	}
}

func (c *core[T]) listError(err error) error {
	return fmt.Errorf("failed to load %s: %w", c.section, err)
}
