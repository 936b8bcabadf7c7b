package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/careers-portal/internal/drafts"
)

// Command is a local change applied ahead of the batch save. Revert undoes it.
type Command interface {
	Apply(ctx context.Context) error
	Revert(ctx context.Context)
	String() string
}

// Ledger records applied commands until they are confirmed by a successful
// save or undone by a discard.
type Ledger struct {
	mu   sync.Mutex
	cmds []Command
}

// Do applies cmd and records it. A command that fails to apply is not recorded.
func (l *Ledger) Do(ctx context.Context, cmd Command) error {
	if err := cmd.Apply(ctx); err != nil {
		return fmt.Errorf("apply %s: %w", cmd, err)
	}
	l.mu.Lock()
	l.cmds = append(l.cmds, cmd)
	l.mu.Unlock()
	return nil
}

// RevertAll undoes every recorded command, newest first, and empties the ledger.
func (l *Ledger) RevertAll(ctx context.Context) int {
	l.mu.Lock()
	cmds := l.cmds
	l.cmds = nil
	l.mu.Unlock()

	for i := len(cmds) - 1; i >= 0; i-- {
		cmds[i].Revert(ctx)
	}
	return len(cmds)
}

// Commit confirms every recorded command.
func (l *Ledger) Commit() {
	l.mu.Lock()
	l.cmds = nil
	l.mu.Unlock()
}

// Len returns the number of unconfirmed commands.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cmds)
}

// draftCommand moves one slot of a draft store from its previous state to
// next. A nil draft means the slot holds nothing.
type draftCommand[T any] struct {
	store *drafts.Store[T]
	slot  string
	prev  *drafts.Draft[T]
	next  *drafts.Draft[T]
}

func newDraftCommand[T any](store *drafts.Store[T], slot string, next *drafts.Draft[T]) *draftCommand[T] {
	cmd := &draftCommand[T]{store: store, slot: slot, next: next}
	if d, ok := store.Get(slot); ok {
		cmd.prev = &d
	}
	return cmd
}

func (c *draftCommand[T]) Apply(ctx context.Context) error {
	put(ctx, c.store, c.slot, c.next)
	return nil
}

func (c *draftCommand[T]) Revert(ctx context.Context) {
	put(ctx, c.store, c.slot, c.prev)
}

func (c *draftCommand[T]) String() string {
	switch {
	case c.next == nil:
		return fmt.Sprintf("clear draft %s", c.slot)
	case c.next.Deleted:
		return fmt.Sprintf("mark %s deleted", c.slot)
	default:
		return fmt.Sprintf("set draft %s", c.slot)
	}
}

func put[T any](ctx context.Context, store *drafts.Store[T], slot string, d *drafts.Draft[T]) {
	switch {
	case d == nil:
		store.Clear(ctx, slot)
	case d.Deleted:
		store.MarkDeleted(ctx, slot, d.DeletedID)
	case d.Record != nil:
		store.Set(ctx, slot, *d.Record)
	default:
		store.Clear(ctx, slot)
	}
}

// queueCommand adds a pending deletion.
type queueCommand struct {
	queue *DeletionQueue
	item  PendingDeletion
	added bool
}

func (c *queueCommand) Apply(context.Context) error {
	c.added = c.queue.Add(c.item)
	return nil
}

func (c *queueCommand) Revert(context.Context) {
	if c.added {
		c.queue.Remove(c.item.ID)
	}
}

func (c *queueCommand) String() string {
	return fmt.Sprintf("queue deletion of %s (%s)", c.item.Slot, c.item.ID)
}

// unqueueCommand removes a pending deletion.
type unqueueCommand struct {
	queue   *DeletionQueue
	item    PendingDeletion
	removed bool
}

func (c *unqueueCommand) Apply(context.Context) error {
	for _, it := range c.queue.Items() {
		if it.ID == c.item.ID {
			c.item = it
			c.removed = true
			c.queue.Remove(it.ID)
			return nil
		}
	}
	return nil
}

func (c *unqueueCommand) Revert(context.Context) {
	if c.removed {
		c.queue.Add(c.item)
	}
}

func (c *unqueueCommand) String() string {
	return fmt.Sprintf("unqueue deletion of %s (%s)", c.item.Slot, c.item.ID)
}
