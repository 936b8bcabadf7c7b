package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/careers-portal/internal/drafts"
)

type failingCommand struct{}

func (failingCommand) Apply(context.Context) error { return errors.New("boom") }
func (failingCommand) Revert(context.Context) {}
func (failingCommand) String() string { return "failing" }

func TestLedger_RevertAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := drafts.Open[string](ctx, drafts.NewMemoryBackend(), "k")
	var l Ledger

	first, second := "first", "second"
	require.NoError(t, l.Do(ctx, newDraftCommand(store, "0", &drafts.Draft[string]{Record: &first})))
	require.NoError(t, l.Do(ctx, newDraftCommand(store, "0", &drafts.Draft[string]{Record: &second})))
	require.NoError(t, l.Do(ctx, newDraftCommand(store, "1", &drafts.Draft[string]{Deleted: true, DeletedID: "9"})))
	assert.Equal(t, 3, l.Len())

	d, _ := store.Get("0")
	assert.Equal(t, "second", *d.Record)

	assert.Equal(t, 3, l.RevertAll(ctx))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, l.Len())
}

func TestLedger_FailedApplyNotRecorded(t *testing.T) {
	var l Ledger
	err := l.Do(context.Background(), failingCommand{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply failing")
	assert.Equal(t, 0, l.Len())
}

func TestLedger_Commit(t *testing.T) {
	ctx := context.Background()
	store := drafts.Open[string](ctx, drafts.NewMemoryBackend(), "k")
	var l Ledger

	v := "x"
	require.NoError(t, l.Do(ctx, newDraftCommand(store, "0", &drafts.Draft[string]{Record: &v})))
	l.Commit()
	assert.Equal(t, 0, l.RevertAll(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestQueueCommands(t *testing.T) {
	ctx := context.Background()
	var q DeletionQueue
	var l Ledger

	require.NoError(t, l.Do(ctx, &queueCommand{queue: &q, item: PendingDeletion{ID: "1", Slot: "a"}}))
	require.NoError(t, l.Do(ctx, &queueCommand{queue: &q, item: PendingDeletion{ID: "1", Slot: "a"}}))
	assert.Equal(t, 1, q.Len())

	require.NoError(t, l.Do(ctx, &unqueueCommand{queue: &q, item: PendingDeletion{ID: "1"}}))
	assert.Equal(t, 0, q.Len())

	l.RevertAll(ctx)
	assert.Equal(t, 0, q.Len(), "reverting the duplicate add must not remove the original twice")
}

func TestDeletionQueue(t *testing.T) {
	var q DeletionQueue
	assert.True(t, q.Add(PendingDeletion{ID: "1", Slot: "a"}))
	assert.True(t, q.Add(PendingDeletion{ID: "2", Slot: "b"}))
	assert.False(t, q.Add(PendingDeletion{ID: "1", Slot: "c"}))

	q.Remove("1")
	assert.Equal(t, []PendingDeletion{{ID: "2", Slot: "b"}}, q.Items())
	q.Clear()
	assert.Zero(t, q.Len())
}

func TestBatchError(t *testing.T) {
	err := &BatchError{
		Section: "education",
		Failures: []SlotFailure{
			{Slot: "college", Op: OpDefine, Err: errors.New("500")},
			{Slot: "college", ID: "7", Op: OpDelete, Err: context.DeadlineExceeded},
		},
		Succeeded: 2,
	}
	assert.Equal(t, "some education changes did not save: 2 of 4 calls failed; define college: 500; delete college: context deadline exceeded", err.Error())
	assert.Equal(t, []string{"college"}, err.FailedSlots())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
