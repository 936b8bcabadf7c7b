package drafts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

func TestStore_SetGetClear(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := Open[note](ctx, backend, "a1:notes")

	_, ok := s.Get("0")
	assert.False(t, ok)

	s.Set(ctx, "0", note{Text: "first"})
	s.Set(ctx, "0", note{Text: "second"})
	d, ok := s.Get("0")
	require.True(t, ok)
	require.NotNil(t, d.Record)
	assert.Equal(t, "second", d.Record.Text)
	assert.Equal(t, 1, s.Len())

	s.Clear(ctx, "0")
	_, ok = s.Get("0")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_MirrorsEveryMutation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := Open[note](ctx, backend, "a1:notes")

	s.Set(ctx, "1", note{Text: "x"})
	s.MarkDeleted(ctx, "0", "42")

	data, err := backend.Load(ctx, "a1:notes")
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":{"deleted":true,"deleted_id":"42"},"1":{"record":{"text":"x"}}}`, string(data))
}

func TestStore_RestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	first := Open[note](ctx, backend, "a1:notes")
	first.Set(ctx, "college", note{ID: "7", Text: "kept"})
	first.MarkDeleted(ctx, "graduate_school", "9")

	reloaded := Open[note](ctx, backend, "a1:notes")
	assert.Equal(t, []string{"college", "graduate_school"}, reloaded.Slots())

	d, ok := reloaded.Get("college")
	require.True(t, ok)
	assert.Equal(t, "kept", d.Record.Text)

	d, ok = reloaded.Get("graduate_school")
	require.True(t, ok)
	assert.True(t, d.Deleted)
	assert.Equal(t, "9", d.DeletedID)
}

func TestStore_ClearAllRemovesBackendKey(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := Open[note](ctx, backend, "a1:notes")
	s.Set(ctx, "0", note{Text: "x"})
	require.Len(t, backend.Keys(), 1)

	s.ClearAll(ctx)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, backend.Keys())
}

func TestStore_BackendFailuresAreBestEffort(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	backend := NewMemoryBackend().WithError(errors.New("disk full"))
	s := Open[note](ctx, backend, "a1:notes", WithLogger(logger))

	s.Set(ctx, "0", note{Text: "still here"})
	d, ok := s.Get("0")
	require.True(t, ok)
	assert.Equal(t, "still here", d.Record.Text)

	s.ClearAll(ctx)
	assert.Equal(t, 0, s.Len())
	assert.Contains(t, buf.String(), "disk full")
}

func TestStore_UnreadableSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(ctx, "a1:notes", []byte("not json")))

	s := Open[note](ctx, backend, "a1:notes", WithLogger(zerolog.Nop()))
	assert.Equal(t, 0, s.Len())
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	s := Open[note](ctx, NewMemoryBackend(), "k")
	s.Set(ctx, "0", note{Text: "x"})

	snap := s.Snapshot()
	delete(snap, "0")
	assert.Equal(t, 1, s.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "a1:education", Key("a1", KindEducation))
	assert.Equal(t, "a1:experienceList", Key("a1", KindExperience))
}

func TestDraft_JSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Draft[note]{Record: &note{Text: "x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"record":{"text":"x"}}`, string(data))
}
