// Package drafts holds unsaved, per-slot edits and mirrors them to a durable backend
// so a reload does not lose work in progress.
package drafts

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Draft is the unsaved state of one slot: either a replacement record or a
// deletion marker. A deletion marker may carry the id of the persisted record it hides.
type Draft[T any] struct {
	Record    *T     `json:"record,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
	DeletedID string `json:"deleted_id,omitempty"`
}

// Store is a slot-keyed draft map backed by a Backend under a single key.
// The in-memory copy is authoritative; backend writes are best effort.
type Store[T any] struct {
	key     string
	backend Backend
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	drafts map[string]Draft[T]
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	timeout time.Duration
	logger  *zerolog.Logger
}

// WithTimeout bounds each backend write.
func WithTimeout(d time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.timeout = d
	}
}

// WithLogger sets the logger used to report backend failures.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = &l
	}
}

// Open creates a store for key and restores any snapshot the backend holds.
// A missing or unreadable snapshot yields an empty store.
func Open[T any](ctx context.Context, backend Backend, key string, opts ...StoreOption) *Store[T] {
	o := storeOptions{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}

	s := &Store[T]{
		key:     key,
		backend: backend,
		timeout: o.timeout,
		logger:  logger.With().Str("draft_key", key).Logger(),
		drafts:  make(map[string]Draft[T]),
	}

	data, err := backend.Load(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load draft snapshot")
		return s
	}
	if len(data) == 0 {
		return s
	}
	var restored map[string]Draft[T]
	if err := json.Unmarshal(data, &restored); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable draft snapshot")
		return s
	}
	for slot, d := range restored {
		if d.Record != nil || d.Deleted {
			s.drafts[slot] = d
		}
	}
	return s
}

// Key returns the backend key of the store.
func (s *Store[T]) Key() string {
	return s.key
}

// Set overwrites or creates the draft for slot.
func (s *Store[T]) Set(ctx context.Context, slot string, record T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record
	s.drafts[slot] = Draft[T]{Record: &rec}
	s.mirror(ctx)
}

// MarkDeleted records that slot should be shown as removed. persistedID is the
// server id of the record being hidden, or empty when there is none.
func (s *Store[T]) MarkDeleted(ctx context.Context, slot, persistedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[slot] = Draft[T]{Deleted: true, DeletedID: persistedID}
	s.mirror(ctx)
}

// Get returns the draft for slot, if any.
func (s *Store[T]) Get(slot string) (Draft[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[slot]
	return d, ok
}

// Clear removes the draft for slot.
func (s *Store[T]) Clear(ctx context.Context, slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[slot]; !ok {
		return
	}
	delete(s.drafts, slot)
	s.mirror(ctx)
}

// ClearAll wipes every draft and the backend snapshot.
func (s *Store[T]) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts = make(map[string]Draft[T])

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete draft snapshot")
	}
}

// Len returns the number of slots holding a draft.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.drafts)
}

// Slots returns the slots holding a draft, sorted.
func (s *Store[T]) Slots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]string, 0, len(s.drafts))
	for slot := range s.drafts {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots
}

// Snapshot returns a copy of the draft map.
func (s *Store[T]) Snapshot() map[string]Draft[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Draft[T], len(s.drafts))
	for slot, d := range s.drafts {
		out[slot] = d
	}
	return out
}

// mirror writes the full map to the backend. Caller holds s.mu.
func (s *Store[T]) mirror(ctx context.Context) {
	data, err := json.Marshal(s.drafts)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode draft snapshot")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist draft snapshot")
	}
}
