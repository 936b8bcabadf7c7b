package reconcile

import (
	"context"
	"time"

	"github.com/jonathan/careers-portal/internal/drafts"
	"github.com/jonathan/careers-portal/internal/resolver"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/validation"
)

// ListSpec describes one list-shaped record kind.
type ListSpec[T any] struct {
	Section string
	// Kind is the draft key suffix.
	Kind string
	// Limit caps the number of entries. Zero means no cap.
	Limit int
	// Validate checks one entry.
	Validate func(T) error
	// Prepare derives computed fields before an entry is stored.
	Prepare func(entry T, now time.Time) T
	ID      func(T) string
	WithID  func(entry T, id, applicantID string) T
}

// ExperienceList is the spec of work experience entries, capped at limit.
func ExperienceList(v *validation.Validator, limit int) ListSpec[types.ExperienceEntry] {
	return ListSpec[types.ExperienceEntry]{
		Section:  validation.SectionExperience,
		Kind:     drafts.KindExperience,
		Limit:    limit,
		Validate: v.Experience,
		Prepare:  validation.WithStayLength,
		ID:       types.ExperienceEntry.EntityID,
		WithID: func(e types.ExperienceEntry, id, applicantID string) types.ExperienceEntry {
			e.ID = id
			e.ApplicantID = applicantID
			return e
		},
	}
}

// DependentList is the spec of dependent entries.
func DependentList(v *validation.Validator) ListSpec[types.DependentEntry] {
	return ListSpec[types.DependentEntry]{
		Section:  validation.SectionDependents,
		Kind:     drafts.KindDependents,
		Validate: v.Dependent,
		ID:       types.DependentEntry.EntityID,
		WithID: func(e types.DependentEntry, id, applicantID string) types.DependentEntry {
			e.ID = id
			e.ApplicantID = applicantID
			return e
		},
	}
}

// ReferenceList is the spec of reference entries.
func ReferenceList(v *validation.Validator) ListSpec[types.ReferenceEntry] {
	return ListSpec[types.ReferenceEntry]{
		Section:  validation.SectionReferences,
		Kind:     drafts.KindReferences,
		Validate: v.Reference,
		ID:       types.ReferenceEntry.EntityID,
		WithID: func(e types.ReferenceEntry, id, applicantID string) types.ReferenceEntry {
			e.ID = id
			e.ApplicantID = applicantID
			return e
		},
	}
}

// ListSession stages edits to an indexed list of entries. Drafts are keyed by
// list index; deleting an entry leaves a marker and never shifts other indexes.
type ListSession[T any] struct {
	*core[T]

	spec      ListSpec[T]
	persisted []T
	// stale is set when a partly failed save changed upstream entries that
	// persisted does not show yet.
	stale bool
}

// NewListSession restores the applicant's drafts and loads the persisted entries.
func NewListSession[T any](ctx context.Context, cfg Config, spec ListSpec[T], repo Repository[T], hooks Hooks[T]) (*ListSession[T], error) {
	ident := identity[T]{id: spec.ID, with: spec.WithID}
	s := &ListSession[T]{
		core: newCore(ctx, cfg, spec.Section, spec.Kind, repo, ident, hooks),
		spec: spec,
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh reloads the persisted entries from the backend.
func (s *ListSession[T]) Refresh(ctx context.Context) error {
	entries, err := s.repo.List(ctx, s.cfg.ApplicantID)
	if err != nil {
		return s.listError(err)
	}
	s.mu.Lock()
	s.persisted = entries
	s.stale = false
	s.mu.Unlock()
	return nil
}

// Entries returns the entries the applicant currently sees, by index.
func (s *ListSession[T]) Entries() []resolver.Entry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return resolver.Entries(s.persisted, s.store.Snapshot())
}

// Records returns the visible entries without their indexes.
func (s *ListSession[T]) Records() []T {
	entries := s.Entries()
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out
}

// Count returns the number of visible entries.
func (s *ListSession[T]) Count() int {
	return len(s.Entries())
}

func (s *ListSession[T]) prepare(entry T) T {
	if s.spec.Prepare != nil {
		return s.spec.Prepare(entry, s.cfg.Now())
	}
	return entry
}

// find returns the visible entry at index. Caller holds s.mu.
func (s *ListSession[T]) find(index int) (resolver.Entry[T], bool) {
	for _, e := range resolver.Entries(s.persisted, s.store.Snapshot()) {
		if e.Index == index {
			return e, true
		}
	}
	return resolver.Entry[T]{}, false
}

func (s *ListSession[T]) persistedID(index int) string {
	if index >= 0 && index < len(s.persisted) {
		return s.spec.ID(s.persisted[index])
	}
	return ""
}

// Add validates entry and stores it as a new draft at the next free index.
func (s *ListSession[T]) Add(ctx context.Context, entry T) (int, error) {
	if err := s.spec.Validate(entry); err != nil {
		return 0, err
	}

	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.Snapshot()
	if s.spec.Limit > 0 {
		count := len(resolver.Entries(s.persisted, snapshot))
		if err := validation.CheckExperienceCount(count+1, s.spec.Limit); err != nil {
			return 0, err
		}
	}

	index := resolver.NextIndex(s.persisted, snapshot)
	entry = s.spec.WithID(s.prepare(entry), "", s.cfg.ApplicantID)
	if err := s.setDraft(ctx, resolver.SlotKey(index), entry); err != nil {
		return 0, err
	}
	s.saved(resolver.SlotKey(index), entry)
	return index, nil
}

// SetDraft validates entry and stores it as the draft of an existing index.
func (s *ListSession[T]) SetDraft(ctx context.Context, index int, entry T) error {
	if err := s.spec.Validate(entry); err != nil {
		return err
	}

	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(index); !ok {
		return &NotFoundError{Section: s.section, Slot: resolver.SlotKey(index)}
	}
	id := s.spec.ID(entry)
	if id == "" {
		id = s.persistedID(index)
		if d, ok := s.store.Get(resolver.SlotKey(index)); ok && d.Record != nil {
			if did := s.spec.ID(*d.Record); did != "" {
				id = did
			}
		}
	}
	entry = s.spec.WithID(s.prepare(entry), id, s.cfg.ApplicantID)
	if err := s.setDraft(ctx, resolver.SlotKey(index), entry); err != nil {
		return err
	}
	s.saved(resolver.SlotKey(index), entry)
	return nil
}

// ClearDraft drops the draft at index.
func (s *ListSession[T]) ClearDraft(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearDraft(ctx, resolver.SlotKey(index))
}

// Delete hides the entry at index. A persisted entry is queued for deletion
// and only removed by the next SaveAll.
func (s *ListSession[T]) Delete(ctx context.Context, index int) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.find(index)
	if !ok {
		return &NotFoundError{Section: s.section, Slot: resolver.SlotKey(index)}
	}

	slot := resolver.SlotKey(index)
	id := s.persistedID(index)
	if id == "" {
		// Entries created by a partly failed save carry their new id in the draft.
		id = s.spec.ID(e.Record)
	}
	if id == "" {
		if err := s.clearDraft(ctx, slot); err != nil {
			return err
		}
	} else if err := s.markDeleted(ctx, slot, id); err != nil {
		return err
	}
	s.deleted(slot, id)
	return nil
}

// SaveAll persists every draft and pending deletion in one batch. Entries are
// re-validated first and nothing is sent when one fails.
func (s *ListSession[T]) SaveAll(ctx context.Context) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.Snapshot()
	if s.spec.Limit > 0 {
		if err := validation.CheckExperienceCount(len(resolver.Entries(s.persisted, snapshot)), s.spec.Limit); err != nil {
			return err
		}
	}

	var upserts []upsert[T]
	for _, slot := range s.store.Slots() {
		d := snapshot[slot]
		if d.Record == nil {
			continue
		}
		if err := s.spec.Validate(*d.Record); err != nil {
			return err
		}
		rec := s.spec.WithID(s.prepare(*d.Record), s.spec.ID(*d.Record), s.cfg.ApplicantID)
		upserts = append(upserts, upsert[T]{slot: slot, record: rec})
	}
	deletions := s.pending.Items()

	if len(upserts) == 0 && len(deletions) == 0 {
		s.settleSuccess(ctx)
		s.allSaved()
		return nil
	}

	res := s.runBatch(ctx, upserts, deletions)
	if len(res.failures) > 0 {
		s.settlePartial(ctx, res)
		if len(res.defined) > 0 || len(res.deleted) > 0 {
			s.stale = true
		}
		return s.batchError(res)
	}

	s.settleSuccess(ctx)
	s.stale = false
	s.logger.Info().Int("defined", len(res.defined)).Int("deleted", len(res.deleted)).Msg("entries saved")

	entries, err := s.repo.List(ctx, s.cfg.ApplicantID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to reload entries after save")
		s.persisted = s.localView(res)
	} else {
		s.persisted = entries
	}
	s.allSaved()
	return nil
}

// localView rebuilds the persisted list from a successful batch when the
// reload fails. Caller holds s.mu.
func (s *ListSession[T]) localView(res batchResult[T]) []T {
	deleted := make(map[string]bool, len(res.deleted))
	for _, d := range res.deleted {
		deleted[d.ID] = true
	}
	byIndex := make(map[int]T)
	for i, p := range s.persisted {
		if !deleted[s.spec.ID(p)] {
			byIndex[i] = p
		}
	}
	next := len(s.persisted)
	for slot, saved := range res.defined {
		if i, ok := resolver.ParseSlotKey(slot); ok {
			byIndex[i] = saved
			if i >= next {
				next = i + 1
			}
		}
	}
	out := make([]T, 0, len(byIndex))
	for i := 0; i < next; i++ {
		if rec, ok := byIndex[i]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Discard drops every unsaved change without contacting the backend.
// confirm must be true when there are changes to drop.
func (s *ListSession[T]) Discard(ctx context.Context, confirm bool) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.discard(ctx, confirm); err != nil {
		return err
	}
	if s.stale {
		// Entries created or deleted by the partly failed save stay upstream.
		entries, err := s.repo.List(ctx, s.cfg.ApplicantID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to reload entries after discard")
			return nil
		}
		s.persisted = entries
		s.stale = false
	}
	return nil
}
