package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/careers-portal/internal/drafts"
	"github.com/jonathan/careers-portal/internal/resolver"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/validation"
)

var educationIdentity = identity[types.EducationRecord]{
	id: func(r types.EducationRecord) string { return r.ID },
	with: func(r types.EducationRecord, id, applicantID string) types.EducationRecord {
		r.ID = id
		r.ApplicantID = applicantID
		return r
	},
}

// EducationSession stages edits to the six education levels of one applicant.
// Drafts are keyed by level storage key. Not Applicable flags live in a
// separate store and survive a successful save.
type EducationSession struct {
	*core[types.EducationRecord]

	flags     *drafts.Store[bool]
	persisted map[types.EducationLevel]types.EducationRecord
}

// NewEducationSession restores the applicant's drafts and loads the persisted records.
func NewEducationSession(ctx context.Context, cfg Config, repo Repository[types.EducationRecord], hooks Hooks[types.EducationRecord]) (*EducationSession, error) {
	c := newCore(ctx, cfg, validation.SectionEducation, drafts.KindEducation, repo, educationIdentity, hooks)
	s := &EducationSession{
		core: c,
		flags: drafts.Open[bool](ctx, c.cfg.Backend,
			drafts.Key(c.cfg.ApplicantID, drafts.KindEducationNotApplicable), drafts.WithLogger(c.logger)),
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh reloads the persisted records from the backend.
func (s *EducationSession) Refresh(ctx context.Context) error {
	records, err := s.repo.List(ctx, s.cfg.ApplicantID)
	if err != nil {
		return s.listError(err)
	}
	persisted := make(map[types.EducationLevel]types.EducationRecord, len(records))
	for _, r := range records {
		if r.Level.Valid() {
			persisted[r.Level] = r
		}
	}

	s.mu.Lock()
	s.persisted = persisted
	s.mu.Unlock()
	return nil
}

// state returns the resolver inputs. Caller holds s.mu.
func (s *EducationSession) state() resolver.Education {
	na := make(map[types.EducationLevel]bool)
	for slot, d := range s.flags.Snapshot() {
		level, err := types.ParseEducationLevel(slot)
		if err == nil && d.Record != nil && *d.Record {
			na[level] = true
		}
	}
	return resolver.Education{
		Persisted:     s.persisted,
		Drafts:        s.store.Snapshot(),
		NotApplicable: na,
	}
}

// Resolve returns every education slot in display order.
func (s *EducationSession) Resolve() []resolver.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state().ResolveAll()
}

// ResolveLevel returns one education slot.
func (s *EducationSession) ResolveLevel(level types.EducationLevel) resolver.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state().Resolve(level)
}

// SetDraft validates rec and stores it as the draft of its level. When a
// College draft leaves College incomplete, Graduate School is cleared and,
// if persisted, queued for deletion.
func (s *EducationSession) SetDraft(ctx context.Context, rec types.EducationRecord) (resolver.Slot, error) {
	if err := s.cfg.Validator.Education(rec); err != nil {
		return resolver.Slot{}, err
	}

	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state()
	slot := st.Resolve(rec.Level)
	if slot.Disabled {
		return slot, &ConflictError{Section: s.section, Slot: rec.Level.Key(), Reason: slot.DisabledReason}
	}
	if slot.NotApplicable {
		return slot, &ConflictError{Section: s.section, Slot: rec.Level.Key(), Reason: fmt.Sprintf("%s is marked not applicable", rec.Level)}
	}

	if p, ok := s.persisted[rec.Level]; ok && rec.ID == "" {
		rec.ID = p.ID
	}
	rec.ApplicantID = s.cfg.ApplicantID

	if err := s.setDraft(ctx, rec.Level.Key(), rec); err != nil {
		return slot, err
	}
	if rec.Level == types.LevelCollege && !rec.Completed() {
		if err := s.cascadeGraduateSchool(ctx); err != nil {
			return slot, err
		}
	}

	s.saved(rec.Level.Key(), rec)
	return s.state().Resolve(rec.Level), nil
}

// ClearDraft drops the draft of level, showing the persisted record again.
func (s *EducationSession) ClearDraft(ctx context.Context, level types.EducationLevel) (resolver.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearDraft(ctx, level.Key()); err != nil {
		return resolver.Slot{}, err
	}
	return s.state().Resolve(level), nil
}

// Delete hides level's record. A persisted record is queued for deletion and
// only removed by the next SaveAll.
func (s *EducationSession) Delete(ctx context.Context, level types.EducationLevel) (resolver.Slot, error) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.state().Resolve(level)
	if !slot.HasRecord() {
		return slot, &NotFoundError{Section: s.section, Slot: level.Key()}
	}

	id := s.persistedID(level)
	if err := s.markDeleted(ctx, level.Key(), id); err != nil {
		return slot, err
	}
	if level == types.LevelCollege {
		if err := s.cascadeGraduateSchool(ctx); err != nil {
			return slot, err
		}
	}

	s.deleted(level.Key(), id)
	return s.state().Resolve(level), nil
}

// SetNotApplicable sets the Not Applicable flag of an optional level. Turning
// it on is refused while a level depending on it holds data. Existing data is
// kept until the next SaveAll.
func (s *EducationSession) SetNotApplicable(ctx context.Context, level types.EducationLevel, on bool) (resolver.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state()
	if !level.Optional() {
		return st.Resolve(level), &ConflictError{Section: s.section, Slot: level.Key(), Reason: fmt.Sprintf("%s cannot be marked not applicable", level)}
	}
	if on {
		if deps := st.DependentsWithData(level); len(deps) > 0 {
			names := make([]string, len(deps))
			for i, d := range deps {
				names[i] = d.String()
			}
			return st.Resolve(level), &ConflictError{
				Section: s.section,
				Slot:    level.Key(),
				Reason:  fmt.Sprintf("Cannot mark %s not applicable while %s has data", level, strings.Join(names, ", ")),
			}
		}
	}

	var next *drafts.Draft[bool]
	if on {
		v := true
		next = &drafts.Draft[bool]{Record: &v}
	}
	if err := s.ledger.Do(ctx, newDraftCommand(s.flags, level.Key(), next)); err != nil {
		return resolver.Slot{}, err
	}
	return s.state().Resolve(level), nil
}

// cascadeGraduateSchool removes Graduate School once College is no longer
// completed. Caller holds s.mu.
func (s *EducationSession) cascadeGraduateSchool(ctx context.Context) error {
	st := s.state()
	if _, _, ok := st.Effective(types.LevelGraduateSchool); !ok {
		return nil
	}
	if college, _, ok := st.Effective(types.LevelCollege); ok && college.Completed() {
		return nil
	}
	s.logger.Info().Msg("college is incomplete; removing graduate school")
	return s.markDeleted(ctx, types.LevelGraduateSchool.Key(), s.persistedID(types.LevelGraduateSchool))
}

func (s *EducationSession) persistedID(level types.EducationLevel) string {
	if p, ok := s.persisted[level]; ok {
		return p.ID
	}
	return ""
}

// SaveAll validates the effective education set and persists every draft and
// pending deletion in one batch. Nothing is sent when validation fails. On
// full success drafts are cleared, persisted records are reloaded and
// OnAllSaved runs. On partial failure a *BatchError is returned and drafts are kept.
func (s *EducationSession) SaveAll(ctx context.Context) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state()
	for _, slot := range s.store.Slots() {
		d, _ := s.store.Get(slot)
		if d.Record == nil {
			continue
		}
		level, err := types.ParseEducationLevel(slot)
		if err != nil || st.NotApplicable[level] {
			continue
		}
		rec := *d.Record
		rec.Level = level
		if err := s.cfg.Validator.Education(rec); err != nil {
			return err
		}
	}
	if err := validation.CheckEducation(st.EffectiveSet()); err != nil {
		return err
	}

	// Not Applicable levels lose their draft and persisted record.
	for _, level := range types.AllLevels() {
		if !st.NotApplicable[level] {
			continue
		}
		if id := s.persistedID(level); id != "" {
			s.pending.Add(PendingDeletion{ID: id, Slot: level.Key()})
		}
		if d, ok := s.store.Get(level.Key()); ok && !d.Deleted {
			s.store.Clear(ctx, level.Key())
		}
	}

	var upserts []upsert[types.EducationRecord]
	for _, slot := range s.store.Slots() {
		d, _ := s.store.Get(slot)
		if d.Record == nil {
			continue
		}
		level, err := types.ParseEducationLevel(slot)
		if err != nil {
			continue
		}
		rec := *d.Record
		rec.Level = level
		rec.ApplicantID = s.cfg.ApplicantID
		upserts = append(upserts, upsert[types.EducationRecord]{slot: slot, record: rec})
	}
	deletions := s.pending.Items()

	if len(upserts) == 0 && len(deletions) == 0 {
		s.settleSuccess(ctx)
		s.allSaved()
		return nil
	}

	res := s.runBatch(ctx, upserts, deletions)
	s.applyResults(res)

	if len(res.failures) > 0 {
		s.settlePartial(ctx, res)
		return s.batchError(res)
	}

	s.settleSuccess(ctx)
	s.logger.Info().Int("defined", len(res.defined)).Int("deleted", len(res.deleted)).Msg("education saved")

	records, err := s.repo.List(ctx, s.cfg.ApplicantID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to reload education after save")
	} else {
		s.persisted = make(map[types.EducationLevel]types.EducationRecord, len(records))
		for _, r := range records {
			if r.Level.Valid() {
				s.persisted[r.Level] = r
			}
		}
	}
	s.allSaved()
	return nil
}

// applyResults folds succeeded calls into the local persisted view. Caller holds s.mu.
func (s *EducationSession) applyResults(res batchResult[types.EducationRecord]) {
	for slot, saved := range res.defined {
		if level, err := types.ParseEducationLevel(slot); err == nil {
			saved.Level = level
			s.persisted[level] = saved
		}
	}
	for _, d := range res.deleted {
		if level, err := types.ParseEducationLevel(d.Slot); err == nil {
			if p, ok := s.persisted[level]; ok && p.ID == d.ID {
				delete(s.persisted, level)
			}
		}
	}
}

// Discard drops every unsaved change without contacting the backend.
// confirm must be true when there are changes to drop.
func (s *EducationSession) Discard(ctx context.Context, confirm bool) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discard(ctx, confirm)
}

// NotApplicable returns the levels currently marked Not Applicable.
func (s *EducationSession) NotApplicable() []types.EducationLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state()
	var out []types.EducationLevel
	for _, l := range types.AllLevels() {
		if st.NotApplicable[l] {
			out = append(out, l)
		}
	}
	return out
}

// EffectiveRecords returns the records the applicant currently sees, in level order.
func (s *EducationSession) EffectiveRecords() []types.EducationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.state().EffectiveSet()
	out := make([]types.EducationRecord, 0, len(set))
	for _, l := range types.AllLevels() {
		if r, ok := set[l]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Validate runs the cross-level checks on the current effective set without saving.
func (s *EducationSession) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.CheckEducation(s.state().EffectiveSet())
}
