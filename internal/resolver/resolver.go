// Package resolver decides what each education slot and list entry shows:
// the unsaved draft, the persisted record, or nothing.
package resolver

import (
	"fmt"

	"github.com/jonathan/careers-portal/internal/drafts"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/validation"
)

// Source says where an effective record came from.
type Source string

const (
	SourceNone      Source = "none"
	SourceDraft     Source = "draft"
	SourcePersisted Source = "persisted"
)

// Slot is the resolved view of one education level.
type Slot struct {
	Level     types.EducationLevel   `json:"level"`
	Record    *types.EducationRecord `json:"record,omitempty"`
	Source    Source                 `json:"source"`
	Persisted *types.EducationRecord `json:"persisted,omitempty"`
	// PendingDelete is set when a draft hides a persisted record.
	PendingDelete          bool   `json:"pending_delete"`
	Disabled               bool   `json:"disabled"`
	DisabledReason         string `json:"disabled_reason,omitempty"`
	Optional               bool   `json:"optional"`
	NotApplicable          bool   `json:"not_applicable"`
	CanToggleNotApplicable bool   `json:"can_toggle_not_applicable"`
}

// HasRecord reports whether the slot shows a record.
func (s Slot) HasRecord() bool {
	return s.Record != nil
}

// Education bundles the inputs needed to resolve education slots.
// Drafts are keyed by level storage key.
type Education struct {
	Persisted     map[types.EducationLevel]types.EducationRecord
	Drafts        map[string]drafts.Draft[types.EducationRecord]
	NotApplicable map[types.EducationLevel]bool
}

// Resolve computes the slot for level from persisted records, drafts and
// Not Applicable flags.
func Resolve(
	level types.EducationLevel,
	persisted map[types.EducationLevel]types.EducationRecord,
	draftMap map[string]drafts.Draft[types.EducationRecord],
	notApplicable map[types.EducationLevel]bool,
) Slot {
	return Education{Persisted: persisted, Drafts: draftMap, NotApplicable: notApplicable}.Resolve(level)
}

// Effective returns the record shown for level, ignoring Not Applicable.
// A draft always wins over the persisted record; a deletion marker hides it.
func (e Education) Effective(level types.EducationLevel) (types.EducationRecord, Source, bool) {
	if d, ok := e.Drafts[level.Key()]; ok {
		if d.Deleted || d.Record == nil {
			return types.EducationRecord{}, SourceNone, false
		}
		rec := *d.Record
		rec.Level = level
		return rec, SourceDraft, true
	}
	if rec, ok := e.Persisted[level]; ok {
		rec.Level = level
		return rec, SourcePersisted, true
	}
	return types.EducationRecord{}, SourceNone, false
}

// present reports whether level counts as filled in: it has an effective
// record and is not marked Not Applicable.
func (e Education) present(level types.EducationLevel) (types.EducationRecord, bool) {
	if e.isNotApplicable(level) {
		return types.EducationRecord{}, false
	}
	rec, _, ok := e.Effective(level)
	return rec, ok
}

func (e Education) isNotApplicable(level types.EducationLevel) bool {
	return level.Optional() && e.NotApplicable[level]
}

// Resolve computes the slot for a single level.
func (e Education) Resolve(level types.EducationLevel) Slot {
	slot := Slot{
		Level:         level,
		Source:        SourceNone,
		Optional:      level.Optional(),
		NotApplicable: e.isNotApplicable(level),
	}

	if rec, src, ok := e.Effective(level); ok {
		r := rec
		slot.Record = &r
		slot.Source = src
	}
	if p, ok := e.Persisted[level]; ok {
		pr := p
		slot.Persisted = &pr
		if d, ok := e.Drafts[level.Key()]; ok && d.Deleted {
			slot.PendingDelete = true
		}
	}

	slot.Disabled, slot.DisabledReason = e.disabled(level)
	slot.CanToggleNotApplicable = e.canToggle(level)
	return slot
}

// ResolveAll resolves every level in display order.
func (e Education) ResolveAll() []Slot {
	levels := types.AllLevels()
	out := make([]Slot, 0, len(levels))
	for _, l := range levels {
		out = append(out, e.Resolve(l))
	}
	return out
}

// EffectiveSet returns the records the temporal validator should see:
// every level with an effective record that is not marked Not Applicable.
func (e Education) EffectiveSet() validation.EducationSet {
	set := make(validation.EducationSet)
	for _, l := range types.AllLevels() {
		if rec, ok := e.present(l); ok {
			set[l] = rec
		}
	}
	return set
}

func (e Education) disabled(level types.EducationLevel) (bool, string) {
	prereq, ok := level.Prerequisite()
	if !ok {
		return false, ""
	}
	rec, ok := e.present(prereq)
	if !ok {
		return true, fmt.Sprintf("Add %s first", prereq)
	}
	if level == types.LevelGraduateSchool {
		if reason := validation.GraduateSchoolGate(rec); reason != "" {
			return true, reason
		}
	}
	return false, ""
}

// canToggle reports whether the Not Applicable flag of level may change.
// Turning it on is refused while a dependent level holds data.
func (e Education) canToggle(level types.EducationLevel) bool {
	if !level.Optional() {
		return false
	}
	if e.isNotApplicable(level) {
		return true
	}
	return len(e.DependentsWithData(level)) == 0
}

// DependentsWithData returns the levels that depend on level and currently
// show a record.
func (e Education) DependentsWithData(level types.EducationLevel) []types.EducationLevel {
	var out []types.EducationLevel
	for _, dep := range level.Dependents() {
		if _, ok := e.present(dep); ok {
			out = append(out, dep)
		}
	}
	return out
}
