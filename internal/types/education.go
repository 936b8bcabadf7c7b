// Package types provides type definitions for the applicant records handled by the careers portal.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
)

// EducationLevel identifies one of the six education slots of an application.
// The set is closed; levels are ordered from Elementary to GraduateSchool.
type EducationLevel int

// Education levels in display order.
const (
	LevelElementary EducationLevel = iota
	LevelSecondary
	LevelSeniorHigh
	LevelVocational
	LevelCollege
	LevelGraduateSchool
)

// noLevel marks the absence of a prerequisite.
const noLevel EducationLevel = -1

type levelInfo struct {
	key            string
	name           string
	prerequisite   EducationLevel
	optional       bool
	requiresCourse bool
}

// levelTable holds the per-level rules. Prerequisites follow the application form:
// every optional level above High School only needs High School, except Graduate
// School which needs College.
var levelTable = [...]levelInfo{
	LevelElementary:     {key: "elementary", name: "Elementary", prerequisite: noLevel},
	LevelSecondary:      {key: "secondary", name: "High School", prerequisite: LevelElementary},
	LevelSeniorHigh:     {key: "senior_high", name: "Senior High School", prerequisite: LevelSecondary, optional: true},
	LevelVocational:     {key: "vocational", name: "Vocational", prerequisite: LevelSecondary, optional: true, requiresCourse: true},
	LevelCollege:        {key: "college", name: "College", prerequisite: LevelSecondary, optional: true, requiresCourse: true},
	LevelGraduateSchool: {key: "graduate_school", name: "Graduate School", prerequisite: LevelCollege, optional: true, requiresCourse: true},
}

// AllLevels returns every education level in display order.
func AllLevels() []EducationLevel {
	return []EducationLevel{
		LevelElementary,
		LevelSecondary,
		LevelSeniorHigh,
		LevelVocational,
		LevelCollege,
		LevelGraduateSchool,
	}
}

// Valid reports whether l is one of the defined levels.
func (l EducationLevel) Valid() bool {
	return l >= LevelElementary && l <= LevelGraduateSchool
}

// Key returns the stable storage key of the level.
func (l EducationLevel) Key() string {
	if !l.Valid() {
		return ""
	}
	return levelTable[l].key
}

// String returns the display name of the level.
func (l EducationLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("EducationLevel(%d)", int(l))
	}
	return levelTable[l].name
}

// Prerequisite returns the level that must hold a record before l may have one.
// The boolean is false for Elementary.
func (l EducationLevel) Prerequisite() (EducationLevel, bool) {
	if !l.Valid() || levelTable[l].prerequisite == noLevel {
		return 0, false
	}
	return levelTable[l].prerequisite, true
}

// Dependents returns the levels whose prerequisite is l.
func (l EducationLevel) Dependents() []EducationLevel {
	var out []EducationLevel
	for _, other := range AllLevels() {
		if p, ok := other.Prerequisite(); ok && p == l {
			out = append(out, other)
		}
	}
	return out
}

// Optional reports whether the level may be marked Not Applicable.
func (l EducationLevel) Optional() bool {
	return l.Valid() && levelTable[l].optional
}

// RequiresCourse reports whether a record for the level must name a course.
func (l EducationLevel) RequiresCourse() bool {
	return l.Valid() && levelTable[l].requiresCourse
}

// ParseEducationLevel resolves a storage key such as "senior_high" to its level.
func ParseEducationLevel(key string) (EducationLevel, error) {
	for _, l := range AllLevels() {
		if levelTable[l].key == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown education level: %q", key)
}

// MarshalJSON encodes the level as its storage key.
func (l EducationLevel) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid education level %d", int(l))
	}
	return json.Marshal(l.Key())
}

// UnmarshalJSON decodes a storage key.
func (l *EducationLevel) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err != nil {
		return err
	}
	parsed, err := ParseEducationLevel(key)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// EducationRecord is one education level's data for one applicant.
// A record without an ID has not been persisted yet.
type EducationRecord struct {
	ID            string         `json:"id,omitempty"`
	ApplicantID   string         `json:"applicant_id,omitempty"`
	Level         EducationLevel `json:"level"`
	School        string         `json:"school" validate:"required"`
	Course        string         `json:"course,omitempty"`
	StartDate     Date           `json:"start_date"`
	EndDate       *Date          `json:"end_date,omitempty"`
	Present       bool           `json:"present"`
	Undergraduate bool           `json:"undergraduate"`
}

// EntityID returns the server id of the record.
func (r EducationRecord) EntityID() string {
	return r.ID
}

// Completed reports whether the record describes a finished level:
// neither in progress nor left undergraduate, and with an end date.
func (r EducationRecord) Completed() bool {
	return !r.Present && !r.Undergraduate && r.EndDate != nil && !r.EndDate.IsZero()
}

// EndYear returns the calendar year of the end date, if any.
func (r EducationRecord) EndYear() (int, bool) {
	if r.EndDate == nil || r.EndDate.IsZero() {
		return 0, false
	}
	return r.EndDate.Year(), true
}

// StartYear returns the calendar year of the start date, if any.
func (r EducationRecord) StartYear() (int, bool) {
	if r.StartDate.IsZero() {
		return 0, false
	}
	return r.StartDate.Year(), true
}
