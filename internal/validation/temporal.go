package validation

import (
	"fmt"

	"github.com/jonathan/careers-portal/internal/types"
)

// EducationSet is the effective record of each education level. Levels without
// a record, and levels marked Not Applicable, are left out.
type EducationSet map[types.EducationLevel]types.EducationRecord

// Has reports whether the level holds a record.
func (s EducationSet) Has(level types.EducationLevel) bool {
	_, ok := s[level]
	return ok
}

type gapRule struct {
	earlier types.EducationLevel
	later   types.EducationLevel
	years   int
	applies func(EducationSet) bool
}

var gapRules = []gapRule{
	{earlier: types.LevelElementary, later: types.LevelSecondary, years: 4},
	{earlier: types.LevelSecondary, later: types.LevelSeniorHigh, years: 2},
	{earlier: types.LevelSeniorHigh, later: types.LevelVocational, years: 1},
	{
		earlier: types.LevelSecondary,
		later:   types.LevelVocational,
		years:   1,
		applies: func(s EducationSet) bool { return !s.Has(types.LevelSeniorHigh) },
	},
}

// startAfter lists, per level, the levels whose end year its start year may not precede.
var startAfter = []struct {
	level types.EducationLevel
	after []types.EducationLevel
}{
	{level: types.LevelVocational, after: []types.EducationLevel{types.LevelSecondary}},
	{level: types.LevelCollege, after: []types.EducationLevel{types.LevelSeniorHigh, types.LevelVocational, types.LevelSecondary}},
	{level: types.LevelGraduateSchool, after: []types.EducationLevel{types.LevelCollege}},
}

// prerequisiteOrder is the order in which missing prerequisites are reported.
var prerequisiteOrder = []types.EducationLevel{
	types.LevelCollege,
	types.LevelGraduateSchool,
	types.LevelVocational,
	types.LevelSeniorHigh,
}

// CheckEducation verifies the chronological and structural rules across all
// education levels. It stops at the first violation.
func CheckEducation(set EducationSet) error {
	checks := []func(EducationSet) error{
		checkRequired,
		checkGraduateSchoolGate,
		checkPrerequisites,
		checkGaps,
		checkStartOrder,
		checkElementaryEnd,
	}
	for _, check := range checks {
		if err := check(set); err != nil {
			return err
		}
	}
	return nil
}

func checkRequired(set EducationSet) error {
	for _, level := range []types.EducationLevel{types.LevelElementary, types.LevelSecondary} {
		if !set.Has(level) {
			return &Error{Section: SectionEducation, Level: level, Message: fmt.Sprintf("%s education is required", level)}
		}
	}
	return nil
}

func checkGraduateSchoolGate(set EducationSet) error {
	if !set.Has(types.LevelGraduateSchool) {
		return nil
	}
	grad := types.LevelGraduateSchool
	college, ok := set[types.LevelCollege]
	if !ok {
		return &Error{Section: SectionEducation, Level: grad, Message: "Cannot have Graduate School without College"}
	}
	if reason := GraduateSchoolGate(college); reason != "" {
		return &Error{Section: SectionEducation, Level: grad, Message: reason}
	}
	return nil
}

// GraduateSchoolGate returns why college does not admit a Graduate School
// record, or "" when it does.
func GraduateSchoolGate(college types.EducationRecord) string {
	switch {
	case college.Undergraduate:
		return "Cannot have Graduate School while College is marked as undergraduate"
	case college.Present:
		return "Cannot have Graduate School while College is still in progress"
	case college.EndDate == nil || college.EndDate.IsZero():
		return "College must have an end date before adding Graduate School"
	}
	return ""
}

func checkPrerequisites(set EducationSet) error {
	for _, level := range prerequisiteOrder {
		if !set.Has(level) {
			continue
		}
		prereq, _ := level.Prerequisite()
		if !set.Has(prereq) {
			return &Error{Section: SectionEducation, Level: level, Message: fmt.Sprintf("Cannot have %s without %s", level, prereq)}
		}
	}
	return nil
}

func checkGaps(set EducationSet) error {
	for _, rule := range gapRules {
		if rule.applies != nil && !rule.applies(set) {
			continue
		}
		earlier, ok1 := set[rule.earlier]
		later, ok2 := set[rule.later]
		if !ok1 || !ok2 {
			continue
		}
		earlierYear, ok1 := earlier.EndYear()
		laterYear, ok2 := later.EndYear()
		if !ok1 || !ok2 {
			continue
		}
		if laterYear-earlierYear < rule.years {
			return &Error{
				Section: SectionEducation,
				Level:   rule.later,
				Message: fmt.Sprintf("%s must have at least %d %s gap from %s",
					rule.later, rule.years, pluralYears(rule.years), rule.earlier),
			}
		}
	}
	return nil
}

func checkStartOrder(set EducationSet) error {
	for _, entry := range startAfter {
		rec, ok := set[entry.level]
		if !ok {
			continue
		}
		start, ok := rec.StartYear()
		if !ok {
			continue
		}
		for _, prior := range entry.after {
			priorRec, ok := set[prior]
			if !ok {
				continue
			}
			end, ok := priorRec.EndYear()
			if !ok {
				continue
			}
			if start < end {
				return &Error{
					Section: SectionEducation,
					Level:   entry.level,
					Message: fmt.Sprintf("%s start date cannot be earlier than %s end date", entry.level, prior),
				}
			}
		}
	}
	return nil
}

func checkElementaryEnd(set EducationSet) error {
	elem := set[types.LevelElementary]
	if elem.Present || elem.Undergraduate {
		return nil
	}
	if _, ok := elem.EndYear(); !ok {
		return &Error{Section: SectionEducation, Level: types.LevelElementary, Message: "Elementary end date is required"}
	}
	return nil
}

func pluralYears(n int) string {
	if n == 1 {
		return "year"
	}
	return "years"
}
