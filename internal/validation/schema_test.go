package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/careers-portal/internal/types"
)

func fixedClock() time.Time {
	return time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC)
}

func asFieldErrors(t *testing.T, err error) *FieldErrors {
	t.Helper()
	require.Error(t, err)
	var fe *FieldErrors
	require.True(t, errors.As(err, &fe), "expected *FieldErrors, got %T", err)
	return fe
}

func TestValidator_Education(t *testing.T) {
	v := New(WithClock(fixedClock))

	valid := types.EducationRecord{
		Level:     types.LevelCollege,
		School:    "State University",
		Course:    "BS Computer Science",
		StartDate: types.NewDate(2012, time.June, 1),
		EndDate:   types.DatePtr(2016, time.April, 1),
	}
	require.NoError(t, v.Education(valid))

	tests := []struct {
		name   string
		mutate func(*types.EducationRecord)
		field  string
	}{
		{name: "missing school", mutate: func(r *types.EducationRecord) { r.School = "" }, field: "school"},
		{name: "missing start", mutate: func(r *types.EducationRecord) { r.StartDate = types.Date{} }, field: "start_date"},
		{name: "missing course for college", mutate: func(r *types.EducationRecord) { r.Course = " " }, field: "course"},
		{name: "present and undergraduate", mutate: func(r *types.EducationRecord) {
			r.Present, r.Undergraduate, r.EndDate = true, true, nil
		}, field: "undergraduate"},
		{name: "present with end date", mutate: func(r *types.EducationRecord) { r.Present = true }, field: "end_date"},
		{name: "end before start", mutate: func(r *types.EducationRecord) {
			r.EndDate = types.DatePtr(2010, time.January, 1)
		}, field: "end_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			fe := asFieldErrors(t, v.Education(rec))
			assert.Equal(t, "college", fe.Slot)
			assert.True(t, fe.Has(tt.field), "expected violation on %s, got %+v", tt.field, fe.Errors)
		})
	}
}

func TestValidator_Education_CourseOptionalForLowerLevels(t *testing.T) {
	v := New()
	rec := types.EducationRecord{
		Level:     types.LevelElementary,
		School:    "Central Elementary",
		StartDate: types.NewDate(1999, time.June, 1),
		EndDate:   types.DatePtr(2005, time.March, 1),
	}
	assert.NoError(t, v.Education(rec))
}

func TestValidator_Education_UnknownLevel(t *testing.T) {
	v := New()
	fe := asFieldErrors(t, v.Education(types.EducationRecord{Level: types.EducationLevel(42), School: "x"}))
	assert.True(t, fe.Has("level"))
}

func TestValidator_Experience(t *testing.T) {
	v := New(WithClock(fixedClock))

	valid := types.ExperienceEntry{
		Company:      "Acme",
		PositionHeld: "Clerk",
		StartDate:    types.NewDate(2019, time.January, 1),
		EndDate:      types.DatePtr(2021, time.June, 1),
	}
	require.NoError(t, v.Experience(valid))

	present := valid
	present.EndDate = nil
	present.Present = true
	require.NoError(t, v.Experience(present))

	tests := []struct {
		name   string
		mutate func(*types.ExperienceEntry)
		field  string
	}{
		{name: "missing company", mutate: func(e *types.ExperienceEntry) { e.Company = "" }, field: "company"},
		{name: "missing position", mutate: func(e *types.ExperienceEntry) { e.PositionHeld = "" }, field: "position_held"},
		{name: "start in future", mutate: func(e *types.ExperienceEntry) {
			e.StartDate = types.NewDate(2030, time.January, 1)
			e.EndDate = types.DatePtr(2031, time.January, 1)
		}, field: "start_date"},
		{name: "missing end date", mutate: func(e *types.ExperienceEntry) { e.EndDate = nil }, field: "end_date"},
		{name: "end before start", mutate: func(e *types.ExperienceEntry) {
			e.EndDate = types.DatePtr(2018, time.January, 1)
		}, field: "end_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			fe := asFieldErrors(t, v.Experience(e))
			assert.True(t, fe.Has(tt.field), "expected violation on %s, got %+v", tt.field, fe.Errors)
		})
	}
}

func TestValidator_DependentAndReference(t *testing.T) {
	v := New(WithClock(fixedClock))

	require.NoError(t, v.Dependent(types.DependentEntry{
		Name:         "Ana",
		Birthday:     types.NewDate(2015, time.May, 2),
		Relationship: "Daughter",
	}))

	fe := asFieldErrors(t, v.Dependent(types.DependentEntry{Name: "Ana", Relationship: "Daughter"}))
	assert.True(t, fe.Has("birthday"))

	require.NoError(t, v.Reference(types.ReferenceEntry{Name: "Jo", ContactNumber: "0917"}))
	fe = asFieldErrors(t, v.Reference(types.ReferenceEntry{Name: "Jo"}))
	assert.True(t, fe.Has("contact_number"))
	assert.Contains(t, fe.Error(), "contact_number is required")
}
