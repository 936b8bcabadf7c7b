package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/careers-portal/internal/types"
)

func sampleApplication() *types.Application {
	return &types.Application{
		Profile: types.Profile{ID: "a1", FirstName: "Ana", LastName: "Cruz", Email: "ana@example.com"},
		Details: &types.ProfileDetails{CivilStatus: "Single"},
		Education: []types.EducationRecord{
			{Level: types.LevelElementary, School: "Central ES", StartDate: types.NewDate(1999, time.June, 1), EndDate: types.DatePtr(2005, time.March, 30)},
			{Level: types.LevelSecondary, School: "City HS", StartDate: types.NewDate(2005, time.June, 1), EndDate: types.DatePtr(2009, time.March, 30)},
		},
		NotApplicable: []types.EducationLevel{types.LevelVocational},
		Experience: []types.ExperienceEntry{
			{Company: "Acme", PositionHeld: "Clerk", StartDate: types.NewDate(2020, time.January, 1), Present: true, StayLength: types.StayLength{Years: 4, Months: 6}},
		},
		References: []types.ReferenceEntry{
			{Name: "Jo", ContactNumber: "0917"},
			{Name: "Al", ContactNumber: "0918"},
		},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleApplication()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetProfile, SheetEducation, SheetExperience, SheetDependents, SheetReferences}, f.GetSheetList())

	rows, err := f.GetRows(SheetEducation)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Level", rows[0][0])
	assert.Equal(t, []string{"Elementary", "Central ES", "", "1999-06-01", "2005-03-30", "FALSE", "FALSE"}, rows[1])
	assert.Equal(t, []string{"Vocational", "Not applicable"}, rows[3])

	rows, err = f.GetRows(SheetExperience)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "4", rows[1][6])

	rows, err = f.GetRows(SheetReferences)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = f.GetRows(SheetDependents)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")

	rows, err = f.GetRows(SheetProfile)
	require.NoError(t, err)
	assert.Contains(t, rows, []string{"Civil status", "Single"})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.xlsx")
	require.NoError(t, WriteFile(path, sampleApplication()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	v, err := f.GetCellValue(SheetProfile, "B2")
	require.NoError(t, err)
	assert.Equal(t, "a1", v)
}
