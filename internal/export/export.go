// Package export writes an application to an Excel workbook, one sheet per record kind.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/careers-portal/internal/types"
)

// Sheet names.
const (
	SheetProfile    = "Profile"
	SheetEducation  = "Education"
	SheetExperience = "Experience"
	SheetDependents = "Dependents"
	SheetReferences = "References"
)

type sheet struct {
	name   string
	header []string
	rows   [][]any
}

// Workbook builds the workbook for app. The caller closes it.
func Workbook(app *types.Application) (*excelize.File, error) {
	f := excelize.NewFile()

	sheets := []sheet{
		profileSheet(app),
		educationSheet(app),
		experienceSheet(app),
		dependentSheet(app),
		referenceSheet(app),
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to name sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write renders app as xlsx to w.
func Write(w io.Writer, app *types.Application) error {
	f, err := Workbook(app)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile renders app as xlsx to path.
func WriteFile(path string, app *types.Application) error {
	f, err := Workbook(app)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", s.name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", s.name, err)
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", s.name, i+2, err)
		}
	}
	return nil
}

func optionalDate(d *types.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func profileSheet(app *types.Application) sheet {
	p := app.Profile
	rows := [][]any{
		{"ID", p.ID},
		{"First name", p.FirstName},
		{"Last name", p.LastName},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Has dependents", strconv.FormatBool(p.HasDependents)},
	}
	if d := app.Details; d != nil {
		rows = append(rows,
			[]any{"Civil status", d.CivilStatus},
			[]any{"Citizenship", d.Citizenship},
			[]any{"Religion", d.Religion},
			[]any{"Height", d.Height},
			[]any{"Weight", d.Weight},
		)
	}
	return sheet{name: SheetProfile, header: []string{"Field", "Value"}, rows: rows}
}

func educationSheet(app *types.Application) sheet {
	s := sheet{
		name:   SheetEducation,
		header: []string{"Level", "School", "Course", "Start date", "End date", "Present", "Undergraduate"},
	}
	for _, r := range app.Education {
		s.rows = append(s.rows, []any{
			r.Level.String(), r.School, r.Course, r.StartDate.String(), optionalDate(r.EndDate), r.Present, r.Undergraduate,
		})
	}
	for _, l := range app.NotApplicable {
		s.rows = append(s.rows, []any{l.String(), "Not applicable"})
	}
	return s
}

func experienceSheet(app *types.Application) sheet {
	s := sheet{
		name:   SheetExperience,
		header: []string{"Company", "Position", "Department", "Start date", "End date", "Present", "Years", "Months"},
	}
	for _, e := range app.Experience {
		s.rows = append(s.rows, []any{
			e.Company, e.PositionHeld, e.Department, e.StartDate.String(), optionalDate(e.EndDate), e.Present, e.StayLength.Years, e.StayLength.Months,
		})
	}
	return s
}

func dependentSheet(app *types.Application) sheet {
	s := sheet{name: SheetDependents, header: []string{"Name", "Birthday", "Relationship"}}
	for _, d := range app.Dependents {
		s.rows = append(s.rows, []any{d.Name, d.Birthday.String(), d.Relationship})
	}
	return s
}

func referenceSheet(app *types.Application) sheet {
	s := sheet{name: SheetReferences, header: []string{"Name", "Occupation", "Company", "Contact number"}}
	for _, r := range app.References {
		s.rows = append(s.rows, []any{r.Name, r.Occupation, r.Company, r.ContactNumber})
	}
	return s
}
