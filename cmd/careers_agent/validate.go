package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jonathan/careers-portal/internal/schemas"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/validation"
	"github.com/jonathan/careers-portal/internal/wizard"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an application JSON file",
	Long:  "Checks an application file against the application schema, the per-record rules, the education timeline rules and the entry counts.",
	RunE:  runValidate,
}

var (
	validateInput         string
	validateMaxExperience int
)

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to application JSON file (required)")
	validateCmd.Flags().IntVar(&validateMaxExperience, "max-experience", validation.DefaultMaxExperience, "Maximum work experience entries")

	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if err := schemas.ValidateApplicationFile(validateInput); err != nil {
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) {
			fmt.Fprint(cmd.OutOrStdout(), schemaErr.Error())
			return fmt.Errorf("validation failed: %s does not match the application schema", validateInput)
		}
		return err
	}

	app, err := readApplication(validateInput)
	if err != nil {
		return err
	}

	problems := checkApplication(app, validation.New(), validateMaxExperience)
	if len(problems) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Validation failed:")
		for i, p := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d. %v\n", i+1, p)
		}
		return fmt.Errorf("validation failed: %d problem(s) in %s", len(problems), validateInput)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Validation passed")
	return nil
}

func readApplication(path string) (*types.Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var app types.Application
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to unmarshal application JSON: %w", err)
	}
	return &app, nil
}

// checkApplication runs every offline rule over app and returns each violation found.
func checkApplication(app *types.Application, v *validation.Validator, maxExperience int) []error {
	var problems []error

	set := validation.EducationSet{}
	for _, rec := range app.Education {
		if err := v.Education(rec); err != nil {
			problems = append(problems, err)
			continue
		}
		if rec.Level.Optional() && slices.Contains(app.NotApplicable, rec.Level) {
			continue
		}
		if _, dup := set[rec.Level]; dup {
			problems = append(problems, fmt.Errorf("education: %s appears more than once", rec.Level))
			continue
		}
		set[rec.Level] = rec
	}
	for _, l := range app.NotApplicable {
		if !l.Optional() {
			problems = append(problems, fmt.Errorf("education: %s cannot be marked not applicable", l))
		}
	}
	if err := validation.CheckEducation(set); err != nil {
		problems = append(problems, err)
	}

	for _, e := range app.Experience {
		if err := v.Experience(e); err != nil {
			problems = append(problems, err)
		}
	}
	if len(app.Experience) == 0 {
		problems = append(problems, errors.New("experience: add at least 1 work experience"))
	}
	if err := validation.CheckExperienceCount(len(app.Experience), maxExperience); err != nil {
		problems = append(problems, err)
	}

	for _, d := range app.Dependents {
		if err := v.Dependent(d); err != nil {
			problems = append(problems, err)
		}
	}
	if app.Profile.HasDependents && len(app.Dependents) == 0 {
		problems = append(problems, errors.New("dependents: add at least 1 dependent"))
	}

	for _, r := range app.References {
		if err := v.Reference(r); err != nil {
			problems = append(problems, err)
		}
	}
	if len(app.References) < wizard.MinReferences {
		problems = append(problems, fmt.Errorf("references: add at least %d references", wizard.MinReferences))
	}

	return problems
}
