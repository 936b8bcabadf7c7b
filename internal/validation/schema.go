package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/careers-portal/internal/types"
)

// Validator runs the per-slot schema checks for every record kind.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source used for "not in the future" checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// New creates a Validator with the struct-level rules registered.
func New(opts ...Option) *Validator {
	v := &Validator{
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.validate.RegisterStructValidation(v.educationRules, types.EducationRecord{})
	v.validate.RegisterStructValidation(v.experienceRules, types.ExperienceEntry{})
	v.validate.RegisterStructValidation(v.dependentRules, types.DependentEntry{})

	return v
}

// Education validates a single education record.
func (v *Validator) Education(rec types.EducationRecord) error {
	if !rec.Level.Valid() {
		return &FieldErrors{Slot: "education", Errors: []FieldError{{Field: "level", Message: "is not a known education level"}}}
	}
	return v.run(rec.Level.Key(), rec)
}

// Experience validates a single work experience entry.
func (v *Validator) Experience(e types.ExperienceEntry) error {
	return v.run("experience", e)
}

// Dependent validates a single dependent entry.
func (v *Validator) Dependent(e types.DependentEntry) error {
	return v.run("dependent", e)
}

// Reference validates a single reference entry.
func (v *Validator) Reference(e types.ReferenceEntry) error {
	return v.run("reference", e)
}

func (v *Validator) run(slot string, record any) error {
	err := v.validate.Struct(record)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &FieldErrors{Slot: slot, Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe.Tag()),
		})
	}
	return out
}

func (v *Validator) educationRules(sl validator.StructLevel) {
	rec := sl.Current().Interface().(types.EducationRecord)

	if rec.StartDate.IsZero() {
		sl.ReportError(rec.StartDate, "start_date", "StartDate", "required", "")
	}
	if rec.Level.RequiresCourse() && strings.TrimSpace(rec.Course) == "" {
		sl.ReportError(rec.Course, "course", "Course", "required", "")
	}
	if rec.Present && rec.Undergraduate {
		sl.ReportError(rec.Undergraduate, "undergraduate", "Undergraduate", "exclusive", "present")
	}
	if (rec.Present || rec.Undergraduate) && rec.EndDate != nil && !rec.EndDate.IsZero() {
		sl.ReportError(rec.EndDate, "end_date", "EndDate", "absent", "")
	}
	if rec.EndDate != nil && !rec.EndDate.IsZero() && !rec.StartDate.IsZero() && rec.EndDate.Before(rec.StartDate) {
		sl.ReportError(rec.EndDate, "end_date", "EndDate", "after_start", "")
	}
}

func (v *Validator) experienceRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(types.ExperienceEntry)
	today := v.now()

	if e.StartDate.IsZero() {
		sl.ReportError(e.StartDate, "start_date", "StartDate", "required", "")
	} else if e.StartDate.After(today) {
		sl.ReportError(e.StartDate, "start_date", "StartDate", "not_future", "")
	}

	hasEnd := e.EndDate != nil && !e.EndDate.IsZero()
	switch {
	case e.Present && hasEnd:
		sl.ReportError(e.EndDate, "end_date", "EndDate", "absent", "")
	case !e.Present && !hasEnd:
		sl.ReportError(e.EndDate, "end_date", "EndDate", "required", "")
	case hasEnd && !e.StartDate.IsZero() && e.EndDate.Before(e.StartDate):
		sl.ReportError(e.EndDate, "end_date", "EndDate", "after_start", "")
	}
}

func (v *Validator) dependentRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(types.DependentEntry)

	if e.Birthday.IsZero() {
		sl.ReportError(e.Birthday, "birthday", "Birthday", "required", "")
	} else if e.Birthday.After(v.now()) {
		sl.ReportError(e.Birthday, "birthday", "Birthday", "not_future", "")
	}
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "exclusive":
		return "cannot be set together with present"
	case "absent":
		return "must be empty while still enrolled or not completed"
	case "after_start":
		return "must not be earlier than the start date"
	case "not_future":
		return "cannot be in the future"
	default:
		return "is invalid (" + tag + ")"
	}
}
