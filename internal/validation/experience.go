package validation

import (
	"fmt"
	"time"

	"github.com/jonathan/careers-portal/internal/types"
)

// DefaultMaxExperience is the number of work experience entries an application may hold.
const DefaultMaxExperience = 3

// StayLength derives the time spent at a job. Entries still in progress are
// measured up to now. Partial months are not counted.
func StayLength(start types.Date, end *types.Date, present bool, now time.Time) types.StayLength {
	if start.IsZero() {
		return types.StayLength{}
	}

	until := now
	if !present && end != nil && !end.IsZero() {
		until = end.Time
	}

	months := (until.Year()-start.Year())*12 + int(until.Month()) - int(start.Month())
	if until.Day() < start.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return types.StayLength{Years: months / 12, Months: months % 12}
}

// WithStayLength returns the entry with its StayLength recomputed.
func WithStayLength(e types.ExperienceEntry, now time.Time) types.ExperienceEntry {
	e.StayLength = StayLength(e.StartDate, e.EndDate, e.Present, now)
	return e
}

// CheckExperienceCount enforces the cap on experience entries.
func CheckExperienceCount(count, limit int) error {
	if count > limit {
		return &Error{Section: SectionExperience, Message: fmt.Sprintf("You can only add up to %d work experiences", limit)}
	}
	return nil
}
