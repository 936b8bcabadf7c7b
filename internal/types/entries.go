package types

// StayLength is the time spent at a job, split into whole years and months.
type StayLength struct {
	Years  int `json:"years"`
	Months int `json:"months"`
}

// ExperienceEntry is one prior-employment record.
type ExperienceEntry struct {
	ID           string     `json:"id,omitempty"`
	ApplicantID  string     `json:"applicant_id,omitempty"`
	Company      string     `json:"company" validate:"required"`
	PositionHeld string     `json:"position_held" validate:"required"`
	Department   string     `json:"department,omitempty"`
	StartDate    Date       `json:"start_date"`
	EndDate      *Date      `json:"end_date,omitempty"`
	Present      bool       `json:"present"`
	StayLength   StayLength `json:"stay_length"`
}

// EntityID returns the server id of the entry.
func (e ExperienceEntry) EntityID() string {
	return e.ID
}

// DependentEntry is one dependent declared by the applicant.
type DependentEntry struct {
	ID           string `json:"id,omitempty"`
	ApplicantID  string `json:"applicant_id,omitempty"`
	Name         string `json:"name" validate:"required"`
	Birthday     Date   `json:"birthday"`
	Relationship string `json:"relationship" validate:"required"`
}

// EntityID returns the server id of the entry.
func (e DependentEntry) EntityID() string {
	return e.ID
}

// ReferenceEntry is a character reference.
type ReferenceEntry struct {
	ID            string `json:"id,omitempty"`
	ApplicantID   string `json:"applicant_id,omitempty"`
	Name          string `json:"name" validate:"required"`
	Occupation    string `json:"occupation,omitempty"`
	Company       string `json:"company,omitempty"`
	ContactNumber string `json:"contact_number" validate:"required"`
}

// EntityID returns the server id of the entry.
func (e ReferenceEntry) EntityID() string {
	return e.ID
}

// Profile is the applicant's personal information ("entity" upstream).
type Profile struct {
	ID            string `json:"id,omitempty"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	HasDependents bool   `json:"has_dependents"`
}

// ProfileDetails holds the other personal details collected alongside the profile.
type ProfileDetails struct {
	ID          string `json:"id,omitempty"`
	ApplicantID string `json:"applicant_id,omitempty"`
	CivilStatus string `json:"civil_status,omitempty"`
	Citizenship string `json:"citizenship,omitempty"`
	Religion    string `json:"religion,omitempty"`
	Height      string `json:"height,omitempty"`
	Weight      string `json:"weight,omitempty"`
}

// Application is a complete applicant document, as used by file-based
// validation and export.
type Application struct {
	Profile            Profile           `json:"profile"`
	Details            *ProfileDetails   `json:"details,omitempty"`
	Education          []EducationRecord `json:"education"`
	NotApplicable      []EducationLevel  `json:"not_applicable,omitempty"`
	Experience         []ExperienceEntry `json:"experience"`
	Dependents         []DependentEntry  `json:"dependents,omitempty"`
	References         []ReferenceEntry  `json:"references"`
	CareerAnswersSaved bool              `json:"career_answers_saved,omitempty"`
}
