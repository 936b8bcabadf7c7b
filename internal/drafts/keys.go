package drafts

// Snapshot key suffixes, one per draft kind.
const (
	KindEducation              = "education"
	KindEducationNotApplicable = "education_not_applicable"
	KindExperience             = "experienceList"
	KindDependents             = "dependentList"
	KindReferences             = "referenceList"
)

// Key returns the backend key for an applicant's drafts of the given kind.
func Key(applicantID, kind string) string {
	return applicantID + ":" + kind
}
