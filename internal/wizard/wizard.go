// Package wizard implements the multi-step application state machine.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jonathan/careers-portal/internal/validation"
)

// State is a step of the application.
type State int

// Application steps in order. Submitted is terminal.
const (
	StatePersonalInfo State = iota
	StateCareerQuestions
	StateReferenceInfo
	StateSubmitted
)

var stateNames = [...]string{
	StatePersonalInfo:    "personal_info",
	StateCareerQuestions: "career_questions",
	StateReferenceInfo:   "reference_info",
	StateSubmitted:       "submitted",
}

func (s State) String() string {
	if s < StatePersonalInfo || s > StateSubmitted {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState resolves a state name such as "reference_info".
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown wizard state: %q", name)
}

// MarshalJSON encodes the state as its name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Sections a blocked transition can point the applicant at.
const (
	SectionProfile         = "profile"
	SectionEducation       = "education"
	SectionDependents      = "dependents"
	SectionExperience      = "experience"
	SectionDetails         = "details"
	SectionCareerQuestions = "career_questions"
	SectionReferences      = "references"
)

// MinReferences is the number of references required to submit.
const MinReferences = 2

// ErrSubmitted is returned when a submitted application is moved.
var ErrSubmitted = errors.New("application already submitted")

// ErrFirstStep is returned by Back on the first step.
var ErrFirstStep = errors.New("already at the first step")

// Snapshot is what the gates look at: the saved state of every sub-workflow.
type Snapshot struct {
	ProfileSaved  bool `json:"profile_saved"`
	HasDependents bool `json:"has_dependents"`
	// Education is the result of the cross-level education check, nil when valid.
	Education          error `json:"-"`
	Dependents         int   `json:"dependents"`
	Experience         int   `json:"experience"`
	DetailsSaved       bool  `json:"details_saved"`
	CareerAnswersSaved bool  `json:"career_answers_saved"`
	References         int   `json:"references"`
	// Unsaved lists the sections holding drafts that were not saved yet.
	Unsaved []string `json:"unsaved,omitempty"`
}

// GateError reports why a transition is blocked. Section names the part of
// the form the applicant has to fix.
type GateError struct {
	From    State
	Section string
	Message string
	Cause   error
}

func (e *GateError) Error() string {
	return e.Message
}

func (e *GateError) Unwrap() error {
	return e.Cause
}

func gate(from State, section, message string) *GateError {
	return &GateError{From: from, Section: section, Message: message}
}

// stepSections are the list sections edited on each step.
var stepSections = map[State][]string{
	StatePersonalInfo:  {SectionEducation, SectionDependents, SectionExperience},
	StateReferenceInfo: {SectionReferences},
}

func unsaved(from State, snap Snapshot) error {
	for _, section := range stepSections[from] {
		if slices.Contains(snap.Unsaved, section) {
			return gate(from, section, fmt.Sprintf("Save your %s changes first.", section))
		}
	}
	return nil
}

// Check returns the first gate blocking the transition out of from, or nil.
func Check(from State, snap Snapshot) error {
	if err := unsaved(from, snap); err != nil {
		return err
	}
	switch from {
	case StatePersonalInfo:
		if !snap.ProfileSaved {
			return gate(from, SectionProfile, "Save your personal information first.")
		}
		if snap.Education != nil {
			msg := snap.Education.Error()
			var verr *validation.Error
			if errors.As(snap.Education, &verr) {
				msg = verr.Message
			}
			g := gate(from, SectionEducation, msg)
			g.Cause = snap.Education
			return g
		}
		if snap.HasDependents && snap.Dependents == 0 {
			return gate(from, SectionDependents, "Add at least 1 dependent.")
		}
		if snap.Experience == 0 {
			return gate(from, SectionExperience, "Add at least 1 work experience.")
		}
		if !snap.DetailsSaved {
			return gate(from, SectionDetails, "Save your other details first.")
		}
	case StateCareerQuestions:
		if !snap.CareerAnswersSaved {
			return gate(from, SectionCareerQuestions, "Answer the career questions first.")
		}
	case StateReferenceInfo:
		if snap.References < MinReferences {
			return gate(from, SectionReferences, "Add at least 2 reference.")
		}
	case StateSubmitted:
		return ErrSubmitted
	}
	return nil
}

// DraftClearer is a sub-workflow holding local drafts.
type DraftClearer interface {
	ClearDrafts(ctx context.Context)
}

// Machine tracks one applicant's progress through the application.
type Machine struct {
	mu       sync.Mutex
	state    State
	clearers []DraftClearer
	logger   zerolog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithState starts the machine at s.
func WithState(s State) Option {
	return func(m *Machine) {
		m.state = s
	}
}

// WithClearers registers the sub-workflows cleared on submission.
func WithClearers(c ...DraftClearer) Option {
	return func(m *Machine) {
		m.clearers = append(m.clearers, c...)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// New creates a machine at StatePersonalInfo unless WithState says otherwise.
func New(opts ...Option) *Machine {
	m := &Machine{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current step.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Advance moves to the next step when snap passes the current step's gates.
// Reaching StateSubmitted clears the drafts of every registered sub-workflow.
func (m *Machine) Advance(ctx context.Context, snap Snapshot) (State, error) {
	return m.AdvanceWith(ctx, snap, nil)
}

// CommitFunc runs once the gates pass, before the machine moves to the next
// step. An error leaves the machine where it was.
type CommitFunc func(ctx context.Context, to State) error

// AdvanceWith is Advance with a commit step. The drafts are only cleared
// after commit succeeds.
func (m *Machine) AdvanceWith(ctx context.Context, snap Snapshot, commit CommitFunc) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := Check(m.state, snap); err != nil {
		m.logger.Info().Str("state", m.state.String()).Err(err).Msg("transition blocked")
		return m.state, err
	}

	from := m.state
	to := from + 1
	if commit != nil {
		if err := commit(ctx, to); err != nil {
			m.logger.Warn().Str("from", from.String()).Str("to", to.String()).Err(err).Msg("commit failed")
			return m.state, err
		}
	}
	m.state = to
	m.logger.Info().Str("from", from.String()).Str("to", m.state.String()).Msg("advanced")

	if m.state == StateSubmitted {
		for _, c := range m.clearers {
			c.ClearDrafts(ctx)
		}
	}
	return m.state, nil
}

// Back returns to the previous step. A submitted application cannot move.
func (m *Machine) Back() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateSubmitted:
		return m.state, ErrSubmitted
	case StatePersonalInfo:
		return m.state, ErrFirstStep
	}
	m.state--
	return m.state, nil
}
