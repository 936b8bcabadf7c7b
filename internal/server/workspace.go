package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/careers-portal/internal/client"
	"github.com/jonathan/careers-portal/internal/reconcile"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/wizard"
)

// workspace holds the sessions of one applicant.
type workspace struct {
	id         string
	education  *reconcile.EducationSession
	experience *reconcile.ListSession[types.ExperienceEntry]
	dependents *reconcile.ListSession[types.DependentEntry]
	references *reconcile.ListSession[types.ReferenceEntry]
	wizard     *wizard.Machine

	// lastUsed is guarded by Server.mu.
	lastUsed time.Time

	mu            sync.Mutex
	careerAnswers bool
}

func (ws *workspace) careerAnswersSaved() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.careerAnswers
}

func (ws *workspace) setCareerAnswers(saved bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.careerAnswers = saved
}

// allSaved logs a fully saved section.
func allSaved[T any](s *Server, applicantID, section string) reconcile.Hooks[T] {
	return reconcile.Hooks[T]{
		OnAllSaved: func() {
			s.logger.Info().Str("applicant_id", applicantID).Str("section", section).Msg("all changes saved")
		},
	}
}

// workspace returns the applicant's sessions, loading them on first use.
// Loads run outside s.mu and concurrent loads of one applicant share a result.
func (s *Server) workspace(ctx context.Context, applicantID string) (*workspace, error) {
	if ws := s.cached(applicantID); ws != nil {
		return ws, nil
	}

	v, err, _ := s.loads.Do(applicantID, func() (any, error) {
		if ws := s.cached(applicantID); ws != nil {
			return ws, nil
		}
		// Shared by every waiter, so one caller going away must not abort it.
		ws, err := s.openWorkspace(context.WithoutCancel(ctx), applicantID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		ws.lastUsed = s.cfg.Now()
		s.workspaces[applicantID] = ws
		s.mu.Unlock()
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*workspace), nil
}

// cached returns a loaded workspace and marks it used.
func (s *Server) cached(applicantID string) *workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	s.evictIdle(now)
	ws, ok := s.workspaces[applicantID]
	if !ok {
		return nil
	}
	ws.lastUsed = now
	return ws
}

// evictIdle drops workspaces unused for IdleTimeout. Drafts live in the
// backend, so a later request restores them. Caller holds s.mu.
func (s *Server) evictIdle(now time.Time) {
	ttl := s.cfg.IdleTimeout
	if ttl <= 0 || now.Sub(s.lastSweep) < ttl/4 {
		return
	}
	s.lastSweep = now
	for id, ws := range s.workspaces {
		if now.Sub(ws.lastUsed) >= ttl {
			delete(s.workspaces, id)
			s.logger.Debug().Str("applicant_id", id).Msg("unloaded idle workspace")
		}
	}
}

// openWorkspace restores drafts and loads persisted records of every section concurrently.
func (s *Server) openWorkspace(ctx context.Context, applicantID string) (*workspace, error) {
	logger := s.logger.With().Str("applicant_id", applicantID).Logger()
	cfg := reconcile.Config{
		ApplicantID: applicantID,
		Backend:     s.cfg.Backend,
		Validator:   s.cfg.Validator,
		Concurrency: s.cfg.Concurrency,
		Logger:      &logger,
		Now:         s.cfg.Now,
	}
	repos := s.cfg.Repositories
	v := s.cfg.Validator
	ws := &workspace{id: applicantID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ws.education, err = reconcile.NewEducationSession(gctx, cfg, repos.Education, allSaved[types.EducationRecord](s, applicantID, "education"))
		return err
	})
	g.Go(func() error {
		var err error
		ws.experience, err = reconcile.NewListSession(gctx, cfg, reconcile.ExperienceList(v, s.cfg.MaxExperience), repos.Experience,
			allSaved[types.ExperienceEntry](s, applicantID, "experience"))
		return err
	})
	g.Go(func() error {
		var err error
		ws.dependents, err = reconcile.NewListSession(gctx, cfg, reconcile.DependentList(v), repos.Dependents,
			allSaved[types.DependentEntry](s, applicantID, "dependents"))
		return err
	})
	g.Go(func() error {
		var err error
		ws.references, err = reconcile.NewListSession(gctx, cfg, reconcile.ReferenceList(v), repos.References,
			allSaved[types.ReferenceEntry](s, applicantID, "references"))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ws.wizard = wizard.New(
		wizard.WithLogger(logger),
		wizard.WithClearers(ws.education, ws.experience, ws.dependents, ws.references),
	)
	return ws, nil
}

// profile fetches the applicant's profile and details. A missing profile is
// reported as nil, not as an error.
func (s *Server) profile(ctx context.Context, applicantID string) (*types.Profile, *types.ProfileDetails, error) {
	var (
		profile *types.Profile
		details *types.ProfileDetails
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.cfg.Profiles.Profile(gctx, applicantID)
		var ce *client.Error
		if errors.As(err, &ce) && ce.NotFound() {
			return nil
		}
		profile = p
		return err
	})
	g.Go(func() error {
		d, err := s.cfg.Profiles.Details(gctx, applicantID)
		details = d
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, details, nil
}

// snapshot gathers the state the wizard gates look at.
func (s *Server) snapshot(ctx context.Context, ws *workspace) (wizard.Snapshot, error) {
	profile, details, err := s.profile(ctx, ws.id)
	if err != nil {
		return wizard.Snapshot{}, err
	}

	snap := wizard.Snapshot{
		ProfileSaved:       profile != nil,
		Education:          ws.education.Validate(),
		Dependents:         ws.dependents.Count(),
		Experience:         ws.experience.Count(),
		DetailsSaved:       details != nil,
		CareerAnswersSaved: ws.careerAnswersSaved(),
		References:         ws.references.Count(),
	}
	if profile != nil {
		snap.HasDependents = profile.HasDependents
	}

	changes := []struct {
		section string
		pending bool
	}{
		{wizard.SectionEducation, ws.education.HasChanges()},
		{wizard.SectionDependents, ws.dependents.HasChanges()},
		{wizard.SectionExperience, ws.experience.HasChanges()},
		{wizard.SectionReferences, ws.references.HasChanges()},
	}
	for _, c := range changes {
		if c.pending {
			snap.Unsaved = append(snap.Unsaved, c.section)
		}
	}
	return snap, nil
}

// application assembles the applicant's document as currently shown.
func (s *Server) application(ctx context.Context, ws *workspace) (*types.Application, error) {
	profile, details, err := s.profile(ctx, ws.id)
	if err != nil {
		return nil, err
	}
	app := &types.Application{
		Details:            details,
		Education:          ws.education.EffectiveRecords(),
		NotApplicable:      ws.education.NotApplicable(),
		Experience:         ws.experience.Records(),
		Dependents:         ws.dependents.Records(),
		References:         ws.references.Records(),
		CareerAnswersSaved: ws.careerAnswersSaved(),
	}
	if profile != nil {
		app.Profile = *profile
	} else {
		app.Profile.ID = ws.id
	}
	return app, nil
}
