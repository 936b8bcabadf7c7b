package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonathan/careers-portal/internal/export"
	"github.com/jonathan/careers-portal/internal/reconcile"
	"github.com/jonathan/careers-portal/internal/resolver"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/validation"
	"github.com/jonathan/careers-portal/internal/wizard"
)

// EducationResponse is the resolved view of the education section.
type EducationResponse struct {
	Slots         []resolver.Slot             `json:"slots"`
	NotApplicable []types.EducationLevel      `json:"not_applicable"`
	Pending       []reconcile.PendingDeletion `json:"pending"`
	HasChanges    bool                        `json:"has_changes"`
	// Invalid is the first rule the effective records break, if any.
	Invalid *ErrorResponse `json:"invalid,omitempty"`
}

// NotApplicableRequest is the body of the Not Applicable toggle.
type NotApplicableRequest struct {
	NotApplicable bool `json:"not_applicable"`
}

// DiscardRequest is the body of every discard endpoint.
type DiscardRequest struct {
	Confirm bool `json:"confirm"`
}

// WizardResponse reports the applicant's step.
type WizardResponse struct {
	State wizard.State `json:"state"`
	// SubmissionID is set when the submission was recorded.
	SubmissionID string `json:"submission_id,omitempty"`
}

// CareerAnswersRequest is the body of the career answers flag.
type CareerAnswersRequest struct {
	Saved bool `json:"saved"`
}

// workspaceHandler is a handler that works on the {id} applicant's sessions.
type workspaceHandler func(w http.ResponseWriter, r *http.Request, ws *workspace)

// withWorkspace authenticates the request and resolves the applicant's workspace.
func (s *Server) withWorkspace(h workspaceHandler) http.Handler {
	return s.authed(func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.workspace(r.Context(), r.PathValue("id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		h(w, r, ws)
	})
}

func (s *Server) registerEducation(mux *http.ServeMux) {
	const base = "/applicants/{id}/education"
	mux.Handle("GET "+base, s.withWorkspace(s.handleGetEducation))
	mux.Handle("PUT "+base+"/{level}", s.withWorkspace(s.handleSetEducation))
	mux.Handle("DELETE "+base+"/{level}", s.withWorkspace(s.handleDeleteEducation))
	mux.Handle("DELETE "+base+"/{level}/draft", s.withWorkspace(s.handleClearEducationDraft))
	mux.Handle("PUT "+base+"/{level}/not-applicable", s.withWorkspace(s.handleNotApplicable))
	mux.Handle("POST "+base+"/save", s.withWorkspace(s.handleSaveEducation))
	mux.Handle("POST "+base+"/discard", s.withWorkspace(s.handleDiscardEducation))
	mux.Handle("POST "+base+"/refresh", s.withWorkspace(s.handleRefreshEducation))
}

func (s *Server) registerWizard(mux *http.ServeMux) {
	const base = "/applicants/{id}"
	mux.Handle("GET "+base+"/wizard", s.withWorkspace(s.handleGetWizard))
	mux.Handle("POST "+base+"/wizard/advance", s.withWorkspace(s.handleAdvance))
	mux.Handle("POST "+base+"/wizard/back", s.withWorkspace(s.handleBack))
	mux.Handle("PUT "+base+"/career-answers", s.withWorkspace(s.handleCareerAnswers))
	mux.Handle("GET "+base+"/export", s.withWorkspace(s.handleExport))
}

// pathLevel resolves the {level} path segment.
func pathLevel(r *http.Request) (types.EducationLevel, error) {
	key := r.PathValue("level")
	level, err := types.ParseEducationLevel(key)
	if err != nil {
		return 0, &reconcile.NotFoundError{Section: validation.SectionEducation, Slot: key}
	}
	return level, nil
}

func educationView(sess *reconcile.EducationSession) EducationResponse {
	resp := EducationResponse{
		Slots:         sess.Resolve(),
		NotApplicable: sess.NotApplicable(),
		Pending:       sess.Pending(),
		HasChanges:    sess.HasChanges(),
	}
	if resp.NotApplicable == nil {
		resp.NotApplicable = []types.EducationLevel{}
	}
	if resp.Pending == nil {
		resp.Pending = []reconcile.PendingDeletion{}
	}
	if err := sess.Validate(); err != nil {
		invalid := describe(err)
		resp.Invalid = &invalid
	}
	return resp
}

func (s *Server) handleGetEducation(w http.ResponseWriter, _ *http.Request, ws *workspace) {
	s.jsonResponse(w, http.StatusOK, educationView(ws.education))
}

func (s *Server) handleSetEducation(w http.ResponseWriter, r *http.Request, ws *workspace) {
	level, err := pathLevel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var rec types.EducationRecord
	if err := decode(r, &rec); err != nil {
		s.writeError(w, err)
		return
	}
	rec.Level = level

	slot, err := ws.education.SetDraft(r.Context(), rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, slot)
}

func (s *Server) handleDeleteEducation(w http.ResponseWriter, r *http.Request, ws *workspace) {
	level, err := pathLevel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	slot, err := ws.education.Delete(r.Context(), level)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, slot)
}

func (s *Server) handleClearEducationDraft(w http.ResponseWriter, r *http.Request, ws *workspace) {
	level, err := pathLevel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	slot, err := ws.education.ClearDraft(r.Context(), level)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, slot)
}

func (s *Server) handleNotApplicable(w http.ResponseWriter, r *http.Request, ws *workspace) {
	level, err := pathLevel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req NotApplicableRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	slot, err := ws.education.SetNotApplicable(r.Context(), level, req.NotApplicable)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, slot)
}

func (s *Server) handleSaveEducation(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.education.SaveAll(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, educationView(ws.education))
}

func (s *Server) handleDiscardEducation(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req DiscardRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := ws.education.Discard(r.Context(), req.Confirm); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, educationView(ws.education))
}

func (s *Server) handleRefreshEducation(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.education.Refresh(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, educationView(ws.education))
}

func (s *Server) handleGetWizard(w http.ResponseWriter, _ *http.Request, ws *workspace) {
	s.jsonResponse(w, http.StatusOK, WizardResponse{State: ws.wizard.State()})
}

// handleAdvance moves the applicant to the next step. On submission the
// assembled application is recorded first; a failed record keeps the
// applicant at the reference step with their drafts.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, ws *workspace) {
	ctx := r.Context()
	snap, err := s.snapshot(ctx, ws)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var app *types.Application
	if ws.wizard.State() == wizard.StateReferenceInfo && s.cfg.Submissions != nil {
		if app, err = s.application(ctx, ws); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var resp WizardResponse
	record := func(ctx context.Context, to wizard.State) error {
		if to != wizard.StateSubmitted || app == nil {
			return nil
		}
		id, err := s.cfg.Submissions.RecordSubmission(ctx, ws.id, app)
		if err != nil {
			return fmt.Errorf("failed to record submission: %w", err)
		}
		resp.SubmissionID = id.String()
		return nil
	}

	state, err := ws.wizard.AdvanceWith(ctx, snap, record)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp.State = state
	if state == wizard.StateSubmitted {
		s.logger.Info().Str("applicant_id", ws.id).Str("submission_id", resp.SubmissionID).Msg("application submitted")
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleBack(w http.ResponseWriter, _ *http.Request, ws *workspace) {
	state, err := ws.wizard.Back()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, WizardResponse{State: state})
}

func (s *Server) handleCareerAnswers(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req CareerAnswersRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ws.setCareerAnswers(req.Saved)
	s.jsonResponse(w, http.StatusOK, req)
}

// handleExport streams the applicant's current view as an xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, ws *workspace) {
	app, err := s.application(r.Context(), ws)
	if err != nil {
		s.writeError(w, err)
		return
	}
	f, err := export.Workbook(app)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "application-"+ws.id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		s.logger.Error().Err(err).Str("applicant_id", ws.id).Msg("failed to stream workbook")
	}
}
