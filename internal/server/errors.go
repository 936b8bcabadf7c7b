package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/careers-portal/internal/client"
	"github.com/jonathan/careers-portal/internal/reconcile"
	"github.com/jonathan/careers-portal/internal/validation"
	"github.com/jonathan/careers-portal/internal/wizard"
)

// RequestError indicates a malformed request.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// ErrorResponse is the body of every error reply. Only the fields relevant to
// the error are set.
type ErrorResponse struct {
	Error       string                  `json:"error"`
	Section     string                  `json:"section,omitempty"`
	Slot        string                  `json:"slot,omitempty"`
	Fields      []validation.FieldError `json:"fields,omitempty"`
	Failures    []reconcile.SlotFailure `json:"failures,omitempty"`
	FailedSlots []string                `json:"failed_slots,omitempty"`
}

// HTTPStatus returns the status code for an error.
func HTTPStatus(err error) int {
	var (
		reqErr      *RequestError
		fieldErrs   *validation.FieldErrors
		ruleErr     *validation.Error
		gateErr     *wizard.GateError
		conflictErr *reconcile.ConflictError
		notFound    *reconcile.NotFoundError
		batchErr    *reconcile.BatchError
		upstreamErr *client.Error
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.As(err, &fieldErrs), errors.As(err, &ruleErr), errors.As(err, &gateErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &conflictErr),
		errors.Is(err, reconcile.ErrConfirmationRequired),
		errors.Is(err, wizard.ErrSubmitted),
		errors.Is(err, wizard.ErrFirstStep):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &batchErr):
		return http.StatusBadGateway
	case errors.As(err, &upstreamErr):
		if upstreamErr.NotFound() {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// describe builds the error body for err.
func describe(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}

	var (
		fieldErrs   *validation.FieldErrors
		ruleErr     *validation.Error
		gateErr     *wizard.GateError
		conflictErr *reconcile.ConflictError
		notFound    *reconcile.NotFoundError
		batchErr    *reconcile.BatchError
	)
	switch {
	case errors.As(err, &gateErr):
		resp.Error = gateErr.Message
		resp.Section = gateErr.Section
	case errors.As(err, &fieldErrs):
		resp.Slot = fieldErrs.Slot
		resp.Fields = fieldErrs.Errors
	case errors.As(err, &ruleErr):
		resp.Error = ruleErr.Message
		resp.Section = ruleErr.Section
		if ruleErr.Section == validation.SectionEducation {
			resp.Slot = ruleErr.Level.Key()
		}
	case errors.As(err, &conflictErr):
		resp.Error = conflictErr.Reason
		resp.Section = conflictErr.Section
		resp.Slot = conflictErr.Slot
	case errors.As(err, &notFound):
		resp.Section = notFound.Section
		resp.Slot = notFound.Slot
	case errors.As(err, &batchErr):
		resp.Section = batchErr.Section
		resp.Failures = batchErr.Failures
		resp.FailedSlots = batchErr.FailedSlots()
	}
	return resp
}

// writeError maps err to a status and a structured body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	s.jsonResponse(w, status, describe(err))
}
