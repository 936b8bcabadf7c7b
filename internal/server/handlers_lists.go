package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/careers-portal/internal/reconcile"
	"github.com/jonathan/careers-portal/internal/resolver"
)

// ListResponse is the resolved view of a list section.
type ListResponse[T any] struct {
	Entries    []resolver.Entry[T]         `json:"entries"`
	Pending    []reconcile.PendingDeletion `json:"pending"`
	HasChanges bool                        `json:"has_changes"`
}

// AddResponse reports the index a new entry was stored at.
type AddResponse[T any] struct {
	Index int `json:"index"`
	ListResponse[T]
}

// listRoutes serves one list section of the applicant.
type listRoutes[T any] struct {
	s       *Server
	section string
	pick    func(*workspace) *reconcile.ListSession[T]
}

// registerList mounts the routes of a list section under /applicants/{id}/{section}.
func registerList[T any](mux *http.ServeMux, s *Server, section string, pick func(*workspace) *reconcile.ListSession[T]) {
	lr := &listRoutes[T]{s: s, section: section, pick: pick}
	base := "/applicants/{id}/" + section

	mux.Handle("GET "+base, s.withWorkspace(lr.handleGet))
	mux.Handle("POST "+base, s.withWorkspace(lr.handleAdd))
	mux.Handle("PUT "+base+"/{index}", s.withWorkspace(lr.handleSet))
	mux.Handle("DELETE "+base+"/{index}", s.withWorkspace(lr.handleDelete))
	mux.Handle("DELETE "+base+"/{index}/draft", s.withWorkspace(lr.handleClearDraft))
	mux.Handle("POST "+base+"/save", s.withWorkspace(lr.handleSave))
	mux.Handle("POST "+base+"/discard", s.withWorkspace(lr.handleDiscard))
	mux.Handle("POST "+base+"/refresh", s.withWorkspace(lr.handleRefresh))
}

func listView[T any](sess *reconcile.ListSession[T]) ListResponse[T] {
	resp := ListResponse[T]{
		Entries:    sess.Entries(),
		Pending:    sess.Pending(),
		HasChanges: sess.HasChanges(),
	}
	if resp.Entries == nil {
		resp.Entries = []resolver.Entry[T]{}
	}
	if resp.Pending == nil {
		resp.Pending = []reconcile.PendingDeletion{}
	}
	return resp
}

// pathIndex parses the {index} path segment.
func (lr *listRoutes[T]) pathIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, &reconcile.NotFoundError{Section: lr.section, Slot: raw}
	}
	return index, nil
}

func (lr *listRoutes[T]) handleGet(w http.ResponseWriter, _ *http.Request, ws *workspace) {
	lr.s.jsonResponse(w, http.StatusOK, listView(lr.pick(ws)))
}

func (lr *listRoutes[T]) handleAdd(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var entry T
	if err := decode(r, &entry); err != nil {
		lr.s.writeError(w, err)
		return
	}
	sess := lr.pick(ws)
	index, err := sess.Add(r.Context(), entry)
	if err != nil {
		lr.s.writeError(w, err)
		return
	}
	lr.s.jsonResponse(w, http.StatusCreated, AddResponse[T]{Index: index, ListResponse: listView(sess)})
}

func (lr *listRoutes[T]) handleSet(w http.ResponseWriter, r *http.Request, ws *workspace) {
	index, err := lr.pathIndex(r)
	if err != nil {
		lr.s.writeError(w, err)
		return
	}
	var entry T
	if err := decode(r, &entry); err != nil {
		lr.s.writeError(w, err)
		return
	}
	sess := lr.pick(ws)
	if err := sess.SetDraft(r.Context(), index, entry); err != nil {
		lr.s.writeError(w, err)
		return
	}
	lr.s.jsonResponse(w, http.StatusOK, listView(sess))
}

func (lr *listRoutes[T]) handleDelete(w http.ResponseWriter, r *http.Request, ws *workspace) {
	index, err := lr.pathIndex(r)
	if err != nil {
		lr.s.writeError(w, err)
		return
	}
	sess := lr.pick(ws)
	if err := sess.Delete(r.Context(), index); err != nil {
		lr.s.writeError(w, err)
		return
	}
	lr.s.jsonResponse(w, http.StatusOK, listView(sess))
}

func (lr *listRoutes[T]) handleClearDraft(w http.ResponseWriter, r *http.Request, ws *workspace) {
	index, err := lr.pathIndex(r)
	if err != nil {
		lr.s.writeError(w, err)
		return
	}
	sess := lr.pick(ws)
	if err := sess.ClearDraft(r.Context(), index); err != nil {
		lr.s.writeError(w, err)
		return
	}
	lr.s.jsonResponse(w, http.StatusOK, listView(sess))
}

func (lr *listRoutes[T]) handleSave(w http.ResponseWriter, r *http.Request, ws *workspace) {
	sess := lr.pick(ws)
	if err := sess.SaveAll(r.Context()); err != nil {
		lr.s.writeError(w, err)
		return
	}
	lr.s.jsonResponse(w, http.StatusOK, listView(sess))
}

func (lr *listRoutes[T]) handleDiscard(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req DiscardRequest
	if err := decode(r, &req); err != nil {
		lr.s.writeError(w, err)
		return
	}
	sess := lr.pick(ws)
	if err := sess.Discard(r.Context(), req.Confirm); err != nil {
		lr.s.writeError(w, err)
		return
	}
	lr.s.jsonResponse(w, http.StatusOK, listView(sess))
}

func (lr *listRoutes[T]) handleRefresh(w http.ResponseWriter, r *http.Request, ws *workspace) {
	sess := lr.pick(ws)
	if err := sess.Refresh(r.Context()); err != nil {
		lr.s.writeError(w, err)
		return
	}
	lr.s.jsonResponse(w, http.StatusOK, listView(sess))
}
