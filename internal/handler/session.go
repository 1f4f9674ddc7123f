package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/travelspot-editor/backend/internal/location"
	"github.com/pkordes/travelspot-editor/backend/internal/service"
	"github.com/pkordes/travelspot-editor/backend/internal/wizard"
)

// StartSession handles POST /sessions.
// An empty body (or an empty slug) opens a create session; a slug opens an
// edit session for that record.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartSessionRequest
	if err := decodeBody(r, &body, true); err != nil {
		badRequest(w, err)
		return
	}
	e, err := s.editor.Start(r.Context(), body.Slug)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+e.ID.String())
	writeJSON(w, http.StatusCreated, sessionToResponse(e))
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(id uuid.UUID) (service.Editor, error) {
		return s.editor.Get(r.Context(), id)
	})
}

// DiscardSession handles DELETE /sessions/{id}.
func (s *Server) DiscardSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := s.editor.Discard(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyDraft handles PATCH /sessions/{id}/draft with a partial set of the
// current step's fields.
func (s *Server) ApplyDraft(w http.ResponseWriter, r *http.Request) {
	var p wizard.Patch
	s.runWithBody(w, r, &p, func(id uuid.UUID) (service.Editor, error) {
		return s.editor.Apply(r.Context(), id, p)
	})
}

// SetLocation handles PUT /sessions/{id}/location/{level}.
func (s *Server) SetLocation(w http.ResponseWriter, r *http.Request) {
	var body SetLocationRequest
	s.runWithBody(w, r, &body, func(id uuid.UUID) (service.Editor, error) {
		level, err := levelParam(r)
		if err != nil {
			return service.Editor{}, err
		}
		return s.editor.SetLocation(r.Context(), id, level, body.ID)
	})
}

// RetryLocation handles POST /sessions/{id}/location/{level}/retry.
func (s *Server) RetryLocation(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(id uuid.UUID) (service.Editor, error) {
		level, err := levelParam(r)
		if err != nil {
			return service.Editor{}, err
		}
		return s.editor.RetryLocation(r.Context(), id, level)
	})
}

// Advance handles POST /sessions/{id}/advance. On the review step it submits.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(id uuid.UUID) (service.Editor, error) {
		return s.editor.Advance(r.Context(), id)
	})
}

// Retreat handles POST /sessions/{id}/retreat.
func (s *Server) Retreat(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(id uuid.UUID) (service.Editor, error) {
		return s.editor.Retreat(r.Context(), id)
	})
}

// JumpTo handles POST /sessions/{id}/jump.
func (s *Server) JumpTo(w http.ResponseWriter, r *http.Request) {
	var body JumpRequest
	s.runWithBody(w, r, &body, func(id uuid.UUID) (service.Editor, error) {
		return s.editor.JumpTo(r.Context(), id, wizard.Step(body.Step))
	})
}

// run parses the session id, calls op and writes the resulting session.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op func(uuid.UUID) (service.Editor, error)) {
	id, err := sessionID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	e, err := op(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(e))
}

// runWithBody is run with a required JSON body decoded into dst first.
func (s *Server) runWithBody(w http.ResponseWriter, r *http.Request, dst any, op func(uuid.UUID) (service.Editor, error)) {
	if _, err := sessionID(r); err != nil {
		badRequest(w, err)
		return
	}
	if err := decodeBody(r, dst, false); err != nil {
		badRequest(w, err)
		return
	}
	s.run(w, r, op)
}

func levelParam(r *http.Request) (location.Level, error) {
	return location.ParseLevel(chi.URLParam(r, "level"))
}
