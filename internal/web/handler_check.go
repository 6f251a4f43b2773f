package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/applicheck/internal/service"
)

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.checks.Status(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "check status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleStartCheck answers 409 with the holder's marker when another user is
// checking the appliance; the client may then retry with forceNew.
func (s *Server) handleStartCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ForceNew bool `json:"forceNew"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	v, err := s.checks.Start(r.Context(), identity(r), chi.URLParam(r, "id"), body.ForceNew)
	if err != nil {
		s.writeError(w, r, "start check", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCheckView(w http.ResponseWriter, r *http.Request) {
	v, err := s.checks.View(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "check view", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCheckAction(w http.ResponseWriter, r *http.Request) {
	var act service.CheckAction
	if err := decodeJSON(r, &act); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	v, err := s.checks.Act(r.Context(), identity(r), chi.URLParam(r, "id"), act)
	if err != nil {
		s.writeError(w, r, "check action", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleFinalizeCheck(w http.ResponseWriter, r *http.Request) {
	rep, err := s.checks.Finalize(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "finalize check", err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) handleExitCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.checks.Exit(r.Context(), identity(r), chi.URLParam(r, "id"), body.Confirmed); err != nil {
		s.writeError(w, r, "exit check", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
