package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/applicheck/internal/domain"
)

func (s *Server) handleListAppliances(w http.ResponseWriter, r *http.Request) {
	list, err := s.appliances.ListAppliances(r.Context(), identity(r))
	if err != nil {
		s.writeError(w, r, "list appliances", err)
		return
	}
	if list == nil {
		list = []*domain.Appliance{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateAppliance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	a, err := s.appliances.CreateAppliance(r.Context(), identity(r), body.Name)
	if err != nil {
		s.writeError(w, r, "create appliance", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	a, err := s.appliances.GetInventory(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "get inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSaveInventory(w http.ResponseWriter, r *http.Request) {
	var a domain.Appliance
	if err := decodeJSON(r, &a); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	a.ID = chi.URLParam(r, "id")
	saved, err := s.appliances.SaveInventory(r.Context(), identity(r), &a)
	if err != nil {
		s.writeError(w, r, "save inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteAppliance(w http.ResponseWriter, r *http.Request) {
	if err := s.appliances.DeleteAppliance(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, "delete appliance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEditLocker serves both POST /lockers (new locker) and
// PUT /lockers/{lockerID} (replace).
func (s *Server) handleEditLocker(w http.ResponseWriter, r *http.Request) {
	var locker domain.Locker
	if err := decodeJSON(r, &locker); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	locker.ID = chi.URLParam(r, "lockerID")
	a, err := s.appliances.EditLocker(r.Context(), identity(r), chi.URLParam(r, "id"), locker)
	if err != nil {
		s.writeError(w, r, "edit locker", err)
		return
	}
	status := http.StatusOK
	if locker.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, a)
}

func (s *Server) handleDeleteLocker(w http.ResponseWriter, r *http.Request) {
	a, err := s.appliances.DeleteLocker(r.Context(), identity(r), chi.URLParam(r, "id"), chi.URLParam(r, "lockerID"))
	if err != nil {
		s.writeError(w, r, "delete locker", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
