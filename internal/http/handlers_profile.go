package http

import (
	"net/http"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetProfile(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileJSON(profile))
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileJSON
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Dependents < 0 {
		writeError(w, http.StatusUnprocessableEntity, "dependents cannot be negative")
		return
	}

	if err := s.store.SaveProfile(r.Context(), req.toDomain()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
