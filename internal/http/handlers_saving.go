package http

import (
	"net/http"
)

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	savings, err := s.store.ListSavings(r.Context(), activeOnly)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavingList(savings))
}

func (s *Server) handleCreateSaving(w http.ResponseWriter, r *http.Request) {
	var req savingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saving, err := req.toDomain("", nil)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateSaving(r.Context(), saving)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	created, err := s.store.GetSaving(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSavingJSON(created))
}

func (s *Server) handleGetSaving(w http.ResponseWriter, r *http.Request) {
	saving, err := s.store.GetSaving(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavingJSON(saving))
}

func (s *Server) handleUpdateSaving(w http.ResponseWriter, r *http.Request) {
	var req savingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := s.store.GetSaving(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	saving, err := req.toDomain(existing.ID, &existing)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpdateSaving(r.Context(), saving); err != nil {
		writeStoreError(w, r, err)
		return
	}

	updated, err := s.store.GetSaving(r.Context(), saving.ID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavingJSON(updated))
}

func (s *Server) handleDeleteSaving(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSaving(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
