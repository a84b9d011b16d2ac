package http

import (
	"net/http"
	"time"

	"kopilka/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	if period := r.URL.Query().Get("period"); period != "" {
		txs = services.FilterByPeriod(txs, services.Period(period), time.Now(), s.weekStart)
	}

	writeJSON(w, http.StatusOK, toTransactionList(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := req.toDomain("")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	tx.ID = id
	s.structured.LogTransactionCreated(r.Context(), id, string(tx.Type), tx.Category, tx.Amount.Cents)
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := req.toDomain(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpdateTransaction(r.Context(), tx); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllTransactions clears the whole ledger. The confirm parameter
// guards against an accidental bare DELETE.
func (s *Server) handleDeleteAllTransactions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "pass confirm=true to delete all transactions")
		return
	}

	if err := s.store.DeleteAllTransactions(r.Context()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
