package http

import (
	"net/http"
	"time"

	"kopilka/internal/services"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	payments, err := s.store.ListPayments(r.Context(), activeOnly)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentList(payments, time.Now()))
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := req.toDomain("", nil)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreatePayment(r.Context(), p)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	p.ID = id
	writeJSON(w, http.StatusCreated, toPaymentJSON(p, time.Now()))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentJSON(p, time.Now()))
}

// handleUpdatePayment replaces the editable fields. The paid timestamps
// survive the edit; only the paid endpoint moves them.
func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := s.store.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	p, err := req.toDomain(existing.ID, &existing)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpdatePayment(r.Context(), p); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentJSON(p, time.Now()))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePayment(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDuePayments returns the calendar buckets for today.
func (s *Server) handleDuePayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.store.ListPayments(r.Context(), true)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	now := time.Now()
	c := services.ClassifyPayments(payments, now)

	writeJSON(w, http.StatusOK, struct {
		Due     []paymentJSON `json:"due"`
		Overdue []paymentJSON `json:"overdue"`
	}{
		Due:     toPaymentList(c.Due, now),
		Overdue: toPaymentList(c.Overdue, now),
	})
}

// handleMarkPaid records a payment as paid now and schedules the next
// occurrence one month ahead.
func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	now := time.Now()

	if err := services.MarkAsPaid(r.Context(), s.store, id, now); err != nil {
		writeStoreError(w, r, err)
		return
	}

	p, err := s.store.GetPayment(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentJSON(p, now))
}
