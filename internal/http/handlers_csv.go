package http

import (
	"log/slog"
	"net/http"

	"kopilka/internal/csvio"
)

// handleExportCSV streams the whole ledger as a CSV attachment.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="kopilka.csv"`)

	if err := csvio.Export(w, txs); err != nil {
		// Headers are gone; all we can do is log.
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}

type importResultJSON struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// handleImportCSV reads a CSV body and appends its rows to the ledger.
// Malformed rows are skipped and counted, never fatal.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	txs, skipped, err := csvio.Import(r.Context(), r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid CSV: "+err.Error())
		return
	}

	imported := 0
	for _, tx := range txs {
		if _, err := s.store.CreateTransaction(r.Context(), tx); err != nil {
			slog.WarnContext(r.Context(), "Skipping unimportable row",
				"id", tx.ID,
				"error", err)
			skipped++
			continue
		}
		imported++
	}

	slog.InfoContext(r.Context(), "CSV import complete",
		"imported", imported,
		"skipped", skipped)

	writeJSON(w, http.StatusOK, importResultJSON{Imported: imported, Skipped: skipped})
}
