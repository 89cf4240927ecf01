package http

import (
	"fmt"
	"net/http"

	"budgeting/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txns, err := s.backend.Transactions.List(r.Context(), ownerFrom(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionsResponse(txns))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.toCore(ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.backend.Transactions.Create(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/transactions/"+created.ID)
	writeJSON(w, http.StatusCreated, newTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, ok, err := s.backend.Transactions.Get(r.Context(), ownerFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.toCore(ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	t.ID = r.PathValue("id")
	updated, err := s.backend.Transactions.Update(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(updated))
}

// handleExpenses lists only expense transactions, with their total.
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inq, err := s.backend.Transactions.Expenses(r.Context(), ownerFrom(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": newTransactionsResponse(inq.Transactions),
		"total":        amountString(inq.Total),
	})
}
