package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Simplici0/woodshop/internal/ledger"
)

// transactionRequest accepts due_date and paid_at as YYYY-MM-DD or RFC 3339.
type transactionRequest struct {
	Kind        ledger.TransactionKind `json:"kind"`
	Description string                 `json:"description"`
	Amount      float64                `json:"amount"`
	DueDate     string                 `json:"due_date"`
	PaidAt      string                 `json:"paid_at"`
	BankAccount string                 `json:"bank_account"`
	CostCenter  string                 `json:"cost_center"`
}

func (req transactionRequest) transaction() (ledger.Transaction, error) {
	t := ledger.Transaction{
		Kind:        ledger.TransactionKind(strings.ToLower(strings.TrimSpace(string(req.Kind)))),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		BankAccount: strings.TrimSpace(req.BankAccount),
		CostCenter:  strings.TrimSpace(req.CostCenter),
	}
	var err error
	if t.DueDate, err = parseDate(req.DueDate, "due_date"); err != nil {
		return ledger.Transaction{}, err
	}
	if req.PaidAt != "" {
		paid, err := parseDate(req.PaidAt, "paid_at")
		if err != nil {
			return ledger.Transaction{}, err
		}
		t.PaidAt = &paid
	}
	return t, nil
}

func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", field, raw)
	}
	return t, nil
}

// createHandler decodes a JSON record, hands it to create and answers 201
// with the stored record.
func createHandler[T any](s *server, create func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v T
		if err := decodeJSON(w, r, &v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, err := create(r.Context(), v)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func listHandler[T any](s *server, list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := req.transaction()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.CreateTransaction(r.Context(), t)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
