package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Simplici0/woodshop/internal/dashboard"
	"github.com/Simplici0/woodshop/internal/ledger"
	"github.com/Simplici0/woodshop/internal/metrics"
)

const dateLayout = "2006-01-02"

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	l, err := s.store.LoadLedger(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	metrics.RecordRollup("dashboard")
	stats := dashboard.Compute(dashboard.Input{
		Catalog:      cat,
		Clients:      l.Clients,
		Suppliers:    l.Suppliers,
		Projects:     l.Projects,
		Sales:        l.Sales,
		Purchases:    l.Purchases,
		Transactions: l.Transactions,
	}, dashboard.Options{
		Now:             time.Now(),
		LowStockDefault: &s.lowStockDefault,
		Reporter:        s.issueReporter(),
	})
	writeJSON(w, http.StatusOK, stats)
}

// handleTransactions lists transactions due between the optional from and to
// dates (YYYY-MM-DD, inclusive).
func (s *server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	txs = dashboard.FilterByDateRange(txs, func(t ledger.Transaction) time.Time { return t.DueDate }, from, to)
	writeJSON(w, http.StatusOK, txs)
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", name, raw)
	}
	return t, nil
}
