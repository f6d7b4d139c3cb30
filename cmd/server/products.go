package main

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/woodshop/internal/catalog"
	"github.com/Simplici0/woodshop/internal/costing"
	"github.com/Simplici0/woodshop/internal/metrics"
	"github.com/Simplici0/woodshop/internal/money"
	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/store"
)

type componentsRequest struct {
	Components []catalog.Component `json:"components"`
}

type issueView struct {
	costing.Issue
	Message string `json:"message"`
}

type costResponse struct {
	costing.Result
	Issues   []issueView `json:"issues"`
	Total    string      `json:"total"`
	Currency string      `json:"currency"`
	// SuggestedPrice applies the configured margin to the rolled-up cost.
	SuggestedPrice float64 `json:"suggested_price"`
	// CurrentMargin is the margin over cost of the stored sale price, absent
	// when the product has no sale price.
	CurrentMargin *float64 `json:"current_margin,omitempty"`
}

type importRowError struct {
	Line  int    `json:"line"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type importResponse struct {
	store.ImportStats
	Rejected []importRowError `json:"rejected"`
}

func (s *server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	created, err := s.store.CreateProduct(r.Context(), p)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	p.ID = chi.URLParam(r, "id")
	updated, err := s.store.UpdateProduct(r.Context(), p)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSetComponents(w http.ResponseWriter, r *http.Request) {
	var req componentsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.store.SetComponents(r.Context(), chi.URLParam(r, "id"), req.Components)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleProductCost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cat, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	product, ok := cat.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "product "+id+" not found")
		return
	}
	rates, err := s.store.GetRateConfig(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	metrics.RecordRollup("api")
	res := costing.Rollup(cat, id, s.issueReporter())

	issues := make([]issueView, 0, len(res.Issues))
	for _, i := range res.Issues {
		issues = append(issues, issueView{Issue: i, Message: i.String()})
	}
	resp := costResponse{
		Result:         res,
		Issues:         issues,
		Total:          money.Format(res.Cost, rates.Currency),
		Currency:       rates.Currency,
		SuggestedPrice: pricing.PriceFromMargin(res.Cost, rates.MarginPercent),
	}
	if product.SalePrice > 0 {
		margin := pricing.MarginFromPrice(res.Cost, product.SalePrice)
		resp.CurrentMargin = &margin
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleProductCycles lists every product whose BOM leads back to itself.
func (s *server) handleProductCycles(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycles":   cat.Cycles(),
		"dangling": cat.DanglingReferences(),
	})
}

func (s *server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	if err := catalog.WriteCSV(w, products); err != nil {
		s.logger.Warn("csv export interrupted", zap.Error(err))
	}
}

func (s *server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := csvBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer closeBody()

	products, rowErrs, err := catalog.ReadCSV(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.store.ImportProducts(r.Context(), products)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	metrics.RecordCSVRows(len(products), len(rowErrs))

	rejected := make([]importRowError, 0, len(rowErrs))
	for _, re := range rowErrs {
		rejected = append(rejected, importRowError{Line: re.Line, ID: re.ID, Error: re.Err.Error()})
	}
	writeJSON(w, http.StatusOK, importResponse{ImportStats: stats, Rejected: rejected})
}

// csvBody returns the uploaded "file" part of a multipart form, or the raw
// request body otherwise.
func csvBody(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, func() {}, nil
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errors.New("missing file field")
	}
	return file, func() { _ = file.Close() }, nil
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return catalog.Product{}, false
	}
	typ, err := catalog.ParseProductType(string(p.Type))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return catalog.Product{}, false
	}
	p.Type = typ
	return p, true
}

func (s *server) issueReporter() costing.Reporter {
	return costing.Multi(metrics.Reporter(), costing.LogReporter(s.logger))
}
