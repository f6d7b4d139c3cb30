package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/woodshop/internal/costing"
	"github.com/Simplici0/woodshop/internal/metrics"
	"github.com/Simplici0/woodshop/internal/money"
	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/store"
)

type quoteFormValues struct {
	ProductID     string  `json:"product_id"`
	ClientID      string  `json:"client_id"`
	Title         string  `json:"title"`
	Notes         string  `json:"notes"`
	Quantity      float64 `json:"quantity"`
	LaborMinutes  float64 `json:"labor_minutes"`
	WastePercent  float64 `json:"waste_percent"`
	MarginPercent float64 `json:"margin_percent"`
	TaxEnabled    bool    `json:"tax_enabled"`
	TaxPercent    float64 `json:"tax_percent"`
	PackagingCost float64 `json:"packaging_cost"`
	DeliveryCost  float64 `json:"delivery_cost"`
	Installments  int     `json:"installments"`
}

// maxInstallments bounds the payment plan offered with a quote.
const maxInstallments = 36

type quoteCreatedResponse struct {
	ID           int64          `json:"id"`
	Result       pricing.Result `json:"result"`
	Total        string         `json:"total"`
	Installments []float64      `json:"installments,omitempty"`
	Issues       []issueView    `json:"issues"`
}

func parseQuoteFormValues(r *http.Request) (quoteFormValues, error) {
	if err := r.ParseForm(); err != nil {
		return quoteFormValues{}, errors.New("formulario inválido")
	}

	values := quoteFormValues{
		ProductID: strings.TrimSpace(r.FormValue("product_id")),
		ClientID:  strings.TrimSpace(r.FormValue("client_id")),
		Title:     strings.TrimSpace(r.FormValue("title")),
		Notes:     strings.TrimSpace(r.FormValue("notes")),
	}

	var err error
	if values.Quantity, err = parsePositiveFloat(r.FormValue("quantity"), "Cantidad"); err != nil {
		return quoteFormValues{}, err
	}
	if values.LaborMinutes, err = parseNonNegativeFloat(r.FormValue("laborMinutes"), "Minutos de mano de obra"); err != nil {
		return quoteFormValues{}, err
	}
	if values.WastePercent, err = parsePercent(r.FormValue("wastePercent"), "Desperdicio"); err != nil {
		return quoteFormValues{}, err
	}
	if values.MarginPercent, err = parseNonNegativeFloat(r.FormValue("marginPercent"), "Margen"); err != nil {
		return quoteFormValues{}, err
	}
	if values.TaxPercent, err = parsePercent(r.FormValue("taxPercent"), "Impuesto"); err != nil {
		return quoteFormValues{}, err
	}
	if values.PackagingCost, err = optionalFloat(r.FormValue("packagingCost"), "Empaque", parseNonNegativeFloat); err != nil {
		return quoteFormValues{}, err
	}
	if values.DeliveryCost, err = optionalFloat(r.FormValue("deliveryCost"), "Entrega", parseNonNegativeFloat); err != nil {
		return quoteFormValues{}, err
	}
	if values.Installments, err = parseInstallments(r.FormValue("installments")); err != nil {
		return quoteFormValues{}, err
	}
	switch r.FormValue("taxEnabled") {
	case "1", "true", "on":
		values.TaxEnabled = true
	}

	return values, validateQuoteValues(values)
}

// validateQuoteValues applies the form rules to values decoded from JSON too.
func validateQuoteValues(v quoteFormValues) error {
	numbers := []struct {
		value float64
		field string
	}{
		{v.Quantity, "Cantidad"},
		{v.LaborMinutes, "Minutos de mano de obra"},
		{v.WastePercent, "Desperdicio"},
		{v.MarginPercent, "Margen"},
		{v.TaxPercent, "Impuesto"},
		{v.PackagingCost, "Empaque"},
		{v.DeliveryCost, "Entrega"},
	}
	for _, n := range numbers {
		if !finite(n.value) {
			return fmt.Errorf("%s debe ser numérico", n.field)
		}
	}

	switch {
	case v.ProductID == "":
		return errors.New("Producto es obligatorio")
	case v.Quantity <= 0:
		return errors.New("Cantidad debe ser mayor a 0")
	case v.LaborMinutes < 0:
		return errors.New("Minutos de mano de obra debe ser mayor o igual a 0")
	case v.WastePercent < 0 || v.WastePercent > 100:
		return errors.New("Desperdicio debe estar entre 0 y 100")
	case v.MarginPercent < 0:
		return errors.New("Margen debe ser mayor o igual a 0")
	case v.TaxPercent < 0 || v.TaxPercent > 100:
		return errors.New("Impuesto debe estar entre 0 y 100")
	case v.PackagingCost < 0 || v.DeliveryCost < 0:
		return errors.New("Costos de empaque y entrega deben ser mayores o iguales a 0")
	case v.Installments < 0 || v.Installments > maxInstallments:
		return fmt.Errorf("Cuotas debe estar entre 0 y %d", maxInstallments)
	}
	return nil
}

// parseInstallments reads an optional number of payments. Empty means none.
func parseInstallments(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("Cuotas debe ser un número entero")
	}
	if n < 0 || n > maxInstallments {
		return 0, fmt.Errorf("Cuotas debe estar entre 0 y %d", maxInstallments)
	}
	return n, nil
}

func (s *server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var (
		values quoteFormValues
		err    error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err = decodeJSON(w, r, &values); err == nil {
			err = validateQuoteValues(values)
		}
	} else {
		values, err = parseQuoteFormValues(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cat, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	product, ok := cat.Get(values.ProductID)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Producto no encontrado")
		return
	}
	rates, err := s.store.GetRateConfig(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	metrics.RecordRollup("quote")
	rollup := costing.Rollup(cat, product.ID, s.issueReporter())

	global := rates.Global()
	global.WastePercent = values.WastePercent
	global.MarginPercent = values.MarginPercent
	global.TaxEnabled = values.TaxEnabled
	global.TaxPercent = values.TaxPercent
	global.PackagingCost = values.PackagingCost
	global.DeliveryCost = values.DeliveryCost

	result := pricing.Calculate(pricing.ItemInput{
		MaterialCost: rollup.Cost,
		LaborMinutes: values.LaborMinutes,
		Quantity:     values.Quantity,
	}, global)

	id, err := s.store.CreateQuote(r.Context(), store.Quote{
		Title:         values.Title,
		Notes:         values.Notes,
		ClientID:      values.ClientID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		Quantity:      values.Quantity,
		UnitCost:      rollup.Cost,
		LaborMinutes:  values.LaborMinutes,
		WastePercent:  values.WastePercent,
		MarginPercent: values.MarginPercent,
		TaxEnabled:    values.TaxEnabled,
		TaxPercent:    values.TaxPercent,
		Currency:      rates.Currency,
		Breakdown:     result.Breakdown,
		Totals:        result.Totals,
	})
	if errors.Is(err, store.ErrUnknownReference) {
		writeError(w, http.StatusUnprocessableEntity, "Cliente no encontrado")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	issues := make([]issueView, 0, len(rollup.Issues))
	for _, i := range rollup.Issues {
		issues = append(issues, issueView{Issue: i, Message: i.String()})
	}
	writeJSON(w, http.StatusCreated, quoteCreatedResponse{
		ID:     id,
		Result: result,
		Total:        money.Format(result.Totals.Total, rates.Currency),
		Installments: pricing.Installments(result.Totals.Total, values.Installments),
		Issues:       issues,
	})
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.ListQuotes(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	installments, err := parseInstallments(r.URL.Query().Get("installments"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(renderQuoteText(q, installments)))
}

func (s *server) loadQuote(w http.ResponseWriter, r *http.Request) (store.Quote, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return store.Quote{}, false
	}
	q, err := s.store.GetQuote(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return store.Quote{}, false
	}
	return q, true
}

// renderQuoteText formats a stored quote for pasting into a chat or email.
// With installments > 1 it appends the payment plan.
func renderQuoteText(q store.Quote, installments int) string {
	cur := q.Currency
	amount := func(v float64) string { return money.Format(v, cur) }
	yesNo := "No"
	if q.TaxEnabled {
		yesNo = "Sí"
	}

	var b strings.Builder
	title := q.Title
	if title == "" {
		title = "Sin título"
	}
	fmt.Fprintf(&b, "Cotización #%d - %s\n", q.ID, title)
	fmt.Fprintf(&b, "Fecha: %s\n\n", q.CreatedAt.Format("2006-01-02 15:04"))

	b.WriteString("Datos del item:\n")
	fmt.Fprintf(&b, "- Producto: %s\n", q.ProductName)
	fmt.Fprintf(&b, "- Cantidad: %s\n", strconv.FormatFloat(q.Quantity, 'f', -1, 64))
	fmt.Fprintf(&b, "- Costo unitario de materiales: %s\n", amount(q.UnitCost))
	fmt.Fprintf(&b, "- Minutos de mano de obra: %s\n\n", strconv.FormatFloat(q.LaborMinutes, 'f', -1, 64))

	b.WriteString("Supuestos:\n")
	fmt.Fprintf(&b, "- Desperdicio: %s%%\n", money.String(q.WastePercent))
	fmt.Fprintf(&b, "- Margen: %s%%\n", money.String(q.MarginPercent))
	fmt.Fprintf(&b, "- Impuesto habilitado: %s (%s%%)\n\n", yesNo, money.String(q.TaxPercent))

	bd := q.Breakdown
	b.WriteString("Desglose:\n")
	fmt.Fprintf(&b, "- Materiales: %s\n", amount(bd.MaterialCost))
	fmt.Fprintf(&b, "- Mano de obra: %s\n", amount(bd.LaborCost))
	fmt.Fprintf(&b, "- Subtotal: %s\n", amount(bd.Subtotal))
	fmt.Fprintf(&b, "- Gastos generales: %s\n", amount(bd.Overhead))
	fmt.Fprintf(&b, "- Reprocesos: %s\n", amount(bd.Rework))
	fmt.Fprintf(&b, "- Empaque: %s\n", amount(bd.PackagingCost))
	fmt.Fprintf(&b, "- Entrega: %s\n", amount(bd.DeliveryCost))
	fmt.Fprintf(&b, "- Margen: %s\n", amount(bd.Margin))
	fmt.Fprintf(&b, "- Impuesto: %s\n\n", amount(bd.Tax))

	fmt.Fprintf(&b, "Total: %s\n", amount(q.Totals.Total))
	if installments > 1 {
		fmt.Fprintf(&b, "\nPago en %d cuotas:\n", installments)
		for i, part := range pricing.Installments(q.Totals.Total, installments) {
			fmt.Fprintf(&b, "- Cuota %d: %s\n", i+1, amount(part))
		}
	}
	if q.Notes != "" {
		fmt.Fprintf(&b, "\nNotas: %s\n", q.Notes)
	}
	return b.String()
}
