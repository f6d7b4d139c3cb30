package main

import (
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuoteForm() url.Values {
	form := url.Values{}
	form.Set("product_id", "cabinet")
	form.Set("title", "Cocina Ana")
	form.Set("laborMinutes", "90")
	form.Set("quantity", "2")
	form.Set("wastePercent", "7")
	form.Set("marginPercent", "35")
	form.Set("taxEnabled", "1")
	form.Set("taxPercent", "19")
	return form
}

func TestParseQuoteFormValues_Success(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/quotes", nil)
	req.Form = validQuoteForm()

	values, err := parseQuoteFormValues(req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if values.ProductID != "cabinet" || values.Quantity != 2 || values.LaborMinutes != 90 {
		t.Fatalf("unexpected values: %+v", values)
	}
	if !values.TaxEnabled {
		t.Fatalf("expected tax enabled")
	}
	if values.PackagingCost != 0 || values.DeliveryCost != 0 {
		t.Fatalf("expected optional costs to default to 0: %+v", values)
	}
}

func TestParseQuoteFormValues_MissingProduct(t *testing.T) {
	form := validQuoteForm()
	form.Del("product_id")

	req := httptest.NewRequest("POST", "/api/quotes", nil)
	req.Form = form

	if _, err := parseQuoteFormValues(req); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseQuoteFormValues_InvalidNumbers(t *testing.T) {
	for field, raw := range map[string]string{
		"quantity":      "0",
		"laborMinutes":  "abc",
		"wastePercent":  "101",
		"marginPercent": "-1",
		"packagingCost": "-3",
	} {
		form := validQuoteForm()
		form.Set(field, raw)

		req := httptest.NewRequest("POST", "/api/quotes", nil)
		req.Form = form

		if _, err := parseQuoteFormValues(req); err == nil {
			t.Fatalf("expected numeric validation error for %s=%q", field, raw)
		}
	}
}

func TestCreateQuoteSnapshotsRollupCost(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.doJSON(t, http.MethodPost, "/api/quotes", quoteFormValues{
		ProductID:     "cabinet",
		Title:         "Cocina Ana",
		Notes:         "Entregar en 48h",
		Quantity:      2,
		MarginPercent: 25,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decode[quoteCreatedResponse](t, rr)
	assert.InDelta(t, 32.0, created.Result.Breakdown.MaterialCost, 1e-9)
	assert.InDelta(t, 80.0, created.Result.Totals.Total, 1e-9)
	assert.Equal(t, "80.00 COP", created.Total)

	// Later cost changes must not leak into the stored quote.
	rr = ts.doJSON(t, http.MethodPut, "/api/products/pine-board", map[string]any{
		"name": "Pine Board", "type": "raw_material", "unit_cost": 99,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodGet, "/api/quotes/1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unit_cost":32`)

	rr = ts.do(t, http.MethodGet, "/api/quotes?q=48h", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"title":"Cocina Ana"`)

	rr = ts.do(t, http.MethodGet, "/api/quotes?q=nada", "", nil)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestCreateQuoteUnknownProduct(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.doJSON(t, http.MethodPost, "/api/quotes", quoteFormValues{ProductID: "ghost", Quantity: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandleQuoteTextReturnsPlainText(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/api/quotes", "application/x-www-form-urlencoded", []byte(validQuoteForm().Encode()))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[quoteCreatedResponse](t, rr)

	rr = ts.do(t, http.MethodGet, "/api/quotes/1/text", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")

	body := rr.Body.String()
	for _, expected := range []string{"Total: " + created.Total, "Supuestos:", "Datos del item:", "Producto: Cabinet", "Impuesto habilitado: Sí"} {
		assert.Contains(t, body, expected)
	}

	rr = ts.do(t, http.MethodGet, "/api/quotes/abc/text", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = ts.do(t, http.MethodGet, "/api/quotes/42/text", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestParseQuoteFormValues_RejectsNonFiniteNumbers(t *testing.T) {
	for _, tc := range []struct{ field, raw string }{
		{"quantity", "NaN"},
		{"quantity", "+Inf"},
		{"laborMinutes", "Inf"},
		{"wastePercent", "nan"},
		{"marginPercent", "Infinity"},
		{"taxPercent", "NaN"},
		{"deliveryCost", "-Inf"},
	} {
		form := validQuoteForm()
		form.Set(tc.field, tc.raw)

		req := httptest.NewRequest("POST", "/api/quotes", nil)
		req.Form = form

		_, err := parseQuoteFormValues(req)
		if err == nil {
			t.Fatalf("expected error for %s=%q", tc.field, tc.raw)
		}
		assert.Contains(t, err.Error(), "debe ser numérico", "%s=%q", tc.field, tc.raw)
	}
}

func TestValidateQuoteValues_RejectsNonFiniteNumbers(t *testing.T) {
	base := quoteFormValues{ProductID: "cabinet", Quantity: 1}
	require.NoError(t, validateQuoteValues(base))

	for _, mutate := range []func(*quoteFormValues){
		func(v *quoteFormValues) { v.Quantity = math.NaN() },
		func(v *quoteFormValues) { v.LaborMinutes = math.Inf(1) },
		func(v *quoteFormValues) { v.MarginPercent = math.NaN() },
		func(v *quoteFormValues) { v.PackagingCost = math.Inf(1) },
	} {
		v := base
		mutate(&v)
		err := validateQuoteValues(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "debe ser numérico")
	}
}

func TestCreateQuoteRejectsNonFiniteForm(t *testing.T) {
	ts := newTestServer(t)

	for field, raw := range map[string]string{"quantity": "NaN", "laborMinutes": "Inf"} {
		form := validQuoteForm()
		form.Set(field, raw)
		rr := ts.do(t, http.MethodPost, "/api/quotes", "application/x-www-form-urlencoded", []byte(form.Encode()))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "%s=%s: %s", field, raw, rr.Body.String())
		assert.Contains(t, rr.Body.String(), "debe ser numérico")
	}
}

func TestCreateQuoteChecksClient(t *testing.T) {
	ts := newTestServer(t)

	form := validQuoteForm()
	form.Set("client_id", "c-1")
	rr := ts.do(t, http.MethodPost, "/api/quotes", "application/x-www-form-urlencoded", []byte(form.Encode()))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "Cliente no encontrado")

	rr = ts.doJSON(t, http.MethodPost, "/api/clients", map[string]any{"id": "c-1", "name": "Ana"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodPost, "/api/quotes", "application/x-www-form-urlencoded", []byte(form.Encode()))
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestCreateQuoteSplitsInstallments(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.doJSON(t, http.MethodPost, "/api/quotes", quoteFormValues{
		ProductID:     "cabinet",
		Quantity:      2,
		MarginPercent: 25,
		Installments:  3,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[quoteCreatedResponse](t, rr)
	assert.Equal(t, []float64{26.66, 26.66, 26.68}, created.Installments)

	rr = ts.do(t, http.MethodGet, "/api/quotes/1/text?installments=3", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	assert.Contains(t, body, "Pago en 3 cuotas:")
	assert.Contains(t, body, "- Cuota 3: 26.68 COP")

	rr = ts.do(t, http.MethodGet, "/api/quotes/1/text", "", nil)
	assert.NotContains(t, rr.Body.String(), "cuotas")

	rr = ts.do(t, http.MethodGet, "/api/quotes/1/text?installments=many", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.doJSON(t, http.MethodPost, "/api/quotes", quoteFormValues{ProductID: "cabinet", Quantity: 1, Installments: 99})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
