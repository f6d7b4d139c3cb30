package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Simplici0/woodshop/internal/costing"
)

func TestReporterCountsIssuesByKind(t *testing.T) {
	before := testutil.ToFloat64(CostIssuesTotal.WithLabelValues("cycle"))

	r := Reporter()
	r.Report(costing.Issue{Kind: costing.IssueCycle, ProductID: "x"})
	r.Report(costing.Issue{Kind: costing.IssueCycle, ProductID: "y"})

	assert.Equal(t, before+2, testutil.ToFloat64(CostIssuesTotal.WithLabelValues("cycle")))
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := HTTPRequestsTotal.WithLabelValues("/api/products/{id}", http.MethodGet, "418")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/pine", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
