package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewHTTPMetrics("kopi", []float64{1, 10}, registry)

	r := chi.NewRouter()
	r.Use(HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/orders/{id}", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}
	if samples := testutil.CollectAndCount(metrics.ReqDur); samples == 0 {
		t.Fatalf("expected histogram sample")
	}
	if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
		t.Fatalf("expected no in-flight requests, got %v", val)
	}
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewHTTPMetrics("kopi", nil, registry)
	second := NewHTTPMetrics("kopi", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestDomainMetricsCount(t *testing.T) {
	Count(nil, "ignored")

	registry := prometheus.NewRegistry()
	MustRegisterDomainMetrics("kopi", registry)
	Count(CheckoutTotal, "cash", "ok")
	Count(CheckoutTotal, "cash", "ok")
	require.Equal(t, 2.0, testutil.ToFloat64(CheckoutTotal.WithLabelValues("cash", "ok")))
}

func TestQueryName(t *testing.T) {
	require.Equal(t, "GetOrder", queryName("-- name: GetOrder :one\nSELECT 1"))
	require.Equal(t, "UPDATE", queryName("  update orders set x = 1"))
	require.Equal(t, "query", queryName(""))
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{0.005, 0.05}, ParseBucketsCSV("5, x, -1, 50"))
	require.Nil(t, ParseBucketsCSV(" "))
}
