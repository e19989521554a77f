package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpstream(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveUpstream(200)
	m.ObserveUpstream(200)
	m.ObserveUpstream(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.upstreamRequestsTotal.WithLabelValues("200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.upstreamRequestsTotal.WithLabelValues("error")))
}

func TestObserveExtracted_IgnoresZero(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveExtracted("category", 3)
	m.ObserveExtracted("category", 0)
	m.ObserveExtractionError("parse")

	assert.Equal(t, float64(3), testutil.ToFloat64(m.extractedItemsTotal.WithLabelValues("category")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.extractedItemsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.extractionErrorsTotal.WithLabelValues("parse")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/api/zara/categories", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{code="200",method="GET"} 1`)
	assert.Contains(t, string(body), "http_request_duration_seconds_bucket")
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/plain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/items/1", "/items/2", "/plain"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "418")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpRequestDurationSeconds))
}
