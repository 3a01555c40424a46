package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/scans", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/scans", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/scans", "200"))
	assert.GreaterOrEqual(t, got, 1.0)
	assert.NotZero(t, testutil.CollectAndCount(httpRequestDuration))
}

func TestMiddlewareCapturesStatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/missing", "404"))
	assert.GreaterOrEqual(t, got, 1.0)
}

func TestObserveScan(t *testing.T) {
	before := testutil.ToFloat64(scansTotal.WithLabelValues("ok", "auto_assign"))
	ObserveScan("ok", "auto_assign", 92.5)
	after := testutil.ToFloat64(scansTotal.WithLabelValues("ok", "auto_assign"))
	assert.Equal(t, before+1, after)
}

func TestObserveStageAndFeedback(t *testing.T) {
	ObserveStage("extract", 120*time.Millisecond)
	assert.NotZero(t, testutil.CollectAndCount(stageDuration))

	before := testutil.ToFloat64(feedbackTotal.WithLabelValues("confirmed"))
	ObserveFeedback("confirmed")
	assert.Equal(t, before+1, testutil.ToFloat64(feedbackTotal.WithLabelValues("confirmed")))
}
