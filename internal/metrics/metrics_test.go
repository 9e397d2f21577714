package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSearch(t *testing.T) {
	m := New()

	m.ObserveSearch(false, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SearchQueries))

	m.ObserveSearch(true, 3)
	m.ObserveSearch(true, 0)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueries))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SearchResults))
}

func TestObserveRunAndValidation(t *testing.T) {
	m := New()

	m.ObserveRun("success")
	m.ObserveRun("success")
	m.ObserveRun("busy")
	m.ObserveValidation(true)
	m.ObserveValidation(false)
	m.ObserveValidation(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("correct")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Validations.WithLabelValues("incorrect")))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveRun("success")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Runs.WithLabelValues("success")))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/search", http.StatusOK, 5*time.Millisecond)
	m.ObserveSearch(true, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "luatutor_search_queries_total 1")
	assert.Contains(t, string(body), `luatutor_http_request_duration_seconds_count{code="200",route="/api/search"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
