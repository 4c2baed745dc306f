package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.AuthFailure("invalid_token")
	m.AuthFailure("invalid_token")
	m.RateLimited()
	m.Task("upload.ingest", "ok")
	m.UploadBytes(2048)
	m.UploadBytes(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthFailuresTotal.WithLabelValues("invalid_token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("upload.ingest", "ok")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.UploadBytesTotal))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "realtyhub_rate_limited_requests_total 1")
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthFailure("x")
		m.RateLimited()
		m.Task("t", "ok")
		m.UploadBytes(1)
	})
}

func TestInstancesUseSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
