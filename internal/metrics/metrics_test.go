package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.ReportsSaved.Inc()
	a.ResultsRecorded.WithLabelValues("missing").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ReportsSaved))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.ResultsRecorded.WithLabelValues("missing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ReportsSaved))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ChecksStarted.WithLabelValues("false").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `applicheck_checks_started_total{resumed="false"} 1`)
}
