package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New()
	c.JobEnqueued("Import Manufacturer")
	c.JobEnqueued("Import Manufacturer")
	c.JobFinished("Import Manufacturer", "completed", time.Second)
	c.RecordHTTPRequest(http.MethodGet, "/health", 200, time.Millisecond)
	c.SetSyncCandidates(3, 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.JobsEnqueued.WithLabelValues("Import Manufacturer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.JobsFinished.WithLabelValues("Import Manufacturer", "completed")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.SyncCandidates.WithLabelValues("devicetype")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "welcome_wizard_jobs_enqueued_total")
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.JobEnqueued("x")
	c.JobFinished("x", "failed", 0)
	c.RecordHTTPRequest("GET", "/", 500, 0)
	c.SetSyncCandidates(1, 1)
}
