package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveCompose(20*time.Millisecond, nil)
	m.ObserveCompose(0, errors.New("boom"))
	m.CacheHit(true)
	m.CacheHit(false)
	m.CacheHit(false)
	m.PrintJob(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.labelsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.labelsTotal.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.printJobs.WithLabelValues("ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.composeDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.PrintJob(errors.New("offline"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `assettag_print_jobs_total{result="error"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
