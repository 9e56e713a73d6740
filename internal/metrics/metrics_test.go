package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New()
	c.ObserveExtraction(ResultSuccess, 20*time.Millisecond)
	c.ObserveExtraction(ResultSuccess, 30*time.Millisecond)
	c.ObserveExtraction(ResultFailure, time.Second)
	c.Fallback()
	c.AddBytes(1024)
	c.AddBytes(-5)

	require.Equal(t, 2.0, testutil.ToFloat64(c.extractions.WithLabelValues(ResultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.extractions.WithLabelValues(ResultFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.fallbacks))
	require.Equal(t, 1024.0, testutil.ToFloat64(c.bytesRead))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "gpmfx_extractions_total")
	require.Contains(t, string(body), "gpmfx_extraction_duration_seconds_bucket")
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObserveExtraction(ResultSuccess, time.Second)
	c.Fallback()
	c.AddBytes(10)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 404, rec.Code)
}
