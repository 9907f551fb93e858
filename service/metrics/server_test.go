package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	NewMux().ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, 200, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestMetricsExposesScreeningCounters(t *testing.T) {
	VideosScreenedTotal.WithLabelValues("fake").Inc()

	rr := httptest.NewRecorder()
	NewMux().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rr.Code)
	assert.Contains(t, rr.Body.String(), `dfd_videos_screened_total{verdict="fake"}`)
}
