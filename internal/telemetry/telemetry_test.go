package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorExposesCounters(t *testing.T) {
	c := New()
	c.BatchesProcessed.Add(3)
	c.ImagesProcessed.Add(48)
	c.RunsCompleted.Add(1)
	c.ObserveStage("inference", 1500*time.Millisecond)
	c.ObserveStage("inference", 500*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "multival_batches_processed_total 3")
	assert.Contains(t, string(body), "multival_images_processed_total 48")
	assert.Contains(t, string(body), "multival_runs_completed_total 1")
	assert.Contains(t, string(body), `multival_stage_seconds_total{stage="inference"} 2`)
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.BatchesProcessed.Add(5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "multival_batches_processed_total 0")
}
