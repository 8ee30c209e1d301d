package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yunqiao/multival/internal/ops"
)

func mapOf(w, h int, classes ...int32) ops.ClassMap {
	m := ops.NewClassMap(w, h)
	copy(m.Classes, classes)
	return m
}

func TestSegmentationPerfectPrediction(t *testing.T) {
	acc := NewSegmentationAccumulator(1)
	gt := mapOf(2, 2, 0, 1, 1, 0)
	require.NoError(t, acc.Update(gt, gt))

	s := acc.Snapshot()
	assert.InDelta(t, 1.0, s["pixacc"], 1e-9)
	assert.InDelta(t, 1.0, s["subacc"], 1e-9)
	assert.InDelta(t, 1.0, s["IoU"], 1e-9)
	assert.InDelta(t, 1.0, s["mIoU"], 1e-9)
	assert.InDelta(t, 2.0, acc.Fitness(), 1e-9)
	assert.Equal(t, 1, acc.Images())
}

func TestSegmentationHalfCorrect(t *testing.T) {
	acc := NewSegmentationAccumulator(1)
	gt := mapOf(2, 2, 1, 1, 1, 1)
	pred := mapOf(2, 2, 1, 1, 0, 0)
	require.NoError(t, acc.Update(pred, gt))

	s := acc.Snapshot()
	assert.InDelta(t, 0.5, s["pixacc"], 1e-9)
	// Foreground IoU is 2/4, at the hit threshold but not above it.
	assert.InDelta(t, 0.0, s["subacc"], 1e-9)
	assert.InDelta(t, 0.5, s["IoU"], 1e-9)
	// Background: inter 0, union 2. Class 1: inter 2, union 4.
	assert.InDelta(t, 0.25, s["mIoU"], 1e-9)
}

func TestSegmentationEmptyAgainstEmpty(t *testing.T) {
	acc := NewSegmentationAccumulator(1)
	gt := mapOf(2, 2, 0, 0, 0, 0)
	require.NoError(t, acc.Update(gt, gt))

	s := acc.Snapshot()
	assert.InDelta(t, 1.0, s["pixacc"], 1e-9)
	// A correct empty prediction counts as a subset hit.
	assert.InDelta(t, 1.0, s["subacc"], 1e-9)
	// No foreground class has any union, so IoU stays at its empty value.
	assert.Equal(t, 0.0, s["IoU"])
	assert.InDelta(t, 1.0, s["mIoU"], 1e-9)
}

func TestSegmentationDimensionMismatch(t *testing.T) {
	acc := NewSegmentationAccumulator(1)
	err := acc.Update(ops.NewClassMap(2, 2), ops.NewClassMap(3, 2))
	assert.Error(t, err)
	assert.Equal(t, 0, acc.Images())
}

func TestSegmentationRunningAverageAcrossImages(t *testing.T) {
	acc := NewSegmentationAccumulator(1)
	gt := mapOf(2, 2, 1, 1, 0, 0)
	require.NoError(t, acc.Update(gt, gt)) // pixacc 1
	require.NoError(t, acc.Update(mapOf(2, 2, 0, 0, 1, 1), gt)) // pixacc 0

	s := acc.Snapshot()
	assert.InDelta(t, 0.5, s["pixacc"], 1e-9)
	assert.Equal(t, 2, acc.Images())
	assert.True(t, s.Valid(SegmentationKeys))
}
