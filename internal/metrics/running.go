// Package metrics implements the per-task statistics collectors: detection
// average-precision accumulation and segmentation running accuracies.
package metrics

// RunningMean is a (sum, count) aggregate exposing a derived mean. Count
// never decreases.
type RunningMean struct {
	sum   float64
	count int
}

// Update adds one observation.
func (m *RunningMean) Update(v float64) { m.UpdateN(v, 1) }

// UpdateN adds an observation representing n samples (v is the per-sample
// value).
func (m *RunningMean) UpdateN(v float64, n int) {
	m.sum += v * float64(n)
	m.count += n
}

func (m *RunningMean) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

func (m *RunningMean) Count() int { return m.count }
