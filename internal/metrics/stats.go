package metrics

import "math"

// Stats maps metric names to finalized scalar values.
type Stats map[string]float64

// DetectionKeys are the entries a detection-task statistics mapping must
// expose with finite values.
var DetectionKeys = []string{"precision", "recall", "mAP50", "mAP50-95", "fitness"}

// SegmentationKeys are the running-mean entries a segmentation-task
// statistics mapping exposes.
var SegmentationKeys = []string{"pixacc", "subacc", "IoU", "mIoU"}

// Valid reports whether every named key is present and finite.
func (s Stats) Valid(keys []string) bool {
	for _, k := range keys {
		v, ok := s[k]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Rounded returns a copy with every value rounded to the given number of
// decimal places.
func (s Stats) Rounded(places int) Stats {
	pow := math.Pow(10, float64(places))
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = math.Round(v*pow) / pow
	}
	return out
}
