package metrics

import (
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/integrate"

	"github.com/yunqiao/multival/internal/ops"
)

// IoUThresholds is the ladder average precision is evaluated over:
// 0.50 to 0.95 in steps of 0.05.
var IoUThresholds = func() []float64 {
	t := make([]float64, 10)
	for i := range t {
		t[i] = 0.5 + 0.05*float64(i)
	}
	return t
}()

// imageRecord holds one image's matching outcome: per-detection true/false
// positive flags at each IoU threshold, confidences, predicted classes, and
// the image's ground-truth classes.
type imageRecord struct {
	tp        [][]bool
	conf      []float64
	predCls   []int
	targetCls []int
}

// DetectionAccumulator collects per-image confusion records and computes
// precision/recall curves and mean average precision at finalization.
type DetectionAccumulator struct {
	numClasses int
	records    []imageRecord
}

func NewDetectionAccumulator(numClasses int) *DetectionAccumulator {
	return &DetectionAccumulator{numClasses: numClasses}
}

// Update consumes one image's retained detections and ground truth. An
// image with zero detections still contributes its ground-truth classes so
// recall denominators stay correct.
func (a *DetectionAccumulator) Update(dets []ops.Detection, gtBoxes []ops.Box, gtClasses []int) {
	rec := imageRecord{
		tp:        ops.MatchDetections(dets, gtBoxes, gtClasses, IoUThresholds),
		conf:      make([]float64, len(dets)),
		predCls:   make([]int, len(dets)),
		targetCls: append([]int(nil), gtClasses...),
	}
	for i, d := range dets {
		rec.conf[i] = float64(d.Score)
		rec.predCls[i] = d.Class
	}
	a.records = append(a.records, rec)
}

// Images returns how many images have been accumulated.
func (a *DetectionAccumulator) Images() int { return len(a.records) }

// Finalize computes the summary statistics from the accumulated records.
func (a *DetectionAccumulator) Finalize() Stats {
	type flat struct {
		tp      []bool
		conf    float64
		predCls int
	}
	var preds []flat
	gtCount := make([]int, a.numClasses)
	for _, rec := range a.records {
		for i := range rec.conf {
			preds = append(preds, flat{tp: rec.tp[i], conf: rec.conf[i], predCls: rec.predCls[i]})
		}
		for _, c := range rec.targetCls {
			if c >= 0 && c < a.numClasses {
				gtCount[c]++
			}
		}
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].conf > preds[j].conf })

	var apAll, ap50, precisions, recalls []float64
	for c := 0; c < a.numClasses; c++ {
		if gtCount[c] == 0 {
			continue
		}
		var cls []flat
		for _, p := range preds {
			if p.predCls == c {
				cls = append(cls, p)
			}
		}

		apPerThresh := make([]float64, len(IoUThresholds))
		for t := range IoUThresholds {
			recall := make([]float64, len(cls))
			precision := make([]float64, len(cls))
			tpc := 0
			for i, p := range cls {
				if p.tp[t] {
					tpc++
				}
				recall[i] = float64(tpc) / float64(gtCount[c])
				precision[i] = float64(tpc) / float64(i+1)
			}
			apPerThresh[t] = averagePrecision(recall, precision)
		}
		apMean, _ := stats.Mean(apPerThresh)
		apAll = append(apAll, apMean)
		ap50 = append(ap50, apPerThresh[0])

		// Final-point precision/recall at IoU 0.50.
		tpc := 0
		for _, p := range cls {
			if p.tp[0] {
				tpc++
			}
		}
		recalls = append(recalls, float64(tpc)/float64(gtCount[c]))
		if len(cls) > 0 {
			precisions = append(precisions, float64(tpc)/float64(len(cls)))
		} else {
			precisions = append(precisions, 0)
		}
	}

	s := Stats{
		"precision": meanOrZero(precisions),
		"recall":    meanOrZero(recalls),
		"mAP50":     meanOrZero(ap50),
		"mAP50-95":  meanOrZero(apAll),
	}
	p, r := s["precision"], s["recall"]
	if p+r > 0 {
		s["f1"] = 2 * p * r / (p + r)
	} else {
		s["f1"] = 0
	}
	s["fitness"] = 0.1*s["mAP50"] + 0.9*s["mAP50-95"]
	return s
}

// averagePrecision integrates the precision envelope over recall.
func averagePrecision(recall, precision []float64) float64 {
	if len(recall) == 0 {
		return 0
	}
	mrec := make([]float64, 0, len(recall)+2)
	mpre := make([]float64, 0, len(precision)+2)
	mrec = append(mrec, 0)
	mpre = append(mpre, 1)
	mrec = append(mrec, recall...)
	mpre = append(mpre, precision...)
	mrec = append(mrec, 1)
	mpre = append(mpre, 0)

	// Monotonic non-increasing envelope.
	for i := len(mpre) - 2; i >= 0; i-- {
		if mpre[i] < mpre[i+1] {
			mpre[i] = mpre[i+1]
		}
	}
	// Trapezoidal integration needs strictly increasing x, but the curve
	// can hold repeated recall values where precision drops vertically.
	// Those segments have zero width, so integrate each strictly
	// increasing run separately and sum.
	total := 0.0
	start := 0
	for i := 1; i <= len(mrec); i++ {
		if i == len(mrec) || mrec[i] <= mrec[i-1] {
			if i-start >= 2 {
				total += integrate.Trapezoidal(mrec[start:i], mpre[start:i])
			}
			start = i
		}
	}
	return total
}

func meanOrZero(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	m, err := stats.Mean(v)
	if err != nil {
		return 0
	}
	return m
}
