package task

import (
	"fmt"

	"github.com/yunqiao/multival/internal/dataset"
	"github.com/yunqiao/multival/internal/metrics"
	"github.com/yunqiao/multival/internal/ops"
	"github.com/yunqiao/multival/internal/postprocess"
	"github.com/yunqiao/multival/internal/tensor"
)

// Prediction is a task-typed postprocessing result. Exactly one of the
// payload fields is set, matching Kind.
type Prediction struct {
	Kind       Kind
	Detections [][]ops.Detection
	Maps       []ops.ClassMap
}

// Dispatcher routes each task's raw output through the kind-appropriate
// post-processor and its processed predictions into the matching
// accumulator. Unknown kinds still consume their batch slice so task
// alignment is preserved, but are skipped from metric computation.
type Dispatcher struct {
	specs     []Spec
	detector  *postprocess.Detector
	segmenter *postprocess.Segmenter

	detAcc []*metrics.DetectionAccumulator
	segAcc []*metrics.SegmentationAccumulator
}

// NewDispatcher builds per-task accumulators and shares one post-processor
// per kind.
func NewDispatcher(specs []Spec, detector *postprocess.Detector) *Dispatcher {
	d := &Dispatcher{
		specs:     specs,
		detector:  detector,
		segmenter: &postprocess.Segmenter{},
		detAcc:    make([]*metrics.DetectionAccumulator, len(specs)),
		segAcc:    make([]*metrics.SegmentationAccumulator, len(specs)),
	}
	for i, s := range specs {
		switch s.Kind {
		case KindDetection:
			d.detAcc[i] = metrics.NewDetectionAccumulator(s.NumClasses)
		case KindSegmentation:
			d.segAcc[i] = metrics.NewSegmentationAccumulator(s.NumClasses)
		}
	}
	return d
}

func (d *Dispatcher) Specs() []Spec { return d.specs }

// Postprocess routes one task's raw output to its post-processor.
func (d *Dispatcher) Postprocess(i int, raw *tensor.Dense, frames []ops.ImageFrame) (Prediction, error) {
	spec := d.specs[i]
	switch spec.Kind {
	case KindDetection:
		dets, err := d.detector.Process(raw, frames)
		if err != nil {
			return Prediction{}, fmt.Errorf("task %q: %w", spec.Name, err)
		}
		return Prediction{Kind: KindDetection, Detections: dets}, nil
	case KindSegmentation:
		maps, err := d.segmenter.Process(raw, frames)
		if err != nil {
			return Prediction{}, fmt.Errorf("task %q: %w", spec.Name, err)
		}
		return Prediction{Kind: KindSegmentation, Maps: maps}, nil
	default:
		return Prediction{Kind: KindUnknown}, nil
	}
}

// Update routes processed predictions and the matching ground truth into
// the task's accumulator.
func (d *Dispatcher) Update(i int, pred Prediction, b *dataset.Batch) error {
	spec := d.specs[i]
	switch spec.Kind {
	case KindDetection:
		for img := 0; img < b.Len(); img++ {
			var dets []ops.Detection
			if img < len(pred.Detections) {
				dets = pred.Detections[img]
			}
			var boxes []ops.Box
			var classes []int
			if img < len(b.Boxes) {
				boxes = b.Boxes[img]
				classes = b.Classes[img]
			}
			d.detAcc[i].Update(dets, boxes, classes)
		}
	case KindSegmentation:
		for img := 0; img < b.Len(); img++ {
			if img >= len(pred.Maps) || img >= len(b.Masks) {
				continue
			}
			if err := d.segAcc[i].Update(pred.Maps[img], b.Masks[img]); err != nil {
				return fmt.Errorf("task %q: %w", spec.Name, err)
			}
		}
	}
	return nil
}

// Stats finalizes one task's statistics.
func (d *Dispatcher) Stats(i int) metrics.Stats {
	switch d.specs[i].Kind {
	case KindDetection:
		return d.detAcc[i].Finalize()
	case KindSegmentation:
		return d.segAcc[i].Snapshot()
	default:
		return metrics.Stats{}
	}
}

// HasDetectionStats reports whether task i exposes detection-style keys.
// This replaces the try-merge-then-fall-back pattern with an explicit
// capability check.
func (d *Dispatcher) HasDetectionStats(i int) bool {
	return d.specs[i].Kind == KindDetection
}

// Fitness returns the fallback scalar for tasks without detection-style
// statistics: the sum of the foreground IoU and mean IoU running means.
func (d *Dispatcher) Fitness(i int) float64 {
	if acc := d.segAcc[i]; acc != nil {
		return acc.Fitness()
	}
	return 0
}
