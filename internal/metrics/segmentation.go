package metrics

import (
	"fmt"

	"github.com/yunqiao/multival/internal/ops"
)

// SegmentationAccumulator maintains four running means per task, each
// updated once per image from exact pixel confusion counts:
//
//	pixacc — fraction of correctly classified pixels
//	subacc — fraction of images whose foreground was non-trivially detected
//	IoU    — mean intersection-over-union of the foreground classes
//	mIoU   — mean intersection-over-union across all classes
//
// The class count includes one extra slot so index 0 is background.
type SegmentationAccumulator struct {
	numClasses int // declared classes + 1 background

	pixAcc RunningMean
	subAcc RunningMean
	iou    RunningMean
	miou   RunningMean
}

// NewSegmentationAccumulator reserves background index 0 on top of the
// declared class count.
func NewSegmentationAccumulator(declaredClasses int) *SegmentationAccumulator {
	return &SegmentationAccumulator{numClasses: declaredClasses + 1}
}

// foregroundHitThreshold is the binary foreground IoU above which an image
// counts as a subset-accuracy hit.
const foregroundHitThreshold = 0.5

// Update consumes one image's predicted class map and its ground truth.
func (a *SegmentationAccumulator) Update(pred, gt ops.ClassMap) error {
	if pred.W != gt.W || pred.H != gt.H {
		return fmt.Errorf("segmentation update: prediction %dx%d vs ground truth %dx%d", pred.W, pred.H, gt.W, gt.H)
	}
	total := len(gt.Classes)
	if total == 0 {
		return nil
	}

	correct := 0
	inter := make([]int, a.numClasses)
	predCnt := make([]int, a.numClasses)
	gtCnt := make([]int, a.numClasses)
	fgInter, fgUnion := 0, 0
	for i, g := range gt.Classes {
		p := pred.Classes[i]
		if p == g {
			correct++
		}
		if int(p) < a.numClasses {
			predCnt[p]++
		}
		if int(g) < a.numClasses {
			gtCnt[g]++
		}
		if p == g && int(g) < a.numClasses {
			inter[g]++
		}
		if p != 0 || g != 0 {
			fgUnion++
			if p != 0 && g != 0 {
				fgInter++
			}
		}
	}

	a.pixAcc.Update(float64(correct) / float64(total))

	var iouSum float64
	iouN := 0
	var fgIoUSum float64
	fgIoUN := 0
	for c := 0; c < a.numClasses; c++ {
		union := predCnt[c] + gtCnt[c] - inter[c]
		if union == 0 {
			continue
		}
		v := float64(inter[c]) / float64(union)
		iouSum += v
		iouN++
		if c != 0 {
			fgIoUSum += v
			fgIoUN++
		}
	}
	if iouN > 0 {
		a.miou.Update(iouSum / float64(iouN))
	}
	if fgIoUN > 0 {
		a.iou.Update(fgIoUSum / float64(fgIoUN))
	}

	if fgUnion == 0 {
		// No foreground anywhere: a correct empty prediction counts as a hit.
		a.subAcc.Update(1)
	} else if float64(fgInter)/float64(fgUnion) > foregroundHitThreshold {
		a.subAcc.Update(1)
	} else {
		a.subAcc.Update(0)
	}
	return nil
}

// Images returns how many images have been accumulated.
func (a *SegmentationAccumulator) Images() int { return a.pixAcc.Count() }

// Snapshot exposes the four running means. No separate finalization pass is
// needed; these are already running averages.
func (a *SegmentationAccumulator) Snapshot() Stats {
	return Stats{
		"pixacc": a.pixAcc.Mean(),
		"subacc": a.subAcc.Mean(),
		"IoU":    a.iou.Mean(),
		"mIoU":   a.miou.Mean(),
	}
}

// Fitness collapses the accumulator into one comparable scalar: the sum of
// the foreground IoU and mean IoU running means. Used when a task lacks
// detection-style statistics.
func (a *SegmentationAccumulator) Fitness() float64 {
	return a.iou.Mean() + a.miou.Mean()
}
