// Package postprocess transforms raw model outputs into task-typed
// prediction records.
package postprocess

import (
	"errors"
	"fmt"

	"github.com/yunqiao/multival/internal/ops"
	"github.com/yunqiao/multival/internal/tensor"
)

// ErrShapeMismatch reports raw output whose leading batch dimension does
// not match the number of images in the batch.
var ErrShapeMismatch = errors.New("shape mismatch")

// Detector suppresses redundant raw detections and remaps the survivors to
// the original image frame.
//
// Raw detection output is [batch, candidates, 5+classes] rows of
// (cx, cy, w, h, objectness, class scores...) in the working resolution.
type Detector struct {
	ConfThreshold float64
	NMS           ops.NMSOptions
	Classes       []int // allow-list, nil = all
}

// Process returns one retained-detection slice per image, boxes in the
// original image's coordinate frame. Output order is the suppression
// order, deterministic for identical inputs.
func (d *Detector) Process(raw *tensor.Dense, frames []ops.ImageFrame) ([][]ops.Detection, error) {
	shape := raw.Shape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: detection output must be 3-D, got %v", ErrShapeMismatch, shape)
	}
	if shape[0] != len(frames) {
		return nil, fmt.Errorf("%w: %d prediction rows for %d images", ErrShapeMismatch, shape[0], len(frames))
	}
	rowLen := shape[2]
	if rowLen < 6 {
		return nil, fmt.Errorf("%w: detection row length %d", ErrShapeMismatch, rowLen)
	}
	numClasses := rowLen - 5

	var allow map[int]bool
	if len(d.Classes) > 0 {
		allow = make(map[int]bool, len(d.Classes))
		for _, c := range d.Classes {
			allow[c] = true
		}
	}

	out := make([][]ops.Detection, len(frames))
	for i := range frames {
		data := raw.Row(i)
		var cands []ops.Detection
		for n := 0; n < shape[1]; n++ {
			row := data[n*rowLen : (n+1)*rowLen]
			obj := row[4]
			best, bestScore := 0, row[5]
			for c := 1; c < numClasses; c++ {
				if row[5+c] > bestScore {
					bestScore = row[5+c]
					best = c
				}
			}
			score := obj * bestScore
			if float64(score) <= d.ConfThreshold {
				continue
			}
			if allow != nil && !allow[best] {
				continue
			}
			cands = append(cands, ops.Detection{
				Box:   ops.FromCenter(row[0], row[1], row[2], row[3]),
				Score: score,
				Class: best,
			})
		}
		kept := ops.NonMaxSuppression(cands, d.NMS)
		for k := range kept {
			kept[k].Box = frames[i].Letterbox.ToOriginal(kept[k].Box, frames[i].OrigW, frames[i].OrigH)
		}
		out[i] = kept
	}
	return out, nil
}
