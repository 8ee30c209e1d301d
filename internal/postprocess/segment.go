package postprocess

import (
	"fmt"

	"github.com/yunqiao/multival/internal/ops"
	"github.com/yunqiao/multival/internal/tensor"
)

// Segmenter turns raw per-pixel class logits into one discrete class-index
// map per image at the original resolution.
//
// Raw segmentation output is [batch, classes, height, width] logits at the
// working resolution.
type Segmenter struct{}

// Process resizes each class plane to the original height and width with
// bilinear interpolation (align-corners disabled), applies the logistic
// sigmoid and reduces across the class axis by arg-max.
func (s *Segmenter) Process(raw *tensor.Dense, frames []ops.ImageFrame) ([]ops.ClassMap, error) {
	shape := raw.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("%w: segmentation output must be 4-D, got %v", ErrShapeMismatch, shape)
	}
	if shape[0] != len(frames) {
		return nil, fmt.Errorf("%w: %d prediction maps for %d images", ErrShapeMismatch, shape[0], len(frames))
	}
	numClasses, h, w := shape[1], shape[2], shape[3]

	out := make([]ops.ClassMap, len(frames))
	for i, frame := range frames {
		data := raw.Row(i)
		plane := h * w
		planes := make([][]float32, numClasses)
		for c := 0; c < numClasses; c++ {
			resized := ops.ResizeBilinear(data[c*plane:(c+1)*plane], w, h, frame.OrigW, frame.OrigH)
			ops.Sigmoid(resized)
			planes[c] = resized
		}
		out[i] = ops.ArgmaxPlanes(planes, frame.OrigW, frame.OrigH)
	}
	return out, nil
}
