package dataset

import (
	"io"

	"github.com/yunqiao/multival/internal/ops"
	"github.com/yunqiao/multival/internal/tensor"
)

// ImageMeta carries per-image metadata through the run: source path and the
// original-resolution frame with its letterbox transform.
type ImageMeta struct {
	Path  string
	Frame ops.ImageFrame
}

// Batch is one unit of dataloading output for one task. Ground-truth boxes
// and class maps are in the original image frame.
type Batch struct {
	Images  *tensor.Dense // [B,3,H,W]
	Metas   []ImageMeta
	Boxes   [][]ops.Box
	Classes [][]int
	Masks   []ops.ClassMap
}

// Len is the number of images in the batch.
func (b *Batch) Len() int { return len(b.Metas) }

// Loader yields batches strictly sequentially. In multi-task mode each call
// returns one aligned Batch per configured task, produced in lockstep over
// the same underlying images.
type Loader interface {
	// Next returns the next aligned batch slice. It returns io.EOF when the
	// sequence is exhausted; any other error aborts the run.
	Next() ([]*Batch, error)
	// Batches is the total number of batches in the sequence.
	Batches() int
	// Images is the total number of images in the dataset split.
	Images() int
}

// SliceLoader serves pre-built batches from memory.
type SliceLoader struct {
	batches [][]*Batch
	images  int
	pos     int
}

func NewSliceLoader(batches [][]*Batch) *SliceLoader {
	images := 0
	for _, aligned := range batches {
		if len(aligned) > 0 {
			images += aligned[0].Len()
		}
	}
	return &SliceLoader{batches: batches, images: images}
}

func (l *SliceLoader) Next() ([]*Batch, error) {
	if l.pos >= len(l.batches) {
		return nil, io.EOF
	}
	b := l.batches[l.pos]
	l.pos++
	return b, nil
}

func (l *SliceLoader) Batches() int { return len(l.batches) }
func (l *SliceLoader) Images() int  { return l.images }
