// Package tensor provides a minimal dense float32 tensor used to pass raw
// model inputs and outputs between the backend and postprocessing.
package tensor

import "fmt"

type Dense struct {
	shape []int
	data  []float32
}

// New allocates a zero-filled tensor with the given shape.
func New(shape ...int) *Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Dense{shape: append([]int(nil), shape...), data: make([]float32, n)}
}

// FromSlice wraps an existing flat slice. The slice is not copied.
func FromSlice(data []float32, shape ...int) (*Dense, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor: shape %v needs %d values, got %d", shape, n, len(data))
	}
	return &Dense{shape: append([]int(nil), shape...), data: data}, nil
}

func (t *Dense) Shape() []int    { return t.shape }
func (t *Dense) Data() []float32 { return t.data }

// Dim returns the size of axis i.
func (t *Dense) Dim(i int) int { return t.shape[i] }

// NumElements returns the total element count.
func (t *Dense) NumElements() int { return len(t.data) }

// Row returns the flat sub-slice for index i along the leading axis.
func (t *Dense) Row(i int) []float32 {
	stride := len(t.data) / t.shape[0]
	return t.data[i*stride : (i+1)*stride]
}
