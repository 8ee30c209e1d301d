// Package backend abstracts model inference for the validation engine.
package backend

import "github.com/yunqiao/multival/internal/tensor"

// Model is the inference hook: given a batch image tensor it returns one
// raw prediction tensor per configured task, aligned to task order.
// Single-task models return a one-element slice.
type Model interface {
	// Infer runs the model on a [B,3,H,W] batch.
	Infer(images *tensor.Dense) ([]*tensor.Dense, error)
	// Warmup runs one dummy inference at the working resolution.
	Warmup(batch, size int) error
	// Device names the compute device ("cpu", "cuda:0", ...).
	Device() string
	// Synchronize blocks until device-side work submitted so far has
	// completed, so stage timing reflects actual completion.
	Synchronize()
	// SetHalf toggles half-precision inference where the backend supports
	// it.
	SetHalf(enabled bool)
}
