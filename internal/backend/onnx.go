package backend

import (
	"encoding/json"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/yunqiao/multival/internal/tensor"
)

// Metadata is the JSON sidecar describing an exported model: tensor shapes,
// output ordering and task names.
type Metadata struct {
	InputShape   []int64   `json:"input_shape"`
	OutputShapes [][]int64 `json:"output_shapes"`
	InputName    string    `json:"input_name"`
	OutputNames  []string  `json:"output_names"`
	Tasks        []string  `json:"tasks"`
	ImageSize    int       `json:"image_size"`
}

// ONNX runs inference through onnxruntime with pre-allocated input and
// output tensors, one output per task.
type ONNX struct {
	session *ort.AdvancedSession
	Meta    Metadata
	input   *ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
}

// NewONNX loads the model and its metadata sidecar and creates the session.
func NewONNX(modelPath, metadataPath string) (*ONNX, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaFile, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if len(meta.OutputShapes) == 0 || len(meta.OutputShapes) != len(meta.OutputNames) {
		return nil, fmt.Errorf("metadata declares %d output shapes for %d output names",
			len(meta.OutputShapes), len(meta.OutputNames))
	}
	if meta.InputName == "" {
		meta.InputName = "input"
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputs := make([]*ort.Tensor[float32], len(meta.OutputShapes))
	arbitrary := make([]ort.ArbitraryTensor, len(meta.OutputShapes))
	for i, shape := range meta.OutputShapes {
		out, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			inputTensor.Destroy()
			for j := 0; j < i; j++ {
				outputs[j].Destroy()
			}
			return nil, fmt.Errorf("failed to create output tensor %d: %w", i, err)
		}
		outputs[i] = out
		arbitrary[i] = out
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, meta.OutputNames,
		[]ort.ArbitraryTensor{inputTensor}, arbitrary,
		nil)
	if err != nil {
		inputTensor.Destroy()
		for _, out := range outputs {
			out.Destroy()
		}
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNX{session: session, Meta: meta, input: inputTensor, outputs: outputs}, nil
}

// Infer copies the batch into the session input, runs the model and returns
// one tensor per task output.
func (b *ONNX) Infer(images *tensor.Dense) ([]*tensor.Dense, error) {
	in := b.input.GetData()
	if len(images.Data()) != len(in) {
		return nil, fmt.Errorf("input has %d values, session expects %d", len(images.Data()), len(in))
	}
	copy(in, images.Data())

	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	results := make([]*tensor.Dense, len(b.outputs))
	for i, out := range b.outputs {
		shape := make([]int, len(b.Meta.OutputShapes[i]))
		for j, d := range b.Meta.OutputShapes[i] {
			shape[j] = int(d)
		}
		data := make([]float32, len(out.GetData()))
		copy(data, out.GetData())
		t, err := tensor.FromSlice(data, shape...)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		results[i] = t
	}
	return results, nil
}

// Warmup runs one inference on zeros.
func (b *ONNX) Warmup(batch, size int) error {
	zeros := tensor.New(batch, 3, size, size)
	if len(zeros.Data()) != len(b.input.GetData()) {
		// The session is shaped by metadata; warm up with its own size.
		_, err := b.Infer(warmupTensor(b.Meta.InputShape))
		return err
	}
	_, err := b.Infer(zeros)
	return err
}

func warmupTensor(shape []int64) *tensor.Dense {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return tensor.New(dims...)
}

// Device reports "cpu"; onnxruntime_go sessions here run on the CPU
// provider.
func (b *ONNX) Device() string { return "cpu" }

// Synchronize is a no-op: Run returns only after the computation finishes.
func (b *ONNX) Synchronize() {}

// SetHalf is a no-op: precision is baked into the exported model.
func (b *ONNX) SetHalf(bool) {}

// Close destroys the session and its tensors.
func (b *ONNX) Close() {
	if b.input != nil {
		b.input.Destroy()
	}
	for _, out := range b.outputs {
		if out != nil {
			out.Destroy()
		}
	}
	if b.session != nil {
		b.session.Destroy()
	}
	ort.DestroyEnvironment()
}
