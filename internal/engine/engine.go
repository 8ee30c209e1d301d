// Package engine drives the validation loop: batches in, per-task
// statistics out.
package engine

import (
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yunqiao/multival/internal/backend"
	"github.com/yunqiao/multival/internal/config"
	"github.com/yunqiao/multival/internal/dataset"
	"github.com/yunqiao/multival/internal/metrics"
	"github.com/yunqiao/multival/internal/task"
	"github.com/yunqiao/multival/internal/telemetry"
	"github.com/yunqiao/multival/internal/tensor"
)

var (
	// ErrNotImplemented reports a required per-task hook that the task
	// plugin did not supply. It signals a misconfigured plugin, not a data
	// error.
	ErrNotImplemented = errors.New("not implemented")

	// ErrStatsInvalid reports finalized statistics with missing or
	// non-finite required values.
	ErrStatsInvalid = errors.New("statistics invalid")
)

// Hooks are the externally supplied strategies the engine calls into.
// BuildDataloader is required in standalone mode; the rest are optional.
type Hooks struct {
	// BuildDataloader returns the batch iterable for a resolved dataset.
	BuildDataloader func(desc *dataset.Description, split string, batchSize int) (dataset.Loader, error)

	// Preprocess performs batch-level encoding and device transfer. The
	// engine treats it as opaque; nil means identity.
	Preprocess func(batches []*dataset.Batch) error

	// EvalJSON recomputes official dataset metrics from the written export
	// file and may replace the statistics.
	EvalJSON func(exportPath string, stats []metrics.Stats) ([]metrics.Stats, error)

	// PlotSamples and PlotPredictions visualize the first batches when
	// plotting is enabled. Rendering is external; the engine only invokes.
	PlotSamples     func(taskName string, batchIndex int, b *dataset.Batch)
	PlotPredictions func(taskName string, batchIndex int, b *dataset.Batch, pred task.Prediction)
}

// Trainer is the nested-mode context: a model snapshot plus the loss
// criterion of the surrounding training loop.
type Trainer struct {
	Model  backend.Model
	Data   *dataset.Description
	Loader dataset.Loader

	// Criterion returns the per-task loss vector to accumulate for one
	// batch.
	Criterion func(raw *tensor.Dense, b *dataset.Batch, taskName string, taskIndex int) ([]float64, error)

	// LossLabels names the entries of the criterion's loss vector for one
	// task, used when merging loss history into the returned statistics.
	LossLabels func(taskName string) []string

	// FinalEpoch enables plotting on the last epoch.
	FinalEpoch bool
}

// PlotRecord is a registered plot artifact.
type PlotRecord struct {
	Data      any
	Timestamp time.Time
}

// Engine orchestrates one validation run at a time. All mutable run state
// is owned by the engine for the duration of Run and never accessed
// concurrently.
type Engine struct {
	cfg       config.Settings
	hooks     Hooks
	callbacks map[string][]Callback
	tel       *telemetry.Collector

	// Per-run state, reset at the start of Run.
	runID      string
	saveDir    string
	dispatcher *task.Dispatcher
	export     []ExportRecord
	categories map[int]int
	plots      map[string]PlotRecord
	training   bool

	// BatchIndex is the batch currently being processed, exposed to
	// callbacks.
	BatchIndex int

	// Speed holds the finalized average milliseconds per image for the
	// preprocess, inference, loss and postprocess stages.
	Speed map[string]float64
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithTelemetry attaches a Prometheus collector.
func WithTelemetry(c *telemetry.Collector) Option {
	return func(e *Engine) { e.tel = c }
}

// New builds an engine. The configuration and hooks are owned by the
// caller and reused across runs.
func New(cfg config.Settings, hooks Hooks, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		hooks:     hooks,
		callbacks: make(map[string][]Callback),
		plots:     make(map[string]PlotRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's settings.
func (e *Engine) Config() config.Settings { return e.cfg }

// SaveDir is the per-run output directory.
func (e *Engine) SaveDir() string { return e.saveDir }

// OnPlot registers a named plot artifact for external consumers.
func (e *Engine) OnPlot(name string, data any) {
	e.plots[name] = PlotRecord{Data: data, Timestamp: time.Now()}
}

// Plots returns the registered plot artifacts.
func (e *Engine) Plots() map[string]PlotRecord { return e.plots }

func (e *Engine) resetRun() {
	e.runID = uuid.NewString()[:8]
	e.saveDir = e.cfg.SaveDir
	if e.saveDir == "" {
		e.saveDir = filepath.Join("runs", e.cfg.Task, "val-"+e.runID)
	}
	e.export = e.export[:0]
	e.plots = make(map[string]PlotRecord)
	e.BatchIndex = 0
	e.Speed = nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.cfg.Verbose {
		log.Printf(format, args...)
	}
}
