package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/yunqiao/multival/internal/backend"
	"github.com/yunqiao/multival/internal/dataset"
	"github.com/yunqiao/multival/internal/metrics"
	"github.com/yunqiao/multival/internal/ops"
	"github.com/yunqiao/multival/internal/postprocess"
	"github.com/yunqiao/multival/internal/task"
)

// Result is the finalized outcome of one validation run: one statistics
// mapping per configured task, plus stage timing in average milliseconds
// per image.
type Result struct {
	Stats   []metrics.Stats
	Speed   map[string]float64
	SaveDir string
}

// Run validates either a bare model (standalone mode, trainer nil) or a
// trainer-provided model snapshot (nested mode). Batches are consumed
// strictly sequentially; a run either completes the full sequence or aborts
// entirely on the first unrecovered error.
func (e *Engine) Run(model backend.Model, trainer *Trainer) (*Result, error) {
	e.training = trainer != nil
	e.resetRun()

	var desc *dataset.Description
	var loader dataset.Loader
	var err error

	if e.training {
		model = trainer.Model
		if model == nil {
			return nil, errors.New("trainer provided no model snapshot")
		}
		// Force half precision during training validation when the device
		// supports it.
		e.cfg.Half = model.Device() != "cpu"
		model.SetHalf(e.cfg.Half)
		desc = trainer.Data
		if desc == nil {
			return nil, fmt.Errorf("%w: trainer provided no dataset description", dataset.ErrDatasetNotFound)
		}
		loader = trainer.Loader
		if loader == nil {
			if e.hooks.BuildDataloader == nil {
				return nil, fmt.Errorf("%w: dataloader construction not supplied by task plugin", ErrNotImplemented)
			}
			loader, err = e.hooks.BuildDataloader(desc, e.cfg.Split, e.cfg.BatchSize)
			if err != nil {
				return nil, err
			}
		}
		if trainer.FinalEpoch {
			e.cfg.Plots = true
		}
	} else {
		e.runCallbacks(OnValStart)
		if model == nil {
			return nil, errors.New("either a trainer or a model is needed for validation")
		}
		e.cfg.Half = e.cfg.Half && model.Device() != "cpu"
		desc, err = dataset.Resolve(e.cfg.Data)
		if err != nil {
			return nil, err
		}
		if e.hooks.BuildDataloader == nil {
			return nil, fmt.Errorf("%w: dataloader construction not supplied by task plugin", ErrNotImplemented)
		}
		loader, err = e.hooks.BuildDataloader(desc, e.cfg.Split, e.cfg.BatchSize)
		if err != nil {
			return nil, err
		}
		if err := model.Warmup(1, e.cfg.ImageSize); err != nil {
			return nil, fmt.Errorf("model warmup: %w", err)
		}
	}

	specs := task.SpecsFromDescription(desc)
	multi := len(specs) > 1
	detector := &postprocess.Detector{
		ConfThreshold: e.cfg.ConfThreshold,
		NMS: ops.NMSOptions{
			IoUThreshold:  float32(e.cfg.IoUThreshold),
			ClassAgnostic: e.cfg.AgnosticNMS,
			MaxDetections: e.cfg.MaxDetections,
		},
		Classes: e.cfg.Classes,
	}
	e.dispatcher = task.NewDispatcher(specs, detector)
	e.categories = desc.CategoryMap

	for _, s := range specs {
		e.logf("task %-20s kind=%-12s classes=%d", s.Name, s.Kind, s.NumClasses)
	}

	var tPre, tInf, tLoss, tPost time.Duration
	lossTotals := make([][]float64, len(specs))
	numBatches := 0

	for batchIndex := 0; ; batchIndex++ {
		batches, err := loader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		e.BatchIndex = batchIndex
		e.runCallbacks(OnValBatchStart)

		if len(batches) != len(specs) {
			return nil, fmt.Errorf("dataloader yielded %d task slices for %d configured tasks", len(batches), len(specs))
		}

		// Preprocess.
		start := time.Now()
		if e.hooks.Preprocess != nil {
			if err := e.hooks.Preprocess(batches); err != nil {
				return nil, fmt.Errorf("preprocess: %w", err)
			}
		}
		dPre := time.Since(start)
		tPre += dPre

		// Inference.
		start = time.Now()
		raws, err := model.Infer(batches[0].Images)
		if err != nil {
			return nil, fmt.Errorf("inference: %w", err)
		}
		model.Synchronize()
		dInf := time.Since(start)
		tInf += dInf
		if len(raws) != len(specs) {
			return nil, fmt.Errorf("model produced %d outputs for %d configured tasks", len(raws), len(specs))
		}

		// Loss, only when nested inside a training loop.
		start = time.Now()
		if e.training && trainer.Criterion != nil {
			for i := range specs {
				vec, err := trainer.Criterion(raws[i], batches[i], specs[i].Name, i)
				if err != nil {
					return nil, fmt.Errorf("criterion for task %q: %w", specs[i].Name, err)
				}
				if lossTotals[i] == nil {
					lossTotals[i] = make([]float64, len(vec))
				}
				for j, v := range vec {
					lossTotals[i][j] += v
				}
			}
		}
		dLoss := time.Since(start)
		tLoss += dLoss

		// Postprocess.
		start = time.Now()
		preds := make([]task.Prediction, len(specs))
		for i := range specs {
			pred, err := e.dispatcher.Postprocess(i, raws[i], batchFrames(batches[i]))
			if err != nil {
				return nil, err
			}
			preds[i] = pred
		}
		model.Synchronize()
		dPost := time.Since(start)
		tPost += dPost

		// Metric update and detection export.
		for i := range specs {
			if err := e.dispatcher.Update(i, preds[i], batches[i]); err != nil {
				return nil, err
			}
			if !e.training && e.cfg.SaveJSON && preds[i].Kind == task.KindDetection {
				e.recordDetections(preds[i].Detections, batches[i].Metas)
			}
		}

		if e.cfg.Plots && batchIndex < 3 {
			for i := range specs {
				if e.hooks.PlotSamples != nil {
					e.hooks.PlotSamples(specs[i].Name, batchIndex, batches[i])
				}
				if e.hooks.PlotPredictions != nil {
					e.hooks.PlotPredictions(specs[i].Name, batchIndex, batches[i], preds[i])
				}
			}
		}

		if e.tel != nil {
			e.tel.BatchesProcessed.Add(1)
			e.tel.ImagesProcessed.Add(uint64(batches[0].Len()))
			e.tel.ObserveStage("preprocess", dPre)
			e.tel.ObserveStage("inference", dInf)
			e.tel.ObserveStage("loss", dLoss)
			e.tel.ObserveStage("postprocess", dPost)
		}

		numBatches++
		e.runCallbacks(OnValBatchEnd)
	}

	stats := make([]metrics.Stats, len(specs))
	for i := range specs {
		stats[i] = e.dispatcher.Stats(i)
	}

	if !multi {
		required := metrics.DetectionKeys
		if specs[0].Kind == task.KindSegmentation {
			required = metrics.SegmentationKeys
		}
		if !stats[0].Valid(required) {
			return nil, fmt.Errorf("%w: task %q is missing finite values for %v", ErrStatsInvalid, specs[0].Name, required)
		}
	}

	// Normalize stage timing to average ms per image. One timing sample per
	// batch is shared across tasks, so multi-task mode divides by task
	// count as well.
	divisor := float64(loader.Images())
	if multi {
		divisor *= float64(len(specs))
	}
	if divisor == 0 {
		divisor = 1
	}
	e.Speed = map[string]float64{
		"preprocess":  tPre.Seconds() / divisor * 1e3,
		"inference":   tInf.Seconds() / divisor * 1e3,
		"loss":        tLoss.Seconds() / divisor * 1e3,
		"postprocess": tPost.Seconds() / divisor * 1e3,
	}

	for i, s := range specs {
		e.logf("results %-20s %v", s.Name, stats[i])
	}
	e.runCallbacks(OnValEnd)

	if e.training {
		model.SetHalf(false)
		out := make([]metrics.Stats, len(specs))
		for i := range specs {
			if !multi || e.dispatcher.HasDetectionStats(i) {
				merged := make(metrics.Stats, len(stats[i]))
				for k, v := range stats[i] {
					merged[k] = v
				}
				for k, v := range lossHistory(trainer, lossTotals[i], specs[i].Name, numBatches) {
					merged[k] = v
				}
				out[i] = merged.Rounded(5)
			} else {
				// The task exposes no detection-style keys; collapse it to
				// the fallback fitness scalar instead.
				out[i] = metrics.Stats{"fitness": e.dispatcher.Fitness(i)}
			}
		}
		return &Result{Stats: out, Speed: e.Speed, SaveDir: e.saveDir}, nil
	}

	log.Printf("Speed: %.1fms preprocess, %.1fms inference, %.1fms loss, %.1fms postprocess per image",
		e.Speed["preprocess"], e.Speed["inference"], e.Speed["loss"], e.Speed["postprocess"])

	if e.cfg.SaveJSON && len(e.export) > 0 {
		path, err := e.writeExport()
		if err != nil {
			return nil, err
		}
		log.Printf("Saving %s...", path)
		if e.hooks.EvalJSON != nil {
			updated, err := e.hooks.EvalJSON(path, stats)
			if err != nil {
				return nil, fmt.Errorf("eval_json: %w", err)
			}
			stats = updated
		}
	}

	if e.tel != nil {
		e.tel.RunsCompleted.Add(1)
	}
	return &Result{Stats: stats, Speed: e.Speed, SaveDir: e.saveDir}, nil
}

// lossHistory averages the accumulated loss vector over the batch count and
// names its entries.
func lossHistory(trainer *Trainer, totals []float64, taskName string, numBatches int) metrics.Stats {
	out := metrics.Stats{}
	if len(totals) == 0 || numBatches == 0 {
		return out
	}
	var labels []string
	if trainer.LossLabels != nil {
		labels = trainer.LossLabels(taskName)
	}
	for j, v := range totals {
		label := fmt.Sprintf("val/loss_%d", j)
		if j < len(labels) {
			label = labels[j]
		}
		out[label] = v / float64(numBatches)
	}
	return out
}

func batchFrames(b *dataset.Batch) []ops.ImageFrame {
	frames := make([]ops.ImageFrame, b.Len())
	for i, m := range b.Metas {
		frames[i] = m.Frame
	}
	return frames
}
