package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/yunqiao/multival/internal/backend"
	"github.com/yunqiao/multival/internal/config"
	"github.com/yunqiao/multival/internal/dataset"
	"github.com/yunqiao/multival/internal/engine"
	"github.com/yunqiao/multival/internal/telemetry"
)

func main() {
	// .env is optional; environment variables win over it.
	_ = godotenv.Load()

	cfg := config.Default()
	cfg.ApplyEnv()

	modelPath := flag.String("model", "models/model.onnx", "ONNX model file")
	metaPath := flag.String("metadata", "models/model_metadata.json", "model metadata sidecar")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address during validation")
	flag.StringVar(&cfg.Data, "data", cfg.Data, "dataset description file")
	flag.StringVar(&cfg.Task, "task", cfg.Task, "task mode: detect, segment or multi")
	flag.StringVar(&cfg.Split, "split", cfg.Split, "dataset split to validate")
	flag.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "batch size")
	flag.IntVar(&cfg.ImageSize, "imgsz", cfg.ImageSize, "working resolution")
	flag.Float64Var(&cfg.ConfThreshold, "conf", cfg.ConfThreshold, "confidence threshold")
	flag.Float64Var(&cfg.IoUThreshold, "iou", cfg.IoUThreshold, "NMS IoU threshold")
	flag.BoolVar(&cfg.SaveJSON, "save-json", cfg.SaveJSON, "export detections to predictions.json")
	flag.BoolVar(&cfg.Plots, "plots", cfg.Plots, "invoke plot hooks for the first batches")
	flag.BoolVar(&cfg.Verbose, "verbose", true, "log per-task results")
	flag.Parse()

	if cfg.Data == "" {
		log.Fatalf("No dataset given: pass -data or set MULTIVAL_DATA")
	}

	log.Printf("Loading model from: %s", *modelPath)
	model, err := backend.NewONNX(*modelPath, *metaPath)
	if err != nil {
		log.Fatalf("Failed to initialize model backend: %v", err)
	}
	defer model.Close()

	if model.Meta.ImageSize > 0 {
		cfg.ImageSize = model.Meta.ImageSize
	}

	hooks := engine.Hooks{
		BuildDataloader: func(desc *dataset.Description, split string, batchSize int) (dataset.Loader, error) {
			return dataset.NewFolderLoader(desc, split, cfg.ImageSize, batchSize)
		},
	}

	var opts []engine.Option
	if *metricsAddr != "" {
		tel := telemetry.New()
		go func() {
			if err := tel.StartServer(*metricsAddr); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		opts = append(opts, engine.WithTelemetry(tel))
		log.Printf("Serving metrics on %s/metrics", *metricsAddr)
	}

	eng := engine.New(cfg, hooks, opts...)
	result, err := eng.Run(model, nil)
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	for i, stats := range result.Stats {
		log.Printf("task %d results: %v", i, stats)
	}
	if cfg.SaveJSON || cfg.Plots {
		log.Printf("Results saved to %s", result.SaveDir)
	}
}
