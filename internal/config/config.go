// Package config holds the validation run settings.
package config

import (
	"os"
	"strconv"
)

// Settings configures one validation run. Callers own it; the engine never
// mutates it after construction except for the nested-mode half-precision
// policy.
type Settings struct {
	Task  string // "detect", "segment" or "multi"
	Data  string // dataset description file
	Split string

	BatchSize int
	ImageSize int

	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int
	AgnosticNMS   bool
	Classes       []int // class allow-list, nil = all

	SaveJSON bool
	Plots    bool
	Half     bool
	Verbose  bool

	SaveDir string // defaults to runs/<task>/val-<id>
}

// Default returns the stock validation settings.
func Default() Settings {
	return Settings{
		Task:          "detect",
		Split:         "val",
		BatchSize:     16,
		ImageSize:     640,
		ConfThreshold: 0.001,
		IoUThreshold:  0.7,
		MaxDetections: 300,
	}
}

// ApplyEnv overrides settings from MULTIVAL_* environment variables. Pair
// with godotenv in the entrypoint to pick up a .env file.
func (s *Settings) ApplyEnv() {
	if v := os.Getenv("MULTIVAL_TASK"); v != "" {
		s.Task = v
	}
	if v := os.Getenv("MULTIVAL_DATA"); v != "" {
		s.Data = v
	}
	if v := os.Getenv("MULTIVAL_SPLIT"); v != "" {
		s.Split = v
	}
	if v := os.Getenv("MULTIVAL_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.BatchSize = n
		}
	}
	if v := os.Getenv("MULTIVAL_IMGSZ"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.ImageSize = n
		}
	}
	if v := os.Getenv("MULTIVAL_CONF"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.ConfThreshold = f
		}
	}
	if v := os.Getenv("MULTIVAL_IOU"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.IoUThreshold = f
		}
	}
	if v := os.Getenv("MULTIVAL_SAVE_JSON"); v != "" {
		s.SaveJSON = v == "1" || v == "true"
	}
	if v := os.Getenv("MULTIVAL_PLOTS"); v != "" {
		s.Plots = v == "1" || v == "true"
	}
	if v := os.Getenv("MULTIVAL_SAVE_DIR"); v != "" {
		s.SaveDir = v
	}
}
