package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yunqiao/multival/internal/dataset"
	"github.com/yunqiao/multival/internal/ops"
)

// ExportRecord is one retained detection in the interchange format: image
// identifier, external category id, top-left/width/height box and rounded
// confidence.
type ExportRecord struct {
	ImageID    any        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Score      float64    `json:"score"`
}

// imageID derives the export identifier from the image path: numeric stems
// become ints, everything else stays a string.
func imageID(path string) any {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if n, err := strconv.Atoi(stem); err == nil {
		return n
	}
	return stem
}

// recordDetections appends one export record per retained detection. The
// class-index to category-id table comes from the dataset description; an
// unmapped class falls back to its own index.
func (e *Engine) recordDetections(dets [][]ops.Detection, metas []dataset.ImageMeta) {
	for i, perImage := range dets {
		if i >= len(metas) {
			break
		}
		id := imageID(metas[i].Path)
		for _, d := range perImage {
			category := d.Class
			if e.categories != nil {
				if mapped, ok := e.categories[d.Class]; ok {
					category = mapped
				}
			}
			xywh := d.Box.ToXYWH()
			e.export = append(e.export, ExportRecord{
				ImageID:    id,
				CategoryID: category,
				BBox: [4]float64{
					roundTo(float64(xywh[0]), 3),
					roundTo(float64(xywh[1]), 3),
					roundTo(float64(xywh[2]), 3),
					roundTo(float64(xywh[3]), 3),
				},
				Score: roundTo(float64(d.Score), 5),
			})
		}
	}
}

// writeExport writes the accumulated records to predictions.json under the
// run's save directory. Only called when export is enabled and at least one
// detection exists across the whole run.
func (e *Engine) writeExport() (string, error) {
	if err := os.MkdirAll(e.saveDir, 0o755); err != nil {
		return "", fmt.Errorf("creating save dir: %w", err)
	}
	path := filepath.Join(e.saveDir, "predictions.json")
	raw, err := json.Marshal(e.export)
	if err != nil {
		return "", fmt.Errorf("encoding predictions: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
