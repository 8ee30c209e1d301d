package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yunqiao/multival/internal/imaging"
	"github.com/yunqiao/multival/internal/ops"
	"github.com/yunqiao/multival/internal/tensor"
)

// FolderLoader reads a directory of images and, per task, YOLO-style
// detection label files (`<stem>.txt`: class cx cy w h, normalized) or
// grayscale PNG class maps (`<stem>.png`, pixel value = class index).
//
// Images are decoded and letterboxed once per aligned batch slice; every
// task's Batch shares the same image tensor.
type FolderLoader struct {
	desc      *Description
	imageSize int
	batchSize int
	paths     []string
	pos       int
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true}

// NewFolderLoader scans the split's image directory.
func NewFolderLoader(desc *Description, split string, imageSize, batchSize int) (*FolderLoader, error) {
	dir := desc.Split(split)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDatasetNotFound, dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images under %s", ErrDatasetNotFound, dir)
	}
	sort.Strings(paths)
	if batchSize <= 0 {
		batchSize = 1
	}
	return &FolderLoader{desc: desc, imageSize: imageSize, batchSize: batchSize, paths: paths}, nil
}

func (l *FolderLoader) Images() int { return len(l.paths) }

func (l *FolderLoader) Batches() int {
	return (len(l.paths) + l.batchSize - 1) / l.batchSize
}

func (l *FolderLoader) Next() ([]*Batch, error) {
	if l.pos >= len(l.paths) {
		return nil, io.EOF
	}
	end := l.pos + l.batchSize
	if end > len(l.paths) {
		end = len(l.paths)
	}
	paths := l.paths[l.pos:end]
	l.pos = end

	metas := make([]ImageMeta, len(paths))
	tensors := make([]*tensor.Dense, len(paths))
	for i, p := range paths {
		img, err := decodeImage(p)
		if err != nil {
			// A corrupt image aborts the run; there is no partial recovery.
			return nil, fmt.Errorf("dataset: decoding %s: %w", p, err)
		}
		chw, params := imaging.Letterbox(img, l.imageSize)
		tensors[i] = chw
		metas[i] = ImageMeta{
			Path: p,
			Frame: ops.ImageFrame{
				OrigW:     img.Bounds().Dx(),
				OrigH:     img.Bounds().Dy(),
				Letterbox: params,
			},
		}
	}
	images := imaging.Stack(tensors)

	aligned := make([]*Batch, len(l.desc.Tasks))
	for t, task := range l.desc.Tasks {
		b := &Batch{Images: images, Metas: metas}
		if task.Labels != "" {
			b.Boxes = make([][]ops.Box, len(paths))
			b.Classes = make([][]int, len(paths))
			for i, p := range paths {
				boxes, classes := l.readLabels(task, p, metas[i].Frame)
				b.Boxes[i] = boxes
				b.Classes[i] = classes
			}
		}
		if task.Masks != "" {
			b.Masks = make([]ops.ClassMap, len(paths))
			for i, p := range paths {
				b.Masks[i] = l.readMask(task, p, metas[i].Frame)
			}
		}
		aligned[t] = b
	}
	return aligned, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readLabels parses one YOLO label file into original-frame boxes. A
// missing file means zero ground-truth objects.
func (l *FolderLoader) readLabels(task TaskInfo, imgPath string, frame ops.ImageFrame) ([]ops.Box, []int) {
	labelPath := filepath.Join(l.desc.Path, task.Labels, stem(imgPath)+".txt")
	raw, err := os.ReadFile(labelPath)
	if err != nil {
		return nil, nil
	}
	var boxes []ops.Box
	var classes []int
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		cls, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		vals := make([]float64, 4)
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		cx := float32(vals[0]) * float32(frame.OrigW)
		cy := float32(vals[1]) * float32(frame.OrigH)
		w := float32(vals[2]) * float32(frame.OrigW)
		h := float32(vals[3]) * float32(frame.OrigH)
		boxes = append(boxes, ops.FromCenter(cx, cy, w, h))
		classes = append(classes, cls)
	}
	return boxes, classes
}

// readMask loads a grayscale class map; a missing file yields an
// all-background map at the original resolution.
func (l *FolderLoader) readMask(task TaskInfo, imgPath string, frame ops.ImageFrame) ops.ClassMap {
	maskPath := filepath.Join(l.desc.Path, task.Masks, stem(imgPath)+".png")
	img, err := decodeImage(maskPath)
	if err != nil {
		return ops.NewClassMap(frame.OrigW, frame.OrigH)
	}
	b := img.Bounds()
	m := ops.NewClassMap(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m.Set(x, y, int32(r>>8))
		}
	}
	return m
}
