// Package ops holds the numeric primitives shared by postprocessing and
// metric accumulation: bounding boxes, IoU, non-maximum suppression,
// letterbox coordinate remapping and class-map resizing.
package ops

// Box is an axis-aligned bounding box in xyxy form.
type Box struct {
	X1, Y1, X2, Y2 float32
}

func (b Box) Width() float32  { return b.X2 - b.X1 }
func (b Box) Height() float32 { return b.Y2 - b.Y1 }

func (b Box) Area() float32 {
	w, h := b.Width(), b.Height()
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union of two boxes.
func IoU(a, b Box) float32 {
	ix1 := maxf(a.X1, b.X1)
	iy1 := maxf(a.Y1, b.Y1)
	ix2 := minf(a.X2, b.X2)
	iy2 := minf(a.Y2, b.Y2)
	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// FromCenter builds a Box from center x/y plus width/height, the layout raw
// detection rows use.
func FromCenter(cx, cy, w, h float32) Box {
	return Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

// ToXYWH converts to top-left x/y plus width/height, the layout the JSON
// export interchange format uses.
func (b Box) ToXYWH() [4]float32 {
	return [4]float32{b.X1, b.Y1, b.Width(), b.Height()}
}

// Detection is one retained detection: box in some coordinate frame, its
// confidence score and predicted class index.
type Detection struct {
	Box   Box
	Score float32
	Class int
}

// LetterboxParams records the scale and padding applied when fitting an
// image into the network's working resolution. They are needed to map
// predicted boxes back to the original frame.
type LetterboxParams struct {
	Scale      float32
	PadX, PadY float32
}

// ImageFrame describes one source image: its original resolution and the
// letterbox transform used during preprocessing.
type ImageFrame struct {
	OrigW, OrigH int
	Letterbox    LetterboxParams
}

// FitParams computes the letterbox parameters for fitting origW x origH
// into workW x workH, preserving aspect ratio with centered padding.
func FitParams(origW, origH, workW, workH int) LetterboxParams {
	scale := minf(float32(workW)/float32(origW), float32(workH)/float32(origH))
	padX := (float32(workW) - float32(origW)*scale) / 2
	padY := (float32(workH) - float32(origH)*scale) / 2
	return LetterboxParams{Scale: scale, PadX: padX, PadY: padY}
}

// ToOriginal maps a box from the working resolution back into the original
// image frame and clips it to the image bounds.
func (p LetterboxParams) ToOriginal(b Box, origW, origH int) Box {
	out := Box{
		X1: (b.X1 - p.PadX) / p.Scale,
		Y1: (b.Y1 - p.PadY) / p.Scale,
		X2: (b.X2 - p.PadX) / p.Scale,
		Y2: (b.Y2 - p.PadY) / p.Scale,
	}
	out.X1 = clampf(out.X1, 0, float32(origW))
	out.Y1 = clampf(out.Y1, 0, float32(origH))
	out.X2 = clampf(out.X2, 0, float32(origW))
	out.Y2 = clampf(out.Y2, 0, float32(origH))
	return out
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
