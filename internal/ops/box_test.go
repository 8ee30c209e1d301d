package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoU(t *testing.T) {
	a := Box{0, 0, 10, 10}

	assert.InDelta(t, 1.0, IoU(a, a), 1e-6)
	assert.InDelta(t, 0.0, IoU(a, Box{20, 20, 30, 30}), 1e-6)

	// Half overlap: inter 50, union 150.
	b := Box{5, 0, 15, 10}
	assert.InDelta(t, 50.0/150.0, IoU(a, b), 1e-6)
}

func TestFromCenterToXYWH(t *testing.T) {
	b := FromCenter(16, 16, 8, 4)
	assert.Equal(t, Box{12, 14, 20, 18}, b)

	xywh := b.ToXYWH()
	assert.Equal(t, [4]float32{12, 14, 8, 4}, xywh)
}

func TestLetterboxRoundTrip(t *testing.T) {
	// A 200x100 image fit into 640x640: scale 3.2, vertical padding.
	origW, origH := 200, 100
	p := FitParams(origW, origH, 640, 640)
	assert.InDelta(t, 3.2, float64(p.Scale), 1e-5)
	assert.InDelta(t, 0.0, float64(p.PadX), 1e-5)
	assert.InDelta(t, (640.0-320.0)/2, float64(p.PadY), 1e-5)

	// The four corners of the working resolution content area map back to
	// the original image bounds.
	content := Box{
		X1: p.PadX,
		Y1: p.PadY,
		X2: p.PadX + float32(origW)*p.Scale,
		Y2: p.PadY + float32(origH)*p.Scale,
	}
	back := p.ToOriginal(content, origW, origH)
	assert.InDelta(t, 0, float64(back.X1), 1e-3)
	assert.InDelta(t, 0, float64(back.Y1), 1e-3)
	assert.InDelta(t, float64(origW), float64(back.X2), 1e-3)
	assert.InDelta(t, float64(origH), float64(back.Y2), 1e-3)
}

func TestToOriginalClipsToBounds(t *testing.T) {
	p := LetterboxParams{Scale: 1, PadX: 0, PadY: 0}
	b := p.ToOriginal(Box{-5, -5, 100, 100}, 50, 50)
	assert.Equal(t, Box{0, 0, 50, 50}, b)
}
