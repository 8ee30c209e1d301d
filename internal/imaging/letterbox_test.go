package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yunqiao/multival/internal/tensor"
)

func solid(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLetterboxWideImage(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	out, params := Letterbox(solid(200, 100, white), 64)

	assert.Equal(t, []int{3, 64, 64}, out.Shape())
	assert.InDelta(t, 0.32, float64(params.Scale), 1e-6)
	assert.InDelta(t, 0, float64(params.PadX), 1e-6)
	assert.InDelta(t, 16, float64(params.PadY), 1e-6)

	data := out.Data()
	at := func(c, x, y int) float32 { return data[c*64*64+y*64+x] }

	// Rows above and below the content are border gray.
	gray := float64(114) / 255
	assert.InDelta(t, gray, float64(at(0, 32, 2)), 0.01)
	assert.InDelta(t, gray, float64(at(1, 32, 61)), 0.01)
	// The content area is white on every channel.
	for c := 0; c < 3; c++ {
		assert.InDelta(t, 1.0, float64(at(c, 32, 32)), 0.01)
	}
}

func TestLetterboxSquareImageNoPadding(t *testing.T) {
	_, params := Letterbox(solid(32, 32, color.RGBA{0, 0, 0, 255}), 64)
	assert.InDelta(t, 2.0, float64(params.Scale), 1e-6)
	assert.InDelta(t, 0, float64(params.PadX), 1e-6)
	assert.InDelta(t, 0, float64(params.PadY), 1e-6)
}

func TestLetterboxNormalizedRange(t *testing.T) {
	out, _ := Letterbox(solid(10, 30, color.RGBA{200, 50, 10, 255}), 32)
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestStack(t *testing.T) {
	a := tensor.New(3, 2, 2)
	b := tensor.New(3, 2, 2)
	for i := range a.Data() {
		a.Data()[i] = 1
		b.Data()[i] = 2
	}

	batch := Stack([]*tensor.Dense{a, b})
	require.Equal(t, []int{2, 3, 2, 2}, batch.Shape())
	assert.Equal(t, float32(1), batch.Row(0)[0])
	assert.Equal(t, float32(2), batch.Row(1)[11])
}

func TestStackEmpty(t *testing.T) {
	batch := Stack(nil)
	assert.Equal(t, 0, batch.NumElements())
}
