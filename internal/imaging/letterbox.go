// Package imaging converts decoded images into the network's working
// resolution: aspect-preserving resize plus centered padding (letterbox),
// normalized CHW float32 output.
package imaging

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"

	"github.com/yunqiao/multival/internal/ops"
	"github.com/yunqiao/multival/internal/tensor"
)

// padValue is the gray used for letterbox borders.
var padValue = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox fits img into a size x size square and returns the normalized
// CHW tensor plus the transform needed to map predictions back.
func Letterbox(img image.Image, size int) (*tensor.Dense, ops.LetterboxParams) {
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	params := ops.FitParams(origW, origH, size, size)

	newW := int(float32(origW)*params.Scale + 0.5)
	newH := int(float32(origH)*params.Scale + 0.5)
	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: padValue}, image.Point{}, xdraw.Src)
	offset := image.Pt(int(params.PadX), int(params.PadY))
	xdraw.Draw(canvas, image.Rectangle{Min: offset, Max: offset.Add(image.Pt(newW, newH))},
		resized, resized.Bounds().Min, xdraw.Src)

	return toCHW(canvas, size), params
}

// toCHW packs the image into [3,size,size] with values scaled to [0,1].
func toCHW(img image.Image, size int) *tensor.Dense {
	t := tensor.New(3, size, size)
	data := t.Data()
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			idx := y*size + x
			data[idx] = float32(r) / 65535.0
			data[plane+idx] = float32(g) / 65535.0
			data[2*plane+idx] = float32(b) / 65535.0
		}
	}
	return t
}

// Stack packs per-image CHW tensors into one [B,3,H,W] batch tensor.
func Stack(images []*tensor.Dense) *tensor.Dense {
	if len(images) == 0 {
		return tensor.New(0)
	}
	shape := images[0].Shape()
	out := tensor.New(append([]int{len(images)}, shape...)...)
	stride := images[0].NumElements()
	for i, im := range images {
		copy(out.Data()[i*stride:], im.Data())
	}
	return out
}
