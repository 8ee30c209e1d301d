package ops

import "math"

// ResizeBilinear resamples a single float32 plane from srcW x srcH to
// dstW x dstH with bilinear interpolation, half-pixel centers
// (align-corners disabled).
//
// x/image/draw and nfnt/resize interpolate image.Image pixel formats; raw
// class-probability planes are float32, so the kernel lives here.
func ResizeBilinear(src []float32, srcW, srcH, dstW, dstH int) []float32 {
	dst := make([]float32, dstW*dstH)
	if srcW == dstW && srcH == dstH {
		copy(dst, src)
		return dst
	}
	sx := float32(srcW) / float32(dstW)
	sy := float32(srcH) / float32(dstH)
	for dy := 0; dy < dstH; dy++ {
		fy := (float32(dy)+0.5)*sy - 0.5
		y0 := int(math.Floor(float64(fy)))
		wy := fy - float32(y0)
		y1 := y0 + 1
		if y0 < 0 {
			y0, y1, wy = 0, 0, 0
		} else if y1 >= srcH {
			y0, y1, wy = srcH-1, srcH-1, 0
		}
		for dx := 0; dx < dstW; dx++ {
			fx := (float32(dx)+0.5)*sx - 0.5
			x0 := int(math.Floor(float64(fx)))
			wx := fx - float32(x0)
			x1 := x0 + 1
			if x0 < 0 {
				x0, x1, wx = 0, 0, 0
			} else if x1 >= srcW {
				x0, x1, wx = srcW-1, srcW-1, 0
			}
			v00 := src[y0*srcW+x0]
			v01 := src[y0*srcW+x1]
			v10 := src[y1*srcW+x0]
			v11 := src[y1*srcW+x1]
			top := v00 + (v01-v00)*wx
			bot := v10 + (v11-v10)*wx
			dst[dy*dstW+dx] = top + (bot-top)*wy
		}
	}
	return dst
}

// Sigmoid applies the logistic function in place.
func Sigmoid(v []float32) {
	for i, x := range v {
		v[i] = float32(1 / (1 + math.Exp(-float64(x))))
	}
}

// ArgmaxPlanes reduces C stacked planes (each w*h values) to a class-index
// map by taking the index of the largest value per pixel.
func ArgmaxPlanes(planes [][]float32, w, h int) ClassMap {
	m := NewClassMap(w, h)
	for p := 0; p < w*h; p++ {
		best := 0
		bestVal := planes[0][p]
		for c := 1; c < len(planes); c++ {
			if planes[c][p] > bestVal {
				bestVal = planes[c][p]
				best = c
			}
		}
		m.Classes[p] = int32(best)
	}
	return m
}
