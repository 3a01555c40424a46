package preprocess

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// 3x3 unsharp-style kernel for text edges.
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// 3x3 weighted-average blur for noise reduction, normalized by its sum.
var denoiseKernel = [9]float64{
	1, 2, 1,
	2, 4, 2,
	1, 2, 1,
}

const denoiseKernelSum = 16.0

// convolve3x3 applies kernel to the interior pixels only; the 1-pixel
// border and the alpha channel are copied from the source verbatim.
func convolve3x3(img *image.NRGBA, kernel [9]float64, divisor float64) (*image.NRGBA, error) {
	if divisor == 0 {
		return nil, fmt.Errorf("zero kernel divisor")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := imaging.Clone(img)
	if w < 3 || h < 3 {
		// Nothing interior to filter.
		return out, nil
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var r, g, bl float64
			k := 0
			for ky := -1; ky <= 1; ky++ {
				src := img.Pix[(y+ky)*img.Stride+(x-1)*4:]
				for kx := 0; kx < 3; kx++ {
					kv := kernel[k]
					k++
					i := kx * 4
					r += float64(src[i+0]) * kv
					g += float64(src[i+1]) * kv
					bl += float64(src[i+2]) * kv
				}
			}
			o := y*out.Stride + x*4
			out.Pix[o+0] = clampByte(r / divisor)
			out.Pix[o+1] = clampByte(g / divisor)
			out.Pix[o+2] = clampByte(bl / divisor)
			// alpha stays as cloned
		}
	}
	return out, nil
}
