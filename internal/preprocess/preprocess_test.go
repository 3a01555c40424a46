package preprocess

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomImage(t *testing.T, w, h int) *image.NRGBA {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: uint8(rng.Intn(256)),
			})
		}
	}
	return img
}

func TestApplyAllFiltersDisabledIsIdentity(t *testing.T) {
	src := randomImage(t, 20, 14)
	out, improvements, err := Apply(src, Options{})
	require.NoError(t, err)
	assert.Empty(t, improvements)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestNormalizeSizeScenarios(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		maxW, maxH int
		wantW      int
		wantH      int
	}{
		{"landscape scan bound by height", 3000, 2000, 1920, 1080, 1080, 720},
		{"portrait scan", 2000, 3000, 1920, 1080, 720, 1080},
		{"within bounds untouched", 800, 600, 1920, 1080, 800, 600},
		{"exactly at bounds untouched", 1920, 1080, 1920, 1080, 1920, 1080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := randomImage(t, tt.w, tt.h)
			out, err := normalizeSize(src, tt.maxW, tt.maxH)
			require.NoError(t, err)
			b := out.Bounds()
			assert.Equal(t, tt.wantW, b.Dx())
			assert.Equal(t, tt.wantH, b.Dy())
			assert.LessOrEqual(t, b.Dx(), tt.maxW)
			assert.LessOrEqual(t, b.Dy(), tt.maxH)

			// Aspect ratio preserved within rounding error.
			srcRatio := float64(tt.w) / float64(tt.h)
			outRatio := float64(b.Dx()) / float64(b.Dy())
			assert.InDelta(t, srcRatio, outRatio, 0.01)
		})
	}
}

func TestStretchContrastFactorOneIsNoop(t *testing.T) {
	src := randomImage(t, 16, 16)
	out, err := stretchContrast(src, 1.0)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestStretchContrastPushesApart(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 60, G: 60, B: 60, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	out, err := stretchContrast(src, 1.5)
	require.NoError(t, err)

	dark := out.NRGBAAt(0, 0)
	light := out.NRGBAAt(1, 0)
	assert.Less(t, dark.R, uint8(60), "values below midpoint get darker")
	assert.Greater(t, light.R, uint8(200), "values above midpoint get lighter")
	assert.Equal(t, uint8(255), dark.A)
}

func TestConvolutionPreservesBorderAndAlpha(t *testing.T) {
	src := randomImage(t, 10, 8)
	for _, kernel := range []struct {
		name    string
		k       [9]float64
		divisor float64
	}{
		{"sharpen", sharpenKernel, 1},
		{"denoise", denoiseKernel, denoiseKernelSum},
	} {
		t.Run(kernel.name, func(t *testing.T) {
			out, err := convolve3x3(src, kernel.k, kernel.divisor)
			require.NoError(t, err)

			b := src.Bounds()
			for y := 0; y < b.Dy(); y++ {
				for x := 0; x < b.Dx(); x++ {
					onBorder := x == 0 || y == 0 || x == b.Dx()-1 || y == b.Dy()-1
					if onBorder {
						assert.Equal(t, src.NRGBAAt(x, y), out.NRGBAAt(x, y),
							"border pixel (%d,%d) must be untouched", x, y)
					} else {
						assert.Equal(t, src.NRGBAAt(x, y).A, out.NRGBAAt(x, y).A,
							"alpha at (%d,%d) must be preserved", x, y)
					}
				}
			}
		})
	}
}

func TestConvolutionTinyImageUntouched(t *testing.T) {
	src := randomImage(t, 2, 2)
	out, err := convolve3x3(src, sharpenKernel, 1)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestDenoiseFlattensUniformRegions(t *testing.T) {
	// A uniform image must stay uniform under the weighted-average blur.
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	out, err := convolve3x3(src, denoiseKernel, denoiseKernelSum)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestApplyRecordsImprovementsInOrder(t *testing.T) {
	src := randomImage(t, 3000, 2000)
	out, improvements, err := Apply(src, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, improvements, 4)
	assert.Equal(t, "resized to 1080x720", improvements[0])
	assert.Equal(t, "enhanced contrast", improvements[1])
	assert.Equal(t, "applied sharpening", improvements[2])
	assert.Equal(t, "reduced noise", improvements[3])
	assert.Equal(t, 1080, out.Bounds().Dx())
}

func TestApplyQuickSkipsDenoise(t *testing.T) {
	src := randomImage(t, 30, 20)
	_, improvements := ApplyQuick(src, DefaultOptions())
	assert.NotContains(t, improvements, "reduced noise")
	assert.Contains(t, improvements, "enhanced contrast")
}

func TestApplyQuickFallsBackOnBadOptions(t *testing.T) {
	src := randomImage(t, 10, 10)
	opts := DefaultOptions()
	opts.ContrastFactor = -3 // invalid, forces the contrast filter to fail
	out, improvements := ApplyQuick(src, opts)
	assert.Empty(t, improvements)
	assert.Equal(t, src.Pix, out.Pix, "quick path returns the original input on failure")
}

func TestEncodeJPEGProducesData(t *testing.T) {
	src := randomImage(t, 12, 12)
	data, err := EncodeJPEG(src, 90)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
