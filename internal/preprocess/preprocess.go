// Package preprocess normalizes scanned document images before they are
// sent for text extraction. All filters operate on in-memory pixel buffers;
// the package performs no I/O beyond decoding and re-encoding.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Options is the preprocessing configuration, passed by value.
type Options struct {
	NormalizeSize   bool
	EnhanceContrast bool
	SharpenText     bool
	ReduceNoise     bool
	MaxWidth        int
	MaxHeight       int
	ContrastFactor  float64 // 1.0 is a no-op
	OutputQuality   int     // JPEG quality 1..100
}

// DefaultOptions returns the preprocessing defaults used for invoice scans.
func DefaultOptions() Options {
	return Options{
		NormalizeSize:   true,
		EnhanceContrast: true,
		SharpenText:     true,
		ReduceNoise:     true,
		MaxWidth:        1920,
		MaxHeight:       1080,
		ContrastFactor:  1.2,
		OutputQuality:   90,
	}
}

// Decode reads an image from r, honoring EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodeJPEG re-encodes the processed image at the configured quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Apply runs the enabled filters in fixed order: size normalization,
// contrast enhancement, text sharpening, noise reduction. It returns the
// processed buffer and the ordered list of improvements applied.
func Apply(src image.Image, opts Options) (*image.NRGBA, []string, error) {
	if src == nil {
		return nil, nil, fmt.Errorf("nil source image")
	}
	img := imaging.Clone(src)
	improvements := make([]string, 0, 4)

	if opts.NormalizeSize {
		resized, err := runFilter(func() (*image.NRGBA, error) {
			return normalizeSize(img, opts.MaxWidth, opts.MaxHeight)
		})
		if err != nil {
			return nil, improvements, fmt.Errorf("normalize size: %w", err)
		}
		if resized != img {
			img = resized
			b := img.Bounds()
			improvements = append(improvements, fmt.Sprintf("resized to %dx%d", b.Dx(), b.Dy()))
		}
	}

	if opts.EnhanceContrast {
		out, err := runFilter(func() (*image.NRGBA, error) {
			return stretchContrast(img, opts.ContrastFactor)
		})
		if err != nil {
			return nil, improvements, fmt.Errorf("enhance contrast: %w", err)
		}
		img = out
		improvements = append(improvements, "enhanced contrast")
	}

	if opts.SharpenText {
		out, err := runFilter(func() (*image.NRGBA, error) {
			return convolve3x3(img, sharpenKernel, 1)
		})
		if err != nil {
			return nil, improvements, fmt.Errorf("sharpen: %w", err)
		}
		img = out
		improvements = append(improvements, "applied sharpening")
	}

	if opts.ReduceNoise {
		out, err := runFilter(func() (*image.NRGBA, error) {
			return convolve3x3(img, denoiseKernel, denoiseKernelSum)
		})
		if err != nil {
			return nil, improvements, fmt.Errorf("reduce noise: %w", err)
		}
		img = out
		improvements = append(improvements, "reduced noise")
	}

	return img, improvements, nil
}

// ApplyQuick is the latency-sensitive path: noise reduction is skipped and
// any filter failure falls back to the original, unmodified input.
func ApplyQuick(src image.Image, opts Options) (*image.NRGBA, []string) {
	opts.ReduceNoise = false
	out, improvements, err := Apply(src, opts)
	if err != nil {
		return imaging.Clone(src), nil
	}
	return out, improvements
}

// runFilter converts a panicking filter into an error so one bad frame
// cannot take down the whole scan.
func runFilter(f func() (*image.NRGBA, error)) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("filter panic: %v", r)
		}
	}()
	return f()
}

// normalizeSize scales the image down, preserving aspect ratio, when either
// dimension exceeds its configured maximum. The longer side is fitted within
// the smaller of the two maxima, which keeps both dimensions inside their
// bounds regardless of orientation. Images already within bounds are
// returned unchanged; the image is never upscaled.
func normalizeSize(img *image.NRGBA, maxWidth, maxHeight int) (*image.NRGBA, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return img, nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth && h <= maxHeight {
		return img, nil
	}

	bound := maxWidth
	if maxHeight < bound {
		bound = maxHeight
	}
	long := w
	if h > long {
		long = h
	}
	scale := float64(bound) / float64(long)
	newW := int(float64(w)*scale + 0.5)
	newH := int(float64(h)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(img, newW, newH, imaging.Lanczos), nil
}

// stretchContrast applies a linear contrast stretch per RGB channel:
// new = clamp(old*factor + 128*(1-factor)). Alpha passes through.
func stretchContrast(img *image.NRGBA, factor float64) (*image.NRGBA, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("contrast factor must be positive, got %v", factor)
	}
	b := img.Bounds()
	out := imaging.Clone(img)
	offset := 128 * (1 - factor)
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			i := x * 4
			row[i+0] = clampByte(float64(row[i+0])*factor + offset)
			row[i+1] = clampByte(float64(row[i+1])*factor + offset)
			row[i+2] = clampByte(float64(row[i+2])*factor + offset)
			// row[i+3] untouched
		}
	}
	return out, nil
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
