package frameio

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/mrjoshuak/go-jpeg2000"

	"github.com/mrjoshuak/go-splittone/render"
)

const j2kBlockSize = 64

// WriteJ2K encodes f as a lossless high-throughput JPEG 2000
// codestream with 16 bits per component. Samples are clamped to [0,1]
// and stored linearly; no transfer function is applied. The frame's
// bounds offset is not representable and collapses to the origin.
func WriteJ2K(w io.Writer, f *render.Frame) error {
	if f == nil {
		return render.ErrNilFrame
	}

	bounds := f.Rect
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("frameio: cannot write empty J2K frame")
	}

	img := image.NewNRGBA64(image.Rect(0, 0, width, height))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		o := f.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetNRGBA64(x-bounds.Min.X, y-bounds.Min.Y, color.NRGBA64{
				R: quant16(f.Pix[o]),
				G: quant16(f.Pix[o+1]),
				B: quant16(f.Pix[o+2]),
				A: quant16(f.Pix[o+3]),
			})
			o += 4
		}
	}

	// 5 decomposition levels + base, reduced until the coarsest level
	// still has at least one sample per axis.
	minDim := width
	if height < minDim {
		minDim = height
	}
	nres := 6
	for nres > 1 && 1<<(nres-1) > minDim {
		nres--
	}

	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K, // Raw codestream, no JP2 wrapper
		Lossless:       true,
		HighThroughput: true,
		HTBlockWidth:   j2kBlockSize,
		HTBlockHeight:  j2kBlockSize,
		NumResolutions: nres,
	}
	if err := jpeg2000.Encode(w, img, opts); err != nil {
		return fmt.Errorf("frameio: jpeg2000 encode failed: %w", err)
	}
	return nil
}

// ReadJ2K decodes a JPEG 2000 codestream. Decoded samples are treated
// as linear light and mapped straight to [0,1]; grayscale images are
// replicated across RGB with alpha set to 1.
func ReadJ2K(r io.Reader) (*render.Frame, error) {
	img, err := jpeg2000.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("frameio: jpeg2000 decode failed: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	frame := render.NewFrame(image.Rect(0, 0, width, height))

	switch src := img.(type) {
	case *image.NRGBA64:
		o := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := src.NRGBA64At(bounds.Min.X+x, bounds.Min.Y+y)
				frame.Pix[o] = float32(c.R) / 65535
				frame.Pix[o+1] = float32(c.G) / 65535
				frame.Pix[o+2] = float32(c.B) / 65535
				frame.Pix[o+3] = float32(c.A) / 65535
				o += 4
			}
		}

	case *image.Gray16:
		o := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := float32(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y) / 65535
				frame.Pix[o] = v
				frame.Pix[o+1] = v
				frame.Pix[o+2] = v
				frame.Pix[o+3] = 1
				o += 4
			}
		}

	default:
		return nil, fmt.Errorf("frameio: unsupported JPEG 2000 image type %T", img)
	}

	return frame, nil
}

func quant16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 65535
	}
	return uint16(v*65535 + 0.5)
}
