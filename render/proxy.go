package render

import (
	"image"
	"image/color"
	"math"
)

// Resize box-filters src into a new frame that fits within maxWidth x
// maxHeight while preserving aspect ratio. The result has zero-origin
// bounds. Filtering happens in linear light; sources already at or below
// the limits are copied at full size. Returns nil for degenerate sizes.
func Resize(src *Frame, maxWidth, maxHeight int) *Frame {
	srcWidth := src.Rect.Dx()
	srcHeight := src.Rect.Dy()

	if srcWidth <= 0 || srcHeight <= 0 {
		return nil
	}

	dstWidth, dstHeight := proxySize(srcWidth, srcHeight, maxWidth, maxHeight)
	if dstWidth <= 0 || dstHeight <= 0 {
		return nil
	}

	dst := NewFrame(image.Rect(0, 0, dstWidth, dstHeight))

	scaleX := float64(srcWidth) / float64(dstWidth)
	scaleY := float64(srcHeight) / float64(dstHeight)

	ParallelFor(dstHeight, func(py int) {
		for px := 0; px < dstWidth; px++ {
			srcX0 := float64(px) * scaleX
			srcY0 := float64(py) * scaleY
			srcX1 := float64(px+1) * scaleX
			srcY1 := float64(py+1) * scaleY

			// Box filter: average all source pixels in the rectangle.
			var sumR, sumG, sumB, sumA float64
			var count float64

			for sy := int(srcY0); sy < int(math.Ceil(srcY1)); sy++ {
				for sx := int(srcX0); sx < int(math.Ceil(srcX1)); sx++ {
					if sx >= 0 && sx < srcWidth && sy >= 0 && sy < srcHeight {
						r, g, b, a := src.RGBA(sx+src.Rect.Min.X, sy+src.Rect.Min.Y)
						sumR += float64(r)
						sumG += float64(g)
						sumB += float64(b)
						sumA += float64(a)
						count++
					}
				}
			}

			if count > 0 {
				dst.SetRGBA(px, py,
					float32(sumR/count),
					float32(sumG/count),
					float32(sumB/count),
					float32(sumA/count))
			}
		}
	})

	return dst
}

// proxySize calculates proxy dimensions preserving aspect ratio.
func proxySize(srcWidth, srcHeight, maxWidth, maxHeight int) (int, int) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return 0, 0
	}

	if srcWidth <= maxWidth && srcHeight <= maxHeight {
		return srcWidth, srcHeight
	}

	scaleX := float64(maxWidth) / float64(srcWidth)
	scaleY := float64(maxHeight) / float64(srcHeight)
	scale := math.Min(scaleX, scaleY)

	dstWidth := int(float64(srcWidth) * scale)
	dstHeight := int(float64(srcHeight) * scale)

	if dstWidth < 1 {
		dstWidth = 1
	}
	if dstHeight < 1 {
		dstHeight = 1
	}

	return dstWidth, dstHeight
}

// ToNRGBA converts a frame to 8-bit non-premultiplied RGBA with the sRGB
// display transfer applied. Values outside [0,1] clamp; callers with HDR
// content that should roll off instead of clip use Proxy.
func ToNRGBA(f *Frame) *image.NRGBA {
	width := f.Rect.Dx()
	height := f.Rect.Dy()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := f.RGBA(f.Rect.Min.X+x, f.Rect.Min.Y+y)

			idx := img.PixOffset(x, y)
			img.Pix[idx+0] = floatToByte(linearToSRGB(r))
			img.Pix[idx+1] = floatToByte(linearToSRGB(g))
			img.Pix[idx+2] = floatToByte(linearToSRGB(b))
			img.Pix[idx+3] = floatToByte(a)
		}
	}

	return img
}

// Proxy produces a display-ready 8-bit proxy of a frame: box-filtered to
// fit maxWidth x maxHeight, Reinhard tone mapped so HDR values roll off,
// then sRGB encoded. Returns nil for degenerate sizes.
func Proxy(f *Frame, maxWidth, maxHeight int) *image.NRGBA {
	small := Resize(f, maxWidth, maxHeight)
	if small == nil {
		return nil
	}

	for i := 0; i < len(small.Pix); i += small.Stride {
		small.Pix[i+0] = toneMap(small.Pix[i+0])
		small.Pix[i+1] = toneMap(small.Pix[i+1])
		small.Pix[i+2] = toneMap(small.Pix[i+2])
	}

	return ToNRGBA(small)
}

// FromImage converts a display-referred 8- or 16-bit image into a linear
// float frame with zero-origin bounds. The inverse of ToNRGBA up to
// quantization.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	f := NewFrame(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			f.SetRGBA(x, y,
				sRGBToLinear(float32(c.R)/65535.0),
				sRGBToLinear(float32(c.G)/65535.0),
				sRGBToLinear(float32(c.B)/65535.0),
				float32(c.A)/65535.0)
		}
	}

	return f
}

// toneMap applies simple Reinhard tone mapping to compress HDR to [0,1].
func toneMap(v float32) float32 {
	if v <= 0 {
		return 0
	}
	// Reinhard: v / (1 + v)
	return v / (1.0 + v)
}

// linearToSRGB converts linear RGB to sRGB gamma space.
func linearToSRGB(v float32) float32 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

// sRGBToLinear converts sRGB gamma space to linear RGB.
func sRGBToLinear(v float32) float32 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}
