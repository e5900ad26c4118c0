// Package render applies the tone curve to float RGBA frames.
//
// A Frame is an interleaved float32 RGBA buffer over rectangular bounds.
// The Processor walks a window of a frame, pushes each channel of each
// pixel through the tone curve, and optionally draws the diagnostic curve
// overlay. Rendering is data-parallel: disjoint windows of the same frame
// may be processed concurrently because a render pass only reads shared
// immutable state and writes to its own window.
package render

import (
	"errors"
	"image"
	"image/color"
)

// Frame errors
var (
	ErrNilFrame       = errors.New("render: nil frame")
	ErrBoundsMismatch = errors.New("render: source and destination bounds differ")
	ErrWindowBounds   = errors.New("render: window outside frame bounds")
)

// Frame is an interleaved float32 RGBA pixel buffer.
// Values are scene-referred: [0,1] nominal but may exceed 1 for HDR.
type Frame struct {
	// Pix holds the pixels in R, G, B, A order.
	Pix []float32
	// Stride is the number of values per pixel (always 4).
	Stride int
	// Rect is the frame's bounds.
	Rect image.Rectangle
}

// NewFrame creates a frame with the given bounds, zero-filled.
func NewFrame(r image.Rectangle) *Frame {
	w, h := r.Dx(), r.Dy()
	return &Frame{
		Pix:    make([]float32, w*h*4),
		Stride: 4,
		Rect:   r,
	}
}

// Bounds returns the frame's bounds.
func (f *Frame) Bounds() image.Rectangle {
	return f.Rect
}

// ColorModel returns the frame's color model.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// At returns the color at (x, y), clamped to 8-bit range.
// Together with Bounds and ColorModel this makes Frame an image.Image.
func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Rect)) {
		return color.RGBA{}
	}
	i := f.PixOffset(x, y)
	return color.RGBA{
		R: floatToByte(f.Pix[i+0]),
		G: floatToByte(f.Pix[i+1]),
		B: floatToByte(f.Pix[i+2]),
		A: floatToByte(f.Pix[i+3]),
	}
}

// PixOffset returns the index of the first element of Pix for pixel (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return (y-f.Rect.Min.Y)*f.Rect.Dx()*f.Stride + (x-f.Rect.Min.X)*f.Stride
}

// SetRGBA sets the pixel at (x, y). Out-of-bounds writes are dropped.
func (f *Frame) SetRGBA(x, y int, r, g, b, a float32) {
	if !(image.Point{x, y}.In(f.Rect)) {
		return
	}
	i := f.PixOffset(x, y)
	f.Pix[i+0] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
	f.Pix[i+3] = a
}

// RGBA returns the channel values at (x, y).
// Out-of-bounds reads return zeros.
func (f *Frame) RGBA(x, y int) (r, g, b, a float32) {
	if !(image.Point{x, y}.In(f.Rect)) {
		return 0, 0, 0, 0
	}
	i := f.PixOffset(x, y)
	return f.Pix[i+0], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	pix := make([]float32, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Pix: pix, Stride: f.Stride, Rect: f.Rect}
}

// CopyFrom copies pixel data from src. The bounds must match.
func (f *Frame) CopyFrom(src *Frame) error {
	if src == nil {
		return ErrNilFrame
	}
	if f.Rect != src.Rect {
		return ErrBoundsMismatch
	}
	copy(f.Pix, src.Pix)
	return nil
}

// floatToByte converts a [0,1] float to a [0,255] byte.
func floatToByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
