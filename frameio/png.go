package frameio

import (
	"image/png"
	"io"

	"github.com/mrjoshuak/go-splittone/render"
)

// WritePNG encodes f as an 8-bit sRGB PNG proof. Values outside [0,1]
// are clamped; HDR content should be tone mapped first (see
// render.Proxy).
func WritePNG(w io.Writer, f *render.Frame) error {
	if f == nil {
		return render.ErrNilFrame
	}
	return png.Encode(w, render.ToNRGBA(f))
}

// ReadPNG decodes a PNG into a linear-light frame, inverting the sRGB
// transfer function.
func ReadPNG(r io.Reader) (*render.Frame, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	return render.FromImage(img), nil
}
