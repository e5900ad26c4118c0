package frameio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-splittone/render"
)

// PFM codec errors
var (
	ErrPFMMagic  = errors.New("frameio: not a PFM stream")
	ErrPFMHeader = errors.New("frameio: malformed PFM header")
)

// WritePFM encodes f as a Portable Float Map: a "PF" magic line, the
// dimensions, a scale line, then rows of raw float32 triples stored
// bottom-up. The scale is written as -1.0, which marks the pixel data
// little-endian. PFM has no alpha channel, so alpha is dropped.
func WritePFM(w io.Writer, f *render.Frame) error {
	if f == nil {
		return render.ErrNilFrame
	}
	width := f.Rect.Dx()
	height := f.Rect.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("frameio: cannot write empty PFM frame")
	}

	if _, err := fmt.Fprintf(w, "PF\n%d %d\n-1.0\n", width, height); err != nil {
		return err
	}

	row, err := GetBufferWithError(width * 3 * 4)
	if err != nil {
		return err
	}
	defer PutBuffer(row)

	for y := f.Rect.Max.Y - 1; y >= f.Rect.Min.Y; y-- {
		o := f.PixOffset(f.Rect.Min.X, y)
		for x := 0; x < width; x++ {
			binary.LittleEndian.PutUint32(row[x*12:], math.Float32bits(f.Pix[o]))
			binary.LittleEndian.PutUint32(row[x*12+4:], math.Float32bits(f.Pix[o+1]))
			binary.LittleEndian.PutUint32(row[x*12+8:], math.Float32bits(f.Pix[o+2]))
			o += 4
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ReadPFM decodes a Portable Float Map. Both the color ("PF") and
// grayscale ("Pf") variants are accepted; grayscale values are
// replicated across RGB. A negative scale marks little-endian data,
// positive big-endian; the magnitude is ignored. Alpha is set to 1 and
// the frame's bounds start at the origin.
func ReadPFM(r io.Reader) (*render.Frame, error) {
	br := bufio.NewReader(r)

	magic, err := readPFMToken(br)
	if err != nil {
		return nil, ErrPFMMagic
	}
	var comps int
	switch magic {
	case "PF":
		comps = 3
	case "Pf":
		comps = 1
	default:
		return nil, ErrPFMMagic
	}

	width, err := readPFMInt(br)
	if err != nil {
		return nil, err
	}
	height, err := readPFMInt(br)
	if err != nil {
		return nil, err
	}

	scaleTok, err := readPFMToken(br)
	if err != nil {
		return nil, ErrPFMHeader
	}
	scale, err := strconv.ParseFloat(scaleTok, 64)
	if err != nil || scale == 0 {
		return nil, ErrPFMHeader
	}
	var order binary.ByteOrder = binary.BigEndian
	if scale < 0 {
		order = binary.LittleEndian
	}

	frame := render.NewFrame(image.Rect(0, 0, width, height))
	row, err := GetBufferWithError(width * comps * 4)
	if err != nil {
		return nil, err
	}
	defer PutBuffer(row)

	// Rows are stored bottom-up.
	for y := height - 1; y >= 0; y-- {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("frameio: short PFM pixel data: %w", err)
		}
		o := frame.PixOffset(0, y)
		if comps == 3 {
			for x := 0; x < width; x++ {
				frame.Pix[o] = math.Float32frombits(order.Uint32(row[x*12:]))
				frame.Pix[o+1] = math.Float32frombits(order.Uint32(row[x*12+4:]))
				frame.Pix[o+2] = math.Float32frombits(order.Uint32(row[x*12+8:]))
				frame.Pix[o+3] = 1
				o += 4
			}
		} else {
			for x := 0; x < width; x++ {
				v := math.Float32frombits(order.Uint32(row[x*4:]))
				frame.Pix[o] = v
				frame.Pix[o+1] = v
				frame.Pix[o+2] = v
				frame.Pix[o+3] = 1
				o += 4
			}
		}
	}
	return frame, nil
}

func isPFMSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// readPFMToken returns the next whitespace-delimited header token,
// consuming exactly one trailing whitespace byte. The pixel data
// begins immediately after the scale token's terminator, so the
// scanner must not read past it.
func readPFMToken(br *bufio.Reader) (string, error) {
	var b byte
	var err error
	for {
		b, err = br.ReadByte()
		if err != nil {
			return "", err
		}
		if !isPFMSpace(b) {
			break
		}
	}

	var sb strings.Builder
	for {
		sb.WriteByte(b)
		if sb.Len() > 31 {
			return "", ErrPFMHeader
		}
		b, err = br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return sb.String(), nil
			}
			return "", err
		}
		if isPFMSpace(b) {
			return sb.String(), nil
		}
	}
}

func readPFMInt(br *bufio.Reader) (int, error) {
	tok, err := readPFMToken(br)
	if err != nil {
		return 0, ErrPFMHeader
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v <= 0 || v > maxFrameDimension {
		return 0, ErrPFMHeader
	}
	return v, nil
}
