package frameio

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/mrjoshuak/go-splittone/render"
)

func TestPFMRoundTrip(t *testing.T) {
	frame := render.NewFrame(image.Rect(0, 0, 5, 3))
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i] = float32(i) * 0.25
		frame.Pix[i+1] = -float32(i) * 0.125
		frame.Pix[i+2] = float32(i) + 0.5
		frame.Pix[i+3] = 1
	}

	var buf bytes.Buffer
	if err := WritePFM(&buf, frame); err != nil {
		t.Fatalf("WritePFM error: %v", err)
	}

	got, err := ReadPFM(&buf)
	if err != nil {
		t.Fatalf("ReadPFM error: %v", err)
	}
	framesBitEqual(t, got, frame)
}

func TestPFMHeader(t *testing.T) {
	frame := render.NewFrame(image.Rect(0, 0, 4, 2))

	var buf bytes.Buffer
	if err := WritePFM(&buf, frame); err != nil {
		t.Fatalf("WritePFM error: %v", err)
	}

	want := "PF\n4 2\n-1.0\n"
	if !strings.HasPrefix(buf.String(), want) {
		t.Errorf("Header = %q, want prefix %q", buf.String()[:len(want)], want)
	}
	if buf.Len() != len(want)+4*2*3*4 {
		t.Errorf("Stream length = %d, want %d", buf.Len(), len(want)+4*2*3*4)
	}
}

func TestPFMAlphaDropped(t *testing.T) {
	frame := render.NewFrame(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i] = 0.25
		frame.Pix[i+1] = 0.5
		frame.Pix[i+2] = 0.75
		frame.Pix[i+3] = 0.33
	}

	var buf bytes.Buffer
	if err := WritePFM(&buf, frame); err != nil {
		t.Fatalf("WritePFM error: %v", err)
	}

	got, err := ReadPFM(&buf)
	if err != nil {
		t.Fatalf("ReadPFM error: %v", err)
	}
	for i := 3; i < len(got.Pix); i += 4 {
		if got.Pix[i] != 1 {
			t.Fatalf("Pix[%d] = %v, want alpha 1", i, got.Pix[i])
		}
	}
}

func TestPFMRowOrder(t *testing.T) {
	// Two rows with distinct reds; the bottom row must be first in the
	// stream.
	frame := render.NewFrame(image.Rect(0, 0, 1, 2))
	frame.SetRGBA(0, 0, 0.25, 0, 0, 1) // top
	frame.SetRGBA(0, 1, 0.75, 0, 0, 1) // bottom

	var buf bytes.Buffer
	if err := WritePFM(&buf, frame); err != nil {
		t.Fatalf("WritePFM error: %v", err)
	}

	data := buf.Bytes()
	headerLen := len("PF\n1 2\n-1.0\n")
	first := math.Float32frombits(binary.LittleEndian.Uint32(data[headerLen:]))
	if first != 0.75 {
		t.Errorf("First stored red = %v, want bottom row 0.75", first)
	}

	got, err := ReadPFM(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadPFM error: %v", err)
	}
	framesBitEqual(t, got, frame)
}

func TestPFMOffsetBoundsCollapse(t *testing.T) {
	frame := stfTestFrame(image.Rect(10, 20, 14, 23))

	var buf bytes.Buffer
	if err := WritePFM(&buf, frame); err != nil {
		t.Fatalf("WritePFM error: %v", err)
	}

	got, err := ReadPFM(&buf)
	if err != nil {
		t.Fatalf("ReadPFM error: %v", err)
	}
	if got.Rect != image.Rect(0, 0, 4, 3) {
		t.Errorf("Rect = %v, want origin bounds", got.Rect)
	}

	// Same pixels, shifted to the origin
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			wr, wg, wb, _ := frame.RGBA(10+x, 20+y)
			gr, gg, gb, _ := got.RGBA(x, y)
			if gr != wr || gg != wg || gb != wb {
				t.Fatalf("pixel (%d,%d) = (%v,%v,%v), want (%v,%v,%v)", x, y, gr, gg, gb, wr, wg, wb)
			}
		}
	}
}

func TestPFMReadGrayscale(t *testing.T) {
	// Build a little-endian Pf stream by hand: 2x2, values 0.5..2.0
	var buf bytes.Buffer
	buf.WriteString("Pf\n2 2\n-1.0\n")
	vals := []float32{0.5, 1.0, 1.5, 2.0} // bottom row first
	for _, v := range vals {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}

	got, err := ReadPFM(&buf)
	if err != nil {
		t.Fatalf("ReadPFM error: %v", err)
	}

	// Gray replicates across RGB; rows flip back to top-down.
	r, g, b, a := got.RGBA(0, 0)
	if r != 1.5 || g != 1.5 || b != 1.5 || a != 1 {
		t.Errorf("top-left = (%v,%v,%v,%v), want (1.5,1.5,1.5,1)", r, g, b, a)
	}
	r, _, _, _ = got.RGBA(0, 1)
	if r != 0.5 {
		t.Errorf("bottom-left red = %v, want 0.5", r)
	}
}

func TestPFMReadBigEndian(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("PF\n1 1\n1.0\n")
	for _, v := range []float32{0.25, 0.5, 0.75} {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}

	got, err := ReadPFM(&buf)
	if err != nil {
		t.Fatalf("ReadPFM error: %v", err)
	}
	r, g, b, _ := got.RGBA(0, 0)
	if r != 0.25 || g != 0.5 || b != 0.75 {
		t.Errorf("pixel = (%v,%v,%v), want (0.25,0.5,0.75)", r, g, b)
	}
}

func TestPFMWriteErrors(t *testing.T) {
	var buf bytes.Buffer

	if err := WritePFM(&buf, nil); err != render.ErrNilFrame {
		t.Errorf("nil frame error = %v, want ErrNilFrame", err)
	}
	if err := WritePFM(&buf, render.NewFrame(image.Rect(0, 0, 0, 5))); err == nil {
		t.Error("Empty frame should be rejected")
	}
}

func TestPFMReadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrPFMMagic},
		{"wrong magic", "P6\n2 2\n255\n", ErrPFMMagic},
		{"zero width", "PF\n0 2\n-1.0\n", ErrPFMHeader},
		{"negative height", "PF\n2 -2\n-1.0\n", ErrPFMHeader},
		{"huge width", "PF\n9999999999 2\n-1.0\n", ErrPFMHeader},
		{"bad scale", "PF\n2 2\nabc\n", ErrPFMHeader},
		{"zero scale", "PF\n2 2\n0\n", ErrPFMHeader},
	}

	for _, tt := range tests {
		_, err := ReadPFM(strings.NewReader(tt.data))
		if err != tt.want {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}

	// Header fine, pixel data missing
	if _, err := ReadPFM(strings.NewReader("PF\n2 2\n-1.0\nxx")); err == nil {
		t.Error("Short pixel data should fail")
	}
}

func TestPFMReadWhitespaceVariants(t *testing.T) {
	// Header tokens separated by assorted whitespace
	var buf bytes.Buffer
	buf.WriteString("PF 1\t1\r\n-1.0\n")
	for _, v := range []float32{1, 2, 3} {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}

	got, err := ReadPFM(&buf)
	if err != nil {
		t.Fatalf("ReadPFM error: %v", err)
	}
	r, g, b, _ := got.RGBA(0, 0)
	if r != 1 || g != 2 || b != 3 {
		t.Errorf("pixel = (%v,%v,%v), want (1,2,3)", r, g, b)
	}
}
