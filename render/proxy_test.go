package render

import (
	"image"
	"image/color"
	"testing"
)

func TestProxySize(t *testing.T) {
	tests := []struct {
		srcW, srcH, maxW, maxH int
		wantW, wantH           int
	}{
		{1920, 1080, 480, 480, 480, 270},
		{1080, 1920, 480, 480, 270, 480},
		{100, 100, 480, 480, 100, 100}, // already fits
		{2000, 2, 100, 100, 100, 1},    // clamps to at least 1
		{100, 100, 0, 100, 0, 0},       // degenerate max
	}

	for _, tt := range tests {
		w, h := proxySize(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("proxySize(%d,%d,%d,%d) = (%d,%d), want (%d,%d)",
				tt.srcW, tt.srcH, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestResizeUniform(t *testing.T) {
	src := NewFrame(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.SetRGBA(x, y, 0.5, 0.25, 0.75, 1.0)
		}
	}

	dst := Resize(src, 16, 16)
	if dst == nil {
		t.Fatal("Resize returned nil")
	}
	if dst.Rect.Dx() != 16 || dst.Rect.Dy() != 16 {
		t.Fatalf("Resize size = %dx%d, want 16x16", dst.Rect.Dx(), dst.Rect.Dy())
	}

	// Box averaging a constant frame keeps the constant exactly.
	r, g, b, a := dst.RGBA(7, 7)
	if r != 0.5 || g != 0.25 || b != 0.75 || a != 1.0 {
		t.Errorf("resized pixel = (%v,%v,%v,%v), want (0.5,0.25,0.75,1.0)", r, g, b, a)
	}
}

func TestResizeQuadrants(t *testing.T) {
	quads := [2][2]float32{{0.0, 0.25}, {0.5, 0.75}}

	src := NewFrame(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := quads[y/2][x/2]
			src.SetRGBA(x, y, v, v, v, 1.0)
		}
	}

	dst := Resize(src, 2, 2)
	if dst == nil {
		t.Fatal("Resize returned nil")
	}

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			r, _, _, _ := dst.RGBA(x, y)
			if r != quads[y][x] {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, r, quads[y][x])
			}
		}
	}
}

func TestResizeDegenerate(t *testing.T) {
	src := NewFrame(image.Rect(0, 0, 10, 10))
	if got := Resize(src, 0, 10); got != nil {
		t.Errorf("Resize with zero max = %v, want nil", got)
	}

	empty := NewFrame(image.Rect(0, 0, 0, 0))
	if got := Resize(empty, 10, 10); got != nil {
		t.Errorf("Resize of empty frame = %v, want nil", got)
	}
}

func TestToNRGBA(t *testing.T) {
	f := NewFrame(image.Rect(0, 0, 2, 1))
	f.SetRGBA(0, 0, 0.0, 1.0, 0.5, 1.0)
	f.SetRGBA(1, 0, 2.0, -1.0, 0.25, 0.5)

	img := ToNRGBA(f)
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 1 {
		t.Fatalf("image size = %v, want 2x1", img.Bounds())
	}

	c := img.NRGBAAt(0, 0)
	// linear 0.5 encodes to sRGB 188
	if c.R != 0 || c.G != 255 || c.B != 188 || c.A != 255 {
		t.Errorf("pixel 0 = %v, want {0,255,188,255}", c)
	}

	// HDR and negative values clamp; alpha has no transfer applied
	c = img.NRGBAAt(1, 0)
	if c.R != 255 || c.G != 0 || c.A != 128 {
		t.Errorf("pixel 1 = %v, want R=255 G=0 A=128", c)
	}
}

func TestFromImageInvertsToNRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 7, 1))
	levels := []uint8{0, 1, 12, 64, 128, 200, 255}
	for i, v := range levels {
		img.SetNRGBA(i, 0, color.NRGBA{R: v, G: v, B: v, A: 255})
	}

	f := FromImage(img)
	back := ToNRGBA(f)

	for i, v := range levels {
		c := back.NRGBAAt(i, 0)
		if c.R != v || c.G != v || c.B != v || c.A != 255 {
			t.Errorf("level %d: round trip = %v, want {%d,%d,%d,255}", v, c, v, v, v)
		}
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 9, 9))
	img.SetNRGBA(6, 7, color.NRGBA{R: 255, G: 0, B: 0, A: 255})

	f := FromImage(img)
	if f.Rect != image.Rect(0, 0, 4, 4) {
		t.Fatalf("frame bounds = %v, want (0,0)-(4,4)", f.Rect)
	}

	r, g, _, a := f.RGBA(1, 2)
	if r != 1.0 || g != 0 || a != 1.0 {
		t.Errorf("pixel = (%v,%v,_,%v), want (1,0,_,1)", r, g, a)
	}
}

func TestProxyToneMapsHDR(t *testing.T) {
	f := NewFrame(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			f.SetRGBA(x, y, 1.0, 1.0, 1.0, 1.0)
		}
	}

	img := Proxy(f, 32, 32)
	if img == nil {
		t.Fatal("Proxy returned nil")
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Fatalf("proxy size = %v, want 32x32", img.Bounds())
	}

	// Reinhard maps 1.0 to 0.5, which encodes to sRGB 188.
	c := img.NRGBAAt(16, 16)
	if c.R != 188 || c.G != 188 || c.B != 188 || c.A != 255 {
		t.Errorf("proxy pixel = %v, want {188,188,188,255}", c)
	}
}

func TestProxyDegenerate(t *testing.T) {
	f := NewFrame(image.Rect(0, 0, 10, 10))
	if got := Proxy(f, 0, 0); got != nil {
		t.Errorf("Proxy with zero max = %v, want nil", got)
	}
}

func TestSRGBRoundTrip(t *testing.T) {
	values := []float32{0, 0.001, 0.0031308, 0.04045, 0.18, 0.5, 0.9, 1}
	for _, v := range values {
		back := sRGBToLinear(linearToSRGB(v))
		if absf(back-v) > 1e-5 {
			t.Errorf("sRGB round trip of %v = %v", v, back)
		}
	}
}
