package render

import (
	"image"

	"github.com/mrjoshuak/go-splittone/tone"
)

// Processor applies one parameter snapshot to a window of a frame pair.
//
// A Processor performs no locking: the snapshot and the derived zone
// boundaries are read-only for the duration of a render, and each
// invocation writes only inside its own window. Invoking Process
// concurrently over disjoint windows of the same frame pair is safe.
type Processor struct {
	// Params is the snapshot for this render pass.
	Params tone.Params
	// Src is the input frame.
	Src *Frame
	// Dst receives the transformed pixels. Dst may alias Src: the
	// transform is pointwise, so in-place rendering is well defined.
	Dst *Frame
}

// NewProcessor creates a processor for one render pass.
func NewProcessor(dst, src *Frame, p tone.Params) *Processor {
	return &Processor{Params: p, Src: src, Dst: dst}
}

// Validate checks the preconditions for a render over win: both frames
// present, bounds identical, and the window inside those bounds. The pixel
// loop itself has no failure modes, so these checks are the only error
// source in a render.
func (p *Processor) Validate(win image.Rectangle) error {
	if p.Src == nil || p.Dst == nil {
		return ErrNilFrame
	}
	if p.Src.Rect != p.Dst.Rect {
		return ErrBoundsMismatch
	}
	if !win.In(p.Dst.Rect) && !win.Empty() {
		return ErrWindowBounds
	}
	return nil
}

// Process renders the window sequentially.
func (p *Processor) Process(win image.Rectangle) error {
	if err := p.Validate(win); err != nil {
		return err
	}
	p.run(win)
	return nil
}

// ProcessParallel renders the window split into disjoint scanline bands
// across the configured workers. The result is identical to Process.
func (p *Processor) ProcessParallel(win image.Rectangle) error {
	if err := p.Validate(win); err != nil {
		return err
	}
	rows := win.Dy()
	if rows <= 0 {
		return nil
	}
	ParallelFor(rows, func(i int) {
		y := win.Min.Y + i
		p.run(image.Rect(win.Min.X, y, win.Max.X, y+1))
	})
	return nil
}

// run executes the pixel loop over win. Preconditions hold on entry.
//
// Overlay geometry is normalized against the destination frame's full
// bounds rather than the window, so bands rendered by different workers
// compose into one consistent plot.
func (p *Processor) run(win image.Rectangle) {
	bnd := p.Params.Boundaries()
	bounds := p.Dst.Rect
	w := bounds.Dx()
	h := bounds.Dy()

	drawOverlay := p.Params.ShowCurve && w > 0 && h > 0
	var thickness float32
	if drawOverlay {
		thickness = 2.5 / float32(h)
	}

	for y := win.Min.Y; y < win.Max.Y; y++ {
		si := p.Src.PixOffset(win.Min.X, y)
		di := p.Dst.PixOffset(win.Min.X, y)

		var yNorm float32
		if drawOverlay {
			yNorm = 1 - float32(y-bounds.Min.Y)/float32(h)
		}

		for x := win.Min.X; x < win.Max.X; x++ {
			r := p.Src.Pix[si+0]
			g := p.Src.Pix[si+1]
			b := p.Src.Pix[si+2]
			a := p.Src.Pix[si+3]

			rOut := tone.Apply(r, bnd.ShadowEnd, bnd.HighlightStart, p.Params.ShadowExp[0], p.Params.HighlightExp[0])
			gOut := tone.Apply(g, bnd.ShadowEnd, bnd.HighlightStart, p.Params.ShadowExp[1], p.Params.HighlightExp[1])
			bOut := tone.Apply(b, bnd.ShadowEnd, bnd.HighlightStart, p.Params.ShadowExp[2], p.Params.HighlightExp[2])

			if drawOverlay {
				xNorm := float32(x-bounds.Min.X) / float32(w)
				rOut, gOut, bOut = overlayPixel(rOut, gOut, bOut, xNorm, yNorm, thickness, p.Params, bnd)
			}

			p.Dst.Pix[di+0] = rOut
			p.Dst.Pix[di+1] = gOut
			p.Dst.Pix[di+2] = bOut
			p.Dst.Pix[di+3] = a

			si += p.Src.Stride
			di += p.Dst.Stride
		}
	}
}

// Grade applies a snapshot to a full frame, in parallel. Identity snapshots
// short-circuit to a plain copy of the source. Dst may alias Src.
func Grade(dst, src *Frame, p tone.Params) error {
	if dst == nil || src == nil {
		return ErrNilFrame
	}
	if p.IsIdentity() {
		if dst == src {
			return nil
		}
		return dst.CopyFrom(src)
	}
	proc := NewProcessor(dst, src, p)
	return proc.ProcessParallel(dst.Rect)
}

// GradeWindow applies a snapshot to one window of a frame pair,
// sequentially. Identity snapshots still run the loop; callers that want
// the shortcut use Grade or consult Params.IsIdentity themselves.
func GradeWindow(dst, src *Frame, p tone.Params, win image.Rectangle) error {
	proc := NewProcessor(dst, src, p)
	return proc.Process(win)
}
