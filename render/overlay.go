package render

import "github.com/mrjoshuak/go-splittone/tone"

// overlayPixel folds the diagnostic plot into one already graded pixel.
//
// The plot lives in a unit square over the frame: xNorm runs left to
// right, yNorm bottom to top. Three traces draw the per-channel transfer
// curves, a dimmer diagonal marks the identity reference, and vertical
// guides mark the zone boundaries and middle gray. Traces are mutually
// exclusive in red, green, blue order; guides are painted afterwards and
// cover the traces, with later guides covering earlier ones where they
// cross. Alpha is untouched by the caller.
func overlayPixel(rOut, gOut, bOut, xNorm, yNorm, thickness float32, p tone.Params, b tone.Boundaries) (float32, float32, float32) {
	curveR := tone.Apply(xNorm, b.ShadowEnd, b.HighlightStart, p.ShadowExp[0], p.HighlightExp[0])
	curveG := tone.Apply(xNorm, b.ShadowEnd, b.HighlightStart, p.ShadowExp[1], p.HighlightExp[1])
	curveB := tone.Apply(xNorm, b.ShadowEnd, b.HighlightStart, p.ShadowExp[2], p.HighlightExp[2])

	guideThickness := thickness * 0.6

	switch {
	case absf(yNorm-curveR) < thickness:
		rOut, gOut, bOut = 1, 0, 0
	case absf(yNorm-curveG) < thickness:
		rOut, gOut, bOut = 0, 1, 0
	case absf(yNorm-curveB) < thickness:
		rOut, gOut, bOut = 0.3, 0.5, 1.0
	case absf(yNorm-xNorm) < guideThickness:
		// The identity diagonal blends over the image instead of
		// replacing it.
		rOut = rOut*0.4 + 0.6
		gOut = gOut*0.4 + 0.6
		bOut = bOut*0.4 + 0.6
	}

	if absf(xNorm-b.ShadowEnd) < guideThickness {
		rOut, gOut, bOut = 0, 1, 1
	}
	if absf(xNorm-b.MidGray) < guideThickness || absf(yNorm-b.MidGray) < guideThickness {
		rOut, gOut, bOut = 1, 1, 0
	}
	if absf(xNorm-b.HighlightStart) < guideThickness {
		rOut, gOut, bOut = 1, 0, 1
	}

	return rOut, gOut, bOut
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
