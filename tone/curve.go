// Package tone implements a three-zone tone curve for float RGB pixel data.
//
// The curve splits the input range into shadows, preserved midtones, and
// highlights around a middle-gray constant chosen by input encoding. Shadows
// and highlights are shaped by per-channel power curves while the midtone
// zone and everything above 1.0 pass through untouched. The zone boundaries
// derive from a single "preserve midgray" amount, so a grade is described by
// one preset, one width, and six exponents.
package tone

import "math"

// Boundaries holds the zone split points derived from a parameter snapshot.
// The invariant 0 <= ShadowEnd <= MidGray <= HighlightStart <= 1 always
// holds; with PreserveMidgray at zero all three collapse to the same value.
type Boundaries struct {
	ShadowEnd      float32
	HighlightStart float32
	MidGray        float32
}

// Apply evaluates the tone curve for a single sample.
//
// The input is clamped below at zero and then falls into one of four zones:
//
//	x <= shadowEnd:               shadowEnd * (x/shadowEnd)^shadowExp
//	shadowEnd < x <= highlightStart:  x
//	highlightStart < x <= 1:      highlightStart + range * (t)^highlightExp
//	x > 1:                        x
//
// where range = 1-highlightStart and t = (x-highlightStart)/range. A zero
// shadowEnd or zero range makes the corresponding zone an identity, and
// exponents of 1.0 degenerate both power zones to identity. The function is
// total for any finite input: ratios are clamped to [0,1] before the power,
// and exponents are configured positive.
func Apply(x, shadowEnd, highlightStart, shadowExp, highlightExp float32) float32 {
	if x < 0 {
		x = 0
	}

	// Zone 1: shadows.
	if x <= shadowEnd {
		if shadowEnd > 0 {
			ratio := clamp01(x / shadowEnd)
			return shadowEnd * powf(ratio, shadowExp)
		}
		return x
	}

	// Zone 2: preserved midtones.
	if x <= highlightStart {
		return x
	}

	// Zone 3: highlights up to 1.0.
	if x <= 1 {
		rng := 1 - highlightStart
		if rng > 0 {
			ratio := clamp01((x - highlightStart) / rng)
			return highlightStart + rng*powf(ratio, highlightExp)
		}
		return x
	}

	// Zone 4: above 1.0.
	return x
}

// ApplyCurve evaluates the tone curve with boundaries derived from b,
// selecting the exponent pair for channel ch (0=R, 1=G, 2=B).
func (p Params) ApplyCurve(x float32, b Boundaries, ch int) float32 {
	return Apply(x, b.ShadowEnd, b.HighlightStart, p.ShadowExp[ch], p.HighlightExp[ch])
}

// powf computes x^y in float32.
func powf(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}

// clamp01 clamps a float to [0, 1] range.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
