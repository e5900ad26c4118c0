package tone

import (
	"errors"
	"fmt"
)

// Parameter validation errors
var (
	ErrPreserveRange = errors.New("tone: preserve midgray out of range [0,1]")
	ErrExponentRange = errors.New("tone: exponent out of range [0.2,2]")
)

// Exponent slider limits. Keeping exponents positive makes the curve total:
// a power of a non-negative base never leaves the real domain.
const (
	MinExponent = 0.2
	MaxExponent = 2.0
)

// identityEpsilon is the tolerance used by IsIdentity when comparing
// PreserveMidgray against 0 and the exponents against 1.
const identityEpsilon = 1e-8

// Params is an immutable snapshot of the grade controls for one render.
// Exponent arrays are indexed R, G, B. Snapshots are taken once per render
// pass and never mutated while the pass runs, so they may be shared freely
// across worker goroutines.
type Params struct {
	// Preset selects the middle-gray reference constant.
	// Out-of-range values are clamped on lookup.
	Preset Preset

	// PreserveMidgray widens the untouched midtone zone, as a fraction
	// of the middle-gray value in each direction. Range [0,1].
	PreserveMidgray float32

	// ShadowExp holds the per-channel shadow exponents. Range [0.2,2].
	ShadowExp [3]float32

	// HighlightExp holds the per-channel highlight exponents. Range [0.2,2].
	HighlightExp [3]float32

	// ShowCurve enables the diagnostic overlay.
	ShowCurve bool
}

// DefaultParams returns the neutral parameter snapshot: DaVinci Intermediate
// middle gray, no midtone gap, unit exponents, overlay off. The result
// satisfies IsIdentity.
func DefaultParams() Params {
	return Params{
		Preset:       PresetDaVinciIntermediate,
		ShadowExp:    [3]float32{1, 1, 1},
		HighlightExp: [3]float32{1, 1, 1},
	}
}

// Boundaries derives the zone split points for this snapshot. Computed once
// per render and shared by every pixel and channel.
func (p Params) Boundaries() Boundaries {
	midGray := MiddleGray(p.Preset)
	gap := midGray * p.PreserveMidgray

	shadowEnd := midGray - gap
	if shadowEnd < 0 {
		shadowEnd = 0
	}
	highlightStart := midGray + gap
	if highlightStart > 1 {
		highlightStart = 1
	}

	return Boundaries{
		ShadowEnd:      shadowEnd,
		HighlightStart: highlightStart,
		MidGray:        midGray,
	}
}

// IsIdentity reports whether the transform would be a pure copy: overlay
// off, no midtone gap, and all six exponents within 1e-8 of 1.0. Callers
// use this to skip the pixel loop and pass the source through unchanged.
func (p Params) IsIdentity() bool {
	if p.ShowCurve {
		return false
	}
	if absf(p.PreserveMidgray) >= identityEpsilon {
		return false
	}
	for ch := 0; ch < 3; ch++ {
		if absf(p.ShadowExp[ch]-1) >= identityEpsilon {
			return false
		}
		if absf(p.HighlightExp[ch]-1) >= identityEpsilon {
			return false
		}
	}
	return true
}

// Validate checks the snapshot against the slider ranges. The preset is not
// checked: lookups clamp it to the table bounds.
func (p Params) Validate() error {
	if p.PreserveMidgray < 0 || p.PreserveMidgray > 1 {
		return fmt.Errorf("%w: %g", ErrPreserveRange, p.PreserveMidgray)
	}
	for ch := 0; ch < 3; ch++ {
		if p.ShadowExp[ch] < MinExponent || p.ShadowExp[ch] > MaxExponent {
			return fmt.Errorf("%w: shadow %s %g", ErrExponentRange, channelName(ch), p.ShadowExp[ch])
		}
		if p.HighlightExp[ch] < MinExponent || p.HighlightExp[ch] > MaxExponent {
			return fmt.Errorf("%w: highlight %s %g", ErrExponentRange, channelName(ch), p.HighlightExp[ch])
		}
	}
	return nil
}

// channelName returns the display name for a channel index.
func channelName(ch int) string {
	switch ch {
	case 0:
		return "red"
	case 1:
		return "green"
	case 2:
		return "blue"
	}
	return "?"
}

// absf returns the absolute value of a float32.
func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
