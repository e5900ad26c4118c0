package tone

import "strings"

// Preset identifies the middle-gray reference of an input encoding.
// Presets select a numeric constant only; no color-space conversion
// is performed.
type Preset int

// Supported input encodings, in table order.
const (
	PresetLinear Preset = iota
	PresetACEScc
	PresetACEScct
	PresetARRILogC3
	PresetARRILogC4
	PresetBMDFilmGen5
	PresetCanonLog
	PresetCanonLog2
	PresetCanonLog3
	PresetDaVinciIntermediate
	PresetDJIDLog
	PresetFujiFLog
	PresetFujiFLog2
	PresetGamma22
	PresetGamma24
	PresetNikonNLog
	PresetPanasonicVLog
	PresetREDLog3G10
	PresetSonySLog3
	PresetAppleLog

	// PresetCount is the number of entries in the middle-gray table.
	PresetCount
)

// middleGrayTable holds the encoded value of an 18% reflectance gray card
// for each supported input encoding. The table order and values are part
// of the preset contract; changing either breaks existing grades.
var middleGrayTable = [PresetCount]float32{
	0.180, // Linear
	0.413, // ACEScc
	0.413, // ACEScct
	0.391, // ARRI LogC3
	0.278, // ARRI LogC4
	0.383, // BMD Film Gen5
	0.312, // Canon Log
	0.387, // Canon Log2
	0.330, // Canon Log3
	0.336, // DaVinci Intermediate
	0.398, // DJI D-Log
	0.459, // Fujifilm F-Log
	0.391, // Fujifilm F-Log2
	0.458, // Gamma 2.2
	0.489, // Gamma 2.4
	0.363, // Nikon N-Log
	0.423, // Panasonic V-Log
	0.333, // RED Log3G10
	0.410, // Sony S-Log3
	0.488, // Apple Log
}

// presetLabels holds the display name of each preset, in table order.
var presetLabels = [PresetCount]string{
	"Linear",
	"ACEScc",
	"ACEScct",
	"ARRI LogC3",
	"ARRI LogC4",
	"BMD Film Gen5",
	"Canon Log",
	"Canon Log2",
	"Canon Log3",
	"DaVinci Intermediate",
	"DJI D-Log",
	"Fujifilm F-Log",
	"Fujifilm F-Log2",
	"Gamma 2.2",
	"Gamma 2.4",
	"Nikon N-Log",
	"Panasonic V-Log",
	"RED Log3G10",
	"Sony S-Log3",
	"Apple Log",
}

// clampPreset clamps a preset index to the valid table range.
func clampPreset(p Preset) Preset {
	if p < 0 {
		return 0
	}
	if p >= PresetCount {
		return PresetCount - 1
	}
	return p
}

// MiddleGray returns the middle-gray constant for a preset.
// Out-of-range presets are clamped to the table bounds.
func MiddleGray(p Preset) float32 {
	return middleGrayTable[clampPreset(p)]
}

// String returns the display name of the preset.
// Out-of-range presets are clamped to the table bounds.
func (p Preset) String() string {
	return presetLabels[clampPreset(p)]
}

// PresetLabels returns the display names of all presets in table order.
func PresetLabels() []string {
	labels := make([]string, PresetCount)
	copy(labels, presetLabels[:])
	return labels
}

// PresetByLabel looks up a preset by its display name.
// Matching is case-insensitive. Returns false if no preset matches.
func PresetByLabel(label string) (Preset, bool) {
	for i, l := range presetLabels {
		if strings.EqualFold(l, label) {
			return Preset(i), true
		}
	}
	return 0, false
}
