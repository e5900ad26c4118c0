// Package grade reads and writes grade documents: small YAML files
// describing one tone transform. The CLI loads them for batch renders,
// the preview server serves and hot-reloads them, and FromParams turns
// a live parameter snapshot back into a document for export.
package grade

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrjoshuak/go-splittone/tone"
)

// ErrColorSpace is returned when a document names an unknown input
// encoding.
var ErrColorSpace = errors.New("grade: unknown color space")

// ColorSpace selects the input encoding, either by display label
// ("DaVinci Intermediate") or by numeric table index ("9"). Matching
// is case-insensitive.
type ColorSpace string

// UnmarshalYAML accepts both quoted labels and bare integers, which
// YAML would otherwise refuse to place into a string.
func (c *ColorSpace) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("grade: color_space must be a scalar")
	}
	*c = ColorSpace(value.Value)
	return nil
}

// Preset resolves the color space to a middle-gray preset. An empty
// value resolves to the default, DaVinci Intermediate.
func (c ColorSpace) Preset() (tone.Preset, error) {
	s := strings.TrimSpace(string(c))
	if s == "" {
		return tone.PresetDaVinciIntermediate, nil
	}
	if p, ok := tone.PresetByLabel(s); ok {
		return p, nil
	}
	if idx, err := strconv.Atoi(s); err == nil {
		if idx < 0 || idx >= int(tone.PresetCount) {
			return 0, fmt.Errorf("%w: index %d", ErrColorSpace, idx)
		}
		return tone.Preset(idx), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrColorSpace, s)
}

// Channels holds one exponent per color channel. The json tags carry
// the same field names over the preview websocket.
type Channels struct {
	Red   float32 `yaml:"red" json:"red"`
	Green float32 `yaml:"green" json:"green"`
	Blue  float32 `yaml:"blue" json:"blue"`
}

// UnmarshalYAML defaults omitted channels to the neutral exponent 1,
// so a document can adjust a single channel without spelling out the
// others.
func (c *Channels) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Red   *float32 `yaml:"red"`
		Green *float32 `yaml:"green"`
		Blue  *float32 `yaml:"blue"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Red, c.Green, c.Blue = 1, 1, 1
	if raw.Red != nil {
		c.Red = *raw.Red
	}
	if raw.Green != nil {
		c.Green = *raw.Green
	}
	if raw.Blue != nil {
		c.Blue = *raw.Blue
	}
	return nil
}

// Doc is one grade document. Omitted sections keep their neutral
// defaults: DaVinci Intermediate color space, zero midgray width, unit
// exponents, overlay off.
type Doc struct {
	Name            string     `yaml:"name,omitempty" json:"name,omitempty"`
	ColorSpace      ColorSpace `yaml:"color_space,omitempty" json:"color_space,omitempty"`
	PreserveMidgray float32    `yaml:"preserve_midgray" json:"preserve_midgray"`
	Shadows         *Channels  `yaml:"shadows,omitempty" json:"shadows,omitempty"`
	Highlights      *Channels  `yaml:"highlights,omitempty" json:"highlights,omitempty"`
	ShowCurve       bool       `yaml:"show_curve,omitempty" json:"show_curve,omitempty"`
}

// Params resolves the document into a validated parameter snapshot.
func (d *Doc) Params() (tone.Params, error) {
	preset, err := d.ColorSpace.Preset()
	if err != nil {
		return tone.Params{}, err
	}

	p := tone.Params{
		Preset:          preset,
		PreserveMidgray: d.PreserveMidgray,
		ShadowExp:       exponents(d.Shadows),
		HighlightExp:    exponents(d.Highlights),
		ShowCurve:       d.ShowCurve,
	}
	if err := p.Validate(); err != nil {
		return tone.Params{}, err
	}
	return p, nil
}

func exponents(c *Channels) [3]float32 {
	if c == nil {
		return [3]float32{1, 1, 1}
	}
	return [3]float32{c.Red, c.Green, c.Blue}
}

// FromParams builds a fully specified document from a parameter
// snapshot. The inverse of (*Doc).Params up to label casing.
func FromParams(name string, p tone.Params) *Doc {
	return &Doc{
		Name:            name,
		ColorSpace:      ColorSpace(p.Preset.String()),
		PreserveMidgray: p.PreserveMidgray,
		Shadows:         &Channels{Red: p.ShadowExp[0], Green: p.ShadowExp[1], Blue: p.ShadowExp[2]},
		Highlights:      &Channels{Red: p.HighlightExp[0], Green: p.HighlightExp[1], Blue: p.HighlightExp[2]},
		ShowCurve:       p.ShowCurve,
	}
}

// Decode reads one document from r. Unknown fields are rejected so
// typos in hand-written grades fail loudly instead of silently keeping
// a default. An empty stream decodes to the neutral document.
func Decode(r io.Reader) (*Doc, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Doc
	if err := dec.Decode(&d); err != nil {
		if err == io.EOF {
			return &Doc{}, nil
		}
		return nil, fmt.Errorf("grade: decode: %w", err)
	}
	return &d, nil
}

// Encode writes d to w as YAML.
func Encode(w io.Writer, d *Doc) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Load reads a grade document from a file.
func Load(path string) (*Doc, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Save writes a grade document to a file.
func Save(path string, d *Doc) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
