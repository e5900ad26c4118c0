// splittone applies a three-zone tone curve to a frame.
//
// The curve splits the input range at the middle-gray level of the
// selected input encoding:
//   - shadows (zero to the shadow boundary) get a per-channel power curve
//   - a band around middle gray passes through untouched
//   - highlights (the highlight boundary to one) get a per-channel power curve
//
// Values above 1.0 and the alpha channel always pass through, so HDR
// headroom survives a grade. The zone boundaries follow the selected
// encoding's middle gray and the -preserve width.
//
// Frame formats are chosen by file extension:
//
//	.pfm        portable float map (interchange)
//	.stf        native float frame container (compressed)
//	.j2k, .j2c  lossless HT JPEG 2000 (16-bit)
//	.png        8-bit sRGB proof
//
// Usage:
//
//	splittone [options] infile outfile
//
// Options:
//
//	-grade <file>         grade document (YAML)
//	-preset <name>        input encoding (label or index)
//	-preserve <w>         protected width around middle gray, 0 to 1
//	-shadows r,g,b        shadow exponents, 0.2 to 2
//	-highlights r,g,b     highlight exponents, 0.2 to 2
//	-show-curve           burn the curve plot into the output
//	-lut <file>           write a 1D .cube LUT instead of rendering
//	-lut-size <n>         LUT entry count - default: 1024
//	-workers <n>          render worker count - default: all CPUs
//	-stf-compression <t>  STF compression (none, rle, zip) - default: zip
//	-v                    verbose output
//	-version              show version information
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrjoshuak/go-splittone/frameio"
	"github.com/mrjoshuak/go-splittone/grade"
	"github.com/mrjoshuak/go-splittone/render"
	"github.com/mrjoshuak/go-splittone/tone"
)

const version = "1.0.0"

func main() {
	// Define flags
	gradePath := flag.String("grade", "", "grade document to apply (YAML)")
	presetStr := flag.String("preset", "", "input encoding (label or index)")
	preserve := flag.Float64("preserve", 0, "protected width around middle gray, 0 to 1")
	shadows := flag.String("shadows", "", "shadow exponents r,g,b")
	highlights := flag.String("highlights", "", "highlight exponents r,g,b")
	showCurve := flag.Bool("show-curve", false, "burn the curve plot into the output")
	lutPath := flag.String("lut", "", "write a 1D .cube LUT instead of rendering")
	lutSize := flag.Int("lut-size", 1024, "LUT entry count")
	workers := flag.Int("workers", 0, "render worker count (0 = all CPUs)")
	stfStr := flag.String("stf-compression", "zip", "STF compression (none, rle, zip)")
	verbose := flag.Bool("v", false, "verbose output")
	showVersion := flag.Bool("version", false, "show version information")

	// Custom usage function
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: splittone [options] infile outfile\n\n")
		fmt.Fprintf(os.Stderr, "Apply a three-zone tone curve to a frame.\n\n")
		fmt.Fprintf(os.Stderr, "The curve splits the input range at the middle-gray level of the\n")
		fmt.Fprintf(os.Stderr, "selected input encoding: shadows and highlights get per-channel\n")
		fmt.Fprintf(os.Stderr, "power curves while a band around middle gray passes through\n")
		fmt.Fprintf(os.Stderr, "untouched. Frame formats are chosen by file extension:\n")
		fmt.Fprintf(os.Stderr, "  .pfm .stf .j2k .j2c .png\n\n")
		fmt.Fprintf(os.Stderr, "Flags override values from a -grade document.\n\n")
		fmt.Fprintf(os.Stderr, "Input encodings:\n")
		for i, label := range tone.PresetLabels() {
			fmt.Fprintf(os.Stderr, "  %2d  %s\n", i, label)
		}
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	// Handle version request
	if *showVersion {
		fmt.Printf("splittone version %s\n", version)
		fmt.Println("Part of go-splittone - https://github.com/mrjoshuak/go-splittone")
		os.Exit(0)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	// Flags beat the grade document, but only the ones actually given.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	params, err := buildParams(*gradePath, set, *presetStr, *preserve, *shadows, *highlights, *showCurve)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *workers > 0 {
		cfg := render.DefaultParallelConfig()
		cfg.NumWorkers = *workers
		render.SetParallelConfig(cfg)
	}

	// LUT export needs no frames
	if *lutPath != "" {
		if err := writeLUT(*lutPath, params, *lutSize); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Get positional arguments
	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}

	stf, ok := frameio.STFCompressionByName(*stfStr)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: invalid STF compression type: %s\n", *stfStr)
		fmt.Fprintf(os.Stderr, "Valid options are: none, rle, zip\n")
		os.Exit(1)
	}

	if err := run(args[0], args[1], params, stf); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildParams resolves the grade document (when given) and applies the
// explicitly passed flag overrides on top.
func buildParams(gradePath string, set map[string]bool, presetStr string, preserve float64, shadows, highlights string, showCurve bool) (tone.Params, error) {
	p := tone.DefaultParams()
	if gradePath != "" {
		doc, err := grade.Load(gradePath)
		if err != nil {
			return p, fmt.Errorf("cannot load grade: %w", err)
		}
		p, err = doc.Params()
		if err != nil {
			return p, fmt.Errorf("cannot resolve grade: %w", err)
		}
	}

	if set["preset"] {
		preset, err := grade.ColorSpace(presetStr).Preset()
		if err != nil {
			return p, err
		}
		p.Preset = preset
	}
	if set["preserve"] {
		p.PreserveMidgray = float32(preserve)
	}
	if set["shadows"] {
		exp, err := parseExponents(shadows)
		if err != nil {
			return p, fmt.Errorf("invalid -shadows: %w", err)
		}
		p.ShadowExp = exp
	}
	if set["highlights"] {
		exp, err := parseExponents(highlights)
		if err != nil {
			return p, fmt.Errorf("invalid -highlights: %w", err)
		}
		p.HighlightExp = exp
	}
	if set["show-curve"] {
		p.ShowCurve = showCurve
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// parseExponents parses a "r,g,b" exponent triple.
func parseExponents(s string) ([3]float32, error) {
	var exp [3]float32
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return exp, fmt.Errorf("want three comma-separated values, got %q", s)
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return exp, fmt.Errorf("bad exponent %q", part)
		}
		exp[i] = float32(v)
	}
	return exp, nil
}

func writeLUT(path string, p tone.Params, size int) error {
	log.Info().Str("path", path).Int("size", size).Msg("writing LUT")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create LUT file: %w", err)
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := grade.WriteCube(f, title, p, size); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("cannot write LUT: %w", err)
	}
	return f.Close()
}

func run(inPath, outPath string, p tone.Params, stf frameio.STFCompression) error {
	start := time.Now()

	log.Info().Str("path", inPath).Msg("reading frame")
	src, err := frameio.ReadFrame(inPath)
	if err != nil {
		return fmt.Errorf("cannot read input frame: %w", err)
	}

	bounds := src.Bounds()
	log.Info().
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Str("preset", p.Preset.String()).
		Bool("identity", p.IsIdentity()).
		Msg("rendering")

	dst := render.NewFrame(bounds)
	if err := render.Grade(dst, src, p); err != nil {
		return fmt.Errorf("cannot render frame: %w", err)
	}

	if err := writeFrame(outPath, dst, stf); err != nil {
		return fmt.Errorf("cannot write output frame: %w", err)
	}

	log.Info().Dur("elapsed", time.Since(start)).Str("path", outPath).Msg("done")
	return nil
}

// writeFrame writes through the extension dispatch, except that an
// explicit STF compression choice bypasses the .stf default.
func writeFrame(path string, f *render.Frame, stf frameio.STFCompression) error {
	if strings.ToLower(filepath.Ext(path)) != ".stf" || stf == frameio.STFZip {
		return frameio.WriteFrame(path, f)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := frameio.WriteSTF(out, f, stf); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}
