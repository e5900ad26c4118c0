// Package frameio reads and writes float frames in the formats the
// grading tools exchange: PFM for interchange with other float imaging
// tools, the native STF container for lossless intermediates, HT JPEG
// 2000 codestreams for compact 16-bit stills, and PNG for 8-bit proofs.
//
// All formats move pixels in and out of render.Frame. ReadFrame and
// WriteFrame pick the codec from the file extension; the per-format
// functions operate on streams.
package frameio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrjoshuak/go-splittone/render"
)

// ErrUnknownFormat is returned when a path has no recognized extension.
var ErrUnknownFormat = errors.New("frameio: unknown frame format")

// maxFrameDimension bounds decoded frame sizes so corrupt headers
// cannot drive huge allocations.
const maxFrameDimension = 1 << 20

// ReadFrame loads a frame from path, picking the codec from the file
// extension (.pfm, .stf, .j2k/.j2c, .png).
func ReadFrame(path string) (*render.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pfm":
		return ReadPFM(f)
	case ".stf":
		return ReadSTF(f)
	case ".j2k", ".j2c":
		return ReadJ2K(f)
	case ".png":
		return ReadPNG(f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// WriteFrame stores a frame at path, picking the codec from the file
// extension. STF output uses Zip compression at the default level;
// callers that need a specific mode use WriteSTF directly.
func WriteFrame(path string, frame *render.Frame) error {
	ext := strings.ToLower(filepath.Ext(path))

	var write func(*os.File) error
	switch ext {
	case ".pfm":
		write = func(f *os.File) error { return WritePFM(f, frame) }
	case ".stf":
		write = func(f *os.File) error { return WriteSTF(f, frame, STFZip) }
	case ".j2k", ".j2c":
		write = func(f *os.File) error { return WriteJ2K(f, frame) }
	case ".png":
		write = func(f *os.File) error { return WritePNG(f, frame) }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
