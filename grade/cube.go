package grade

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-splittone/tone"
)

// Cube size limits per the Resolve .cube format.
const (
	MinCubeSize = 2
	MaxCubeSize = 65536
)

// ErrCubeSize is returned for LUT sizes outside [2, 65536].
var ErrCubeSize = errors.New("grade: cube size out of range [2,65536]")

// WriteCube samples the tone curve into a 1D .cube LUT with the given
// number of entries. Inputs are sampled uniformly over [0,1]; values
// above 1.0 are outside the LUT domain, where the transform is an
// identity anyway. The overlay flag has no effect on the samples.
func WriteCube(w io.Writer, title string, p tone.Params, size int) error {
	if size < MinCubeSize || size > MaxCubeSize {
		return fmt.Errorf("%w: %d", ErrCubeSize, size)
	}

	bw := bufio.NewWriter(w)
	if title != "" {
		fmt.Fprintf(bw, "TITLE %q\n", title)
	}
	fmt.Fprintf(bw, "LUT_1D_SIZE %d\n", size)

	b := p.Boundaries()
	step := 1 / float32(size-1)
	for i := 0; i < size; i++ {
		x := float32(i) * step
		if i == size-1 {
			x = 1 // step is rounded, so the product can miss 1 slightly
		}
		r := p.ApplyCurve(x, b, 0)
		g := p.ApplyCurve(x, b, 1)
		bch := p.ApplyCurve(x, b, 2)
		fmt.Fprintf(bw, "%.6f %.6f %.6f\n", r, g, bch)
	}

	return bw.Flush()
}
