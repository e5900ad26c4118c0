package frameio

import (
	"errors"
)

// RLE codec errors
var (
	ErrRLECorrupted = errors.New("frameio: corrupted RLE data")
	ErrRLEOverflow  = errors.New("frameio: RLE decompressed size overflow")
)

const (
	// rleMinRunLength is the shortest run worth encoding
	rleMinRunLength = 3
	// rleMaxRunLength is the longest run a count byte can express
	rleMaxRunLength = 127
)

// RLECompress run-length encodes a byte plane.
//
// The encoding uses signed count bytes:
//   - Negative count (-n): the next byte is repeated (n+1) times (run)
//   - Positive count (+n): the next (n+1) bytes are copied literally
//
// For example:
//
//	[A, A, A, A, B, C, D] -> [-3, A, 2, B, C, D]
//	(4 copies of A, then 3 literal bytes B, C, D)
//
// Delta-coded sign and exponent planes are dominated by zero runs,
// which is what makes this worthwhile despite its simplicity.
func RLECompress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}

	// Worst case: incompressible pairs cost a count byte each
	dst := make([]byte, 0, len(src)+len(src)/2)

	i := 0
	for i < len(src) {
		// Measure the run starting here
		val := src[i]
		runEnd := i + 1
		for runEnd < len(src) && src[runEnd] == val && runEnd-i < rleMaxRunLength {
			runEnd++
		}
		runLength := runEnd - i

		if runLength >= rleMinRunLength {
			dst = append(dst, byte(-(runLength - 1)), val)
			i = runEnd
			continue
		}

		// Accumulate literals until a worthwhile run starts
		literalStart := i
		for i < len(src) && i-literalStart < rleMaxRunLength {
			if i+rleMinRunLength <= len(src) {
				val := src[i]
				if src[i+1] == val && src[i+2] == val {
					break
				}
			}
			i++
		}

		literalLength := i - literalStart
		if literalLength > 0 {
			dst = append(dst, byte(literalLength-1))
			dst = append(dst, src[literalStart:i]...)
		}
	}

	return dst
}

// RLEDecompressTo decodes RLE data into a pre-allocated buffer whose
// length is the expected decoded size. This avoids allocation when
// called repeatedly across planes.
func RLEDecompressTo(src []byte, dst []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return ErrRLECorrupted
		}
		return nil
	}

	dstPos := 0
	expectedSize := len(dst)

	i := 0
	for i < len(src) {
		count := int(int8(src[i]))
		i++

		if count < 0 {
			// Run: repeat the next byte (-count + 1) times
			runLength := -count + 1
			if i >= len(src) {
				return ErrRLECorrupted
			}
			if dstPos+runLength > expectedSize {
				return ErrRLEOverflow
			}
			val := src[i]
			i++
			for end := dstPos + runLength; dstPos < end; dstPos++ {
				dst[dstPos] = val
			}
		} else {
			// Literal: copy the next (count + 1) bytes
			literalLength := count + 1
			if i+literalLength > len(src) {
				return ErrRLECorrupted
			}
			if dstPos+literalLength > expectedSize {
				return ErrRLEOverflow
			}
			copy(dst[dstPos:], src[i:i+literalLength])
			dstPos += literalLength
			i += literalLength
		}
	}

	if dstPos != expectedSize {
		return ErrRLECorrupted
	}

	return nil
}

// RLEDecompress decodes RLE data. expectedSize is the decoded size,
// used to allocate the output and validate the stream against it.
func RLEDecompress(src []byte, expectedSize int) ([]byte, error) {
	if len(src) == 0 && expectedSize == 0 {
		return nil, nil
	}

	dst := make([]byte, expectedSize)
	if err := RLEDecompressTo(src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
