// Package bytesplit reorders frame payload bytes into per-position planes.
//
// Frame payloads are little-endian float32 streams. The sign/exponent
// byte of neighboring pixels is strongly correlated while the low
// mantissa bytes are close to noise, so grouping each byte position
// into its own plane gives the delta predictor and the entropy coder
// much more regular input than the interleaved stream:
//
//	Input:  [a0,a1,a2,a3, b0,b1,b2,b3]  (2 float32 values)
//	Output: [a0,b0, a1,b1, a2,b2, a3,b3] (4 planes of 2 bytes)
//
// Plane p of a split buffer is out[p*n : (p+1)*n] where n is the
// element count, so callers can compress planes independently without
// copying.
package bytesplit

// Split groups every stride-th byte of data into contiguous planes.
// The output buffer must be the same size as data; if out is nil, a
// new buffer is allocated. Trailing bytes of a short final element are
// copied through unchanged.
func Split(data []byte, stride int, out []byte) []byte {
	if len(data) == 0 || stride <= 1 {
		if out == nil {
			out = make([]byte, len(data))
		}
		copy(out, data)
		return out
	}

	n := len(data) / stride
	remainder := len(data) % stride

	if out == nil {
		out = make([]byte, len(data))
	}

	for p := 0; p < stride; p++ {
		plane := out[p*n : (p+1)*n]
		src := p
		for i := range plane {
			plane[i] = data[src]
			src += stride
		}
	}

	if remainder > 0 {
		copy(out[stride*n:], data[stride*n:])
	}

	return out
}

// Unsplit restores the interleaved byte order from plane-grouped data.
// The output buffer must be the same size as data; if out is nil, a
// new buffer is allocated.
func Unsplit(data []byte, stride int, out []byte) []byte {
	if len(data) == 0 || stride <= 1 {
		if out == nil {
			out = make([]byte, len(data))
		}
		copy(out, data)
		return out
	}

	n := len(data) / stride
	remainder := len(data) % stride

	if out == nil {
		out = make([]byte, len(data))
	}

	for p := 0; p < stride; p++ {
		plane := data[p*n : (p+1)*n]
		dst := p
		for _, b := range plane {
			out[dst] = b
			dst += stride
		}
	}

	if remainder > 0 {
		copy(out[stride*n:], data[stride*n:])
	}

	return out
}
