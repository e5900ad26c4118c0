// Package predictor implements byte-wise delta coding for frame payloads.
//
// Pixel bytes within a plane drift slowly across a frame, so storing each
// byte as the difference from its predecessor concentrates values around
// zero and makes the downstream entropy coder far more effective. The
// transform is exact: arithmetic is modulo 256 in both directions.
package predictor

// Encode replaces each byte with the difference from its predecessor,
// in place. The first byte is kept as the seed.
func Encode(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}

	// Work backwards so each source byte is still intact when read.
	// Unrolled by 8 for pipelining.
	i := n - 1
	for ; i >= 8; i -= 8 {
		data[i] = data[i] - data[i-1]
		data[i-1] = data[i-1] - data[i-2]
		data[i-2] = data[i-2] - data[i-3]
		data[i-3] = data[i-3] - data[i-4]
		data[i-4] = data[i-4] - data[i-5]
		data[i-5] = data[i-5] - data[i-6]
		data[i-6] = data[i-6] - data[i-7]
		data[i-7] = data[i-7] - data[i-8]
	}

	for ; i >= 1; i-- {
		data[i] = data[i] - data[i-1]
	}
}

// Decode reverses delta coding in place, turning each stored difference
// back into an absolute value by summing from the seed byte forward.
func Decode(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}

	i := 1
	for ; i+7 < n; i += 8 {
		data[i] = data[i] + data[i-1]
		data[i+1] = data[i+1] + data[i]
		data[i+2] = data[i+2] + data[i+1]
		data[i+3] = data[i+3] + data[i+2]
		data[i+4] = data[i+4] + data[i+3]
		data[i+5] = data[i+5] + data[i+4]
		data[i+6] = data[i+6] + data[i+5]
		data[i+7] = data[i+7] + data[i+6]
	}

	for ; i < n; i++ {
		data[i] = data[i] + data[i-1]
	}
}
