package predictor

import (
	"bytes"
	"testing"
)

func TestEncodeEmpty(t *testing.T) {
	// Empty and single-byte data should be unchanged
	data := []byte{}
	Encode(data)
	if len(data) != 0 {
		t.Error("Empty slice should remain empty")
	}

	data = []byte{42}
	Encode(data)
	if data[0] != 42 {
		t.Errorf("Single byte = %d, want 42", data[0])
	}
}

func TestDecodeEmpty(t *testing.T) {
	data := []byte{}
	Decode(data)
	if len(data) != 0 {
		t.Error("Empty slice should remain empty")
	}

	data = []byte{42}
	Decode(data)
	if data[0] != 42 {
		t.Errorf("Single byte = %d, want 42", data[0])
	}
}

func TestEncodeConstant(t *testing.T) {
	// A constant run becomes the seed followed by zeros, the best case
	// for the entropy coder downstream.
	data := []byte{5, 5, 5, 5}
	Encode(data)
	expected := []byte{5, 0, 0, 0}
	if !bytes.Equal(data, expected) {
		t.Errorf("Encode constant = %v, want %v", data, expected)
	}
}

func TestDecodeConstant(t *testing.T) {
	data := []byte{5, 0, 0, 0}
	Decode(data)
	expected := []byte{5, 5, 5, 5}
	if !bytes.Equal(data, expected) {
		t.Errorf("Decode constant = %v, want %v", data, expected)
	}
}

func TestEncodeIncreasing(t *testing.T) {
	data := []byte{10, 11, 12, 13, 14}
	Encode(data)
	expected := []byte{10, 1, 1, 1, 1}
	if !bytes.Equal(data, expected) {
		t.Errorf("Encode increasing = %v, want %v", data, expected)
	}
}

func TestDecodeIncreasing(t *testing.T) {
	data := []byte{10, 1, 1, 1, 1}
	Decode(data)
	expected := []byte{10, 11, 12, 13, 14}
	if !bytes.Equal(data, expected) {
		t.Errorf("Decode increasing = %v, want %v", data, expected)
	}
}

func TestEncodeUnderflow(t *testing.T) {
	// Differences wrap modulo 256
	data := []byte{10, 5, 2}
	Encode(data)
	// 5 - 10 = -5 = 251, 2 - 5 = -3 = 253
	expected := []byte{10, 251, 253}
	if !bytes.Equal(data, expected) {
		t.Errorf("Encode underflow = %v, want %v", data, expected)
	}

	Decode(data)
	if data[0] != 10 || data[1] != 5 || data[2] != 2 {
		t.Errorf("Decode after underflow = %v, want [10, 5, 2]", data)
	}
}

func TestRoundTrip(t *testing.T) {
	// Sizes straddling the unrolled chunk boundary
	for _, n := range []int{2, 7, 8, 9, 15, 16, 17, 100, 1023} {
		original := make([]byte, n)
		for i := range original {
			original[i] = byte(i*37 + 11)
		}

		data := make([]byte, n)
		copy(data, original)

		Encode(data)
		Decode(data)

		if !bytes.Equal(data, original) {
			t.Errorf("Round trip failed for size %d", n)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	// One 1920x1080 RGBA float32 frame
	data := make([]byte, 1920*1080*4*4)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		Encode(data)
	}
}

func BenchmarkDecode(b *testing.B) {
	data := make([]byte, 1920*1080*4*4)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		Decode(data)
	}
}
