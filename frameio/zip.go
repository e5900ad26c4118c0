package frameio

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// ZIP codec errors
var (
	ErrZIPCorrupted = errors.New("frameio: corrupted ZIP data")
	ErrZIPOverflow  = errors.New("frameio: ZIP decompressed size overflow")
)

// CompressionLevel represents a zlib compression level.
// Valid values are -2 to 9, where:
//   - -2: Huffman-only compression (klauspost extension)
//   - -1: Default compression (level 6)
//   - 0: No compression (store)
//   - 1: Best speed
//   - 9: Best compression
type CompressionLevel int

// Standard compression levels
const (
	CompressionLevelHuffmanOnly CompressionLevel = -2 // Huffman-only (fastest, klauspost)
	CompressionLevelDefault     CompressionLevel = -1 // Default (level 6)
	CompressionLevelNone        CompressionLevel = 0  // No compression
	CompressionLevelBestSpeed   CompressionLevel = 1  // Best speed
	CompressionLevelBestSize    CompressionLevel = 9  // Best compression
)

// Pool for zlib writers to reduce allocations.
// Each pooled item carries both the writer and its destination buffer.
type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// ZIPCompress compresses a byte plane with zlib at the default level.
//
// This is only the entropy stage of the Zip pipeline. Delta coding and
// byte splitting happen in the caller before the plane arrives here.
func ZIPCompress(src []byte) ([]byte, error) {
	return ZIPCompressLevel(src, CompressionLevelDefault)
}

// ZIPCompressLevel compresses a byte plane at the given level.
// Level should be -2 to 9:
//   - -2: Huffman-only (fastest, klauspost extension)
//   - -1: Default compression (level 6)
//   - 0: No compression
//   - 1-9: Increasing compression (1=fastest, 9=best)
func ZIPCompressLevel(src []byte, level CompressionLevel) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	// Use the pool for the default level (most common case)
	if level == CompressionLevelDefault {
		item := zlibWriterPool.Get().(*zlibWriterPoolItem)
		item.buf.Reset()
		item.writer.Reset(item.buf)

		if _, err := item.writer.Write(src); err != nil {
			item.writer.Close()
			zlibWriterPool.Put(item)
			return nil, err
		}

		if err := item.writer.Close(); err != nil {
			zlibWriterPool.Put(item)
			return nil, err
		}

		result := make([]byte, item.buf.Len())
		copy(result, item.buf.Bytes())
		zlibWriterPool.Put(item)

		return result, nil
	}

	// Non-default level: create a temporary writer
	buf := new(bytes.Buffer)
	w, err := zlib.NewWriterLevel(buf, int(level))
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// zlibReaderPoolItem wraps a zlib reader for pooling
type zlibReaderPoolItem struct {
	reader io.ReadCloser
	srcBuf *bytes.Reader
}

var zlibReaderPool = sync.Pool{
	New: func() any {
		return &zlibReaderPoolItem{
			srcBuf: bytes.NewReader(nil),
		}
	},
}

// ZIPDecompress decompresses a zlib plane.
// The expectedSize parameter is the expected decompressed size.
func ZIPDecompress(src []byte, expectedSize int) ([]byte, error) {
	if len(src) == 0 && expectedSize == 0 {
		return nil, nil
	}

	dst := make([]byte, expectedSize)
	if err := ZIPDecompressTo(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// ZIPDecompressTo decompresses a zlib plane into the provided buffer.
// The dst buffer must be exactly the decompressed size; a stream that
// stops short returns ErrZIPCorrupted and one that keeps going returns
// ErrZIPOverflow.
func ZIPDecompressTo(dst, src []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return ErrZIPCorrupted
		}
		return nil
	}

	item := zlibReaderPool.Get().(*zlibReaderPoolItem)
	item.srcBuf.Reset(src)

	var err error
	if item.reader == nil {
		item.reader, err = zlib.NewReader(item.srcBuf)
		if err != nil {
			zlibReaderPool.Put(item)
			return ErrZIPCorrupted
		}
	} else {
		// Reset the pooled reader via the zlib.Resetter interface
		if resetter, ok := item.reader.(zlib.Resetter); ok {
			err = resetter.Reset(item.srcBuf, nil)
			if err != nil {
				item.reader.Close()
				item.reader, err = zlib.NewReader(item.srcBuf)
				if err != nil {
					zlibReaderPool.Put(item)
					return ErrZIPCorrupted
				}
			}
		} else {
			item.reader.Close()
			item.reader, err = zlib.NewReader(item.srcBuf)
			if err != nil {
				zlibReaderPool.Put(item)
				return ErrZIPCorrupted
			}
		}
	}

	n, err := io.ReadFull(item.reader, dst)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		zlibReaderPool.Put(item)
		return ErrZIPCorrupted
	}
	if n != len(dst) {
		zlibReaderPool.Put(item)
		return ErrZIPCorrupted
	}

	// A stream that continues past the expected size belongs to some
	// other plane geometry.
	var extra [1]byte
	if m, _ := item.reader.Read(extra[:]); m != 0 {
		zlibReaderPool.Put(item)
		return ErrZIPOverflow
	}

	zlibReaderPool.Put(item)
	return nil
}
