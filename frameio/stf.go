package frameio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"github.com/mrjoshuak/go-splittone/internal/bytesplit"
	"github.com/mrjoshuak/go-splittone/internal/predictor"
	"github.com/mrjoshuak/go-splittone/render"
)

// STF codec errors
var (
	ErrSTFMagic     = errors.New("frameio: not an STF stream")
	ErrSTFCorrupted = errors.New("frameio: corrupted STF data")
)

// STFCompression selects how an STF payload is encoded.
type STFCompression uint8

const (
	// STFNone stores raw interleaved float32 data.
	STFNone STFCompression = iota
	// STFRLE delta-codes each byte plane and run-length encodes it.
	STFRLE
	// STFZip delta-codes each byte plane and compresses it with zlib.
	STFZip
)

// String returns the lowercase name used in headers and CLI flags.
func (c STFCompression) String() string {
	switch c {
	case STFNone:
		return "none"
	case STFRLE:
		return "rle"
	case STFZip:
		return "zip"
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// STFCompressionByName resolves a compression name, case-insensitively.
func STFCompressionByName(name string) (STFCompression, bool) {
	switch strings.ToLower(name) {
	case "none":
		return STFNone, true
	case "rle":
		return STFRLE, true
	case "zip":
		return STFZip, true
	}
	return 0, false
}

// STF is a little-endian container for one float32 RGBA frame.
//
// Layout:
//
//	offset size  field
//	0      4     magic "STF1"
//	4      4     width (uint32)
//	8      4     height (uint32)
//	12     4     channels (uint32, always 4)
//	16     4     minX (int32)
//	20     4     minY (int32)
//	24     1     compression mode (uint8)
//	25     1     zlib level (int8, informational)
//	26     2     reserved (zero)
//	28     16    plane lengths (4 x uint32)
//	44     ...   plane payloads, in order
//
// With no compression the whole interleaved payload sits in plane 0.
// Otherwise the payload is split into four byte planes (byte k of
// every float32 lands in plane k), each plane is delta coded, and each
// is compressed independently so codecs can run one goroutine per
// plane. minX and minY preserve the frame's bounds offset.
const (
	stfMagic      = "STF1"
	stfHeaderSize = 44
	stfChannels   = 4
	stfPlanes     = 4
)

// WriteSTF encodes f to w using the given compression mode. Zip mode
// compresses at the default zlib level.
func WriteSTF(w io.Writer, f *render.Frame, c STFCompression) error {
	return WriteSTFLevel(w, f, c, CompressionLevelDefault)
}

// WriteSTFLevel encodes f to w, compressing Zip-mode planes at the
// given zlib level. The level is ignored for the other modes.
func WriteSTFLevel(w io.Writer, f *render.Frame, c STFCompression, level CompressionLevel) error {
	if f == nil {
		return render.ErrNilFrame
	}
	if c > STFZip {
		return fmt.Errorf("frameio: invalid STF compression mode %d", c)
	}

	width := f.Rect.Dx()
	height := f.Rect.Dy()
	payloadLen := width * height * stfChannels * 4

	var header [stfHeaderSize]byte
	copy(header[0:4], stfMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(width))
	binary.LittleEndian.PutUint32(header[8:12], uint32(height))
	binary.LittleEndian.PutUint32(header[12:16], stfChannels)
	binary.LittleEndian.PutUint32(header[16:20], uint32(int32(f.Rect.Min.X)))
	binary.LittleEndian.PutUint32(header[20:24], uint32(int32(f.Rect.Min.Y)))
	header[24] = byte(c)
	header[25] = byte(int8(level))

	if payloadLen == 0 {
		_, err := w.Write(header[:])
		return err
	}

	payload, err := GetBufferWithError(payloadLen)
	if err != nil {
		return err
	}
	defer PutBuffer(payload)
	for i, v := range f.Pix {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}

	if c == STFNone {
		binary.LittleEndian.PutUint32(header[28:32], uint32(payloadLen))
		if _, err := w.Write(header[:]); err != nil {
			return err
		}
		_, err := w.Write(payload)
		return err
	}

	split, err := GetBufferWithError(payloadLen)
	if err != nil {
		return err
	}
	defer PutBuffer(split)
	bytesplit.Split(payload, stfPlanes, split)

	// Delta code and compress each byte plane on its own goroutine.
	// The planes are disjoint subslices, so in-place coding is safe.
	n := payloadLen / stfPlanes
	planes, err := render.ParallelChunkProcess(stfPlanes, func(idx int) ([]byte, error) {
		plane := split[idx*n : (idx+1)*n]
		predictor.Encode(plane)
		switch c {
		case STFRLE:
			return RLECompress(plane), nil
		default:
			return ZIPCompressLevel(plane, level)
		}
	})
	if err != nil {
		return err
	}

	for p, plane := range planes {
		binary.LittleEndian.PutUint32(header[28+p*4:], uint32(len(plane)))
	}
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	for _, plane := range planes {
		if _, err := w.Write(plane); err != nil {
			return err
		}
	}
	return nil
}

// ReadSTF decodes an STF stream into a frame, restoring the bounds
// offset recorded in the header.
func ReadSTF(r io.Reader) (*render.Frame, error) {
	var header [stfHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrSTFMagic
		}
		return nil, err
	}
	if string(header[0:4]) != stfMagic {
		return nil, ErrSTFMagic
	}

	width := int(binary.LittleEndian.Uint32(header[4:8]))
	height := int(binary.LittleEndian.Uint32(header[8:12]))
	channels := binary.LittleEndian.Uint32(header[12:16])
	minX := int(int32(binary.LittleEndian.Uint32(header[16:20])))
	minY := int(int32(binary.LittleEndian.Uint32(header[20:24])))
	mode := STFCompression(header[24])

	if channels != stfChannels || mode > STFZip {
		return nil, ErrSTFCorrupted
	}
	if width < 0 || height < 0 || width > maxFrameDimension || height > maxFrameDimension {
		return nil, ErrSTFCorrupted
	}

	var planeLens [stfPlanes]int
	for p := range planeLens {
		planeLens[p] = int(binary.LittleEndian.Uint32(header[28+p*4:]))
	}

	frame := render.NewFrame(image.Rect(minX, minY, minX+width, minY+height))
	payloadLen := width * height * stfChannels * 4
	if payloadLen == 0 {
		for _, l := range planeLens {
			if l != 0 {
				return nil, ErrSTFCorrupted
			}
		}
		return frame, nil
	}

	if mode == STFNone {
		if planeLens[0] != payloadLen || planeLens[1] != 0 || planeLens[2] != 0 || planeLens[3] != 0 {
			return nil, ErrSTFCorrupted
		}
		payload, err := GetBufferWithError(payloadLen)
		if err != nil {
			return nil, err
		}
		defer PutBuffer(payload)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, ErrSTFCorrupted
		}
		payloadToPix(payload, frame.Pix)
		return frame, nil
	}

	// Compressed planes can exceed the raw size only marginally, so a
	// huge length is a corrupt header rather than a dense plane.
	n := payloadLen / stfPlanes
	for _, l := range planeLens {
		if l == 0 || l > 2*n+64 {
			return nil, ErrSTFCorrupted
		}
	}

	compressed := make([][]byte, stfPlanes)
	for p := range compressed {
		buf, err := GetBufferWithError(planeLens[p])
		if err != nil {
			return nil, err
		}
		defer PutBuffer(buf)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, ErrSTFCorrupted
		}
		compressed[p] = buf
	}

	split, err := GetBufferWithError(payloadLen)
	if err != nil {
		return nil, err
	}
	defer PutBuffer(split)

	err = render.ParallelForWithError(stfPlanes, func(idx int) error {
		plane := split[idx*n : (idx+1)*n]
		switch mode {
		case STFRLE:
			if err := RLEDecompressTo(compressed[idx], plane); err != nil {
				return err
			}
		default:
			if err := ZIPDecompressTo(plane, compressed[idx]); err != nil {
				return err
			}
		}
		predictor.Decode(plane)
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload, err := GetBufferWithError(payloadLen)
	if err != nil {
		return nil, err
	}
	defer PutBuffer(payload)
	bytesplit.Unsplit(split, stfPlanes, payload)
	payloadToPix(payload, frame.Pix)
	return frame, nil
}

func payloadToPix(payload []byte, pix []float32) {
	for i := range pix {
		pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
}
