package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/arloliu/ebmlkit/errs"
)

// Epoch is the Matroska date origin. Date elements store a signed 64-bit
// count of nanoseconds relative to it.
var Epoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// UintSize returns the minimum number of bytes needed to encode v as a
// big-endian unsigned integer. Zero encodes in one byte; an empty payload is
// also decoded as zero, but the canonical encoding of an explicit element
// keeps at least one byte.
func UintSize(v uint64) int {
	size := 1
	for v >>= 8; v != 0; v >>= 8 {
		size++
	}

	return size
}

// IntSize returns the minimum number of bytes needed to encode v as a
// big-endian two's complement integer.
func IntSize(v int64) int {
	for size := 1; size < 8; size++ {
		min := -(int64(1) << (8*size - 1))
		max := int64(1)<<(8*size-1) - 1
		if v >= min && v <= max {
			return size
		}
	}

	return 8
}

// AppendUint appends v big-endian in exactly size bytes. size must be large
// enough per UintSize; leading bytes are zero when size exceeds the minimum.
func AppendUint(dst []byte, v uint64, size int) []byte {
	for i := size - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>(8*i)))
	}

	return dst
}

// DecodeUint decodes a 0- to 8-byte big-endian unsigned integer. Empty data
// decodes to 0.
func DecodeUint(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}

	return v
}

// AppendInt appends v as big-endian two's complement in exactly size bytes.
func AppendInt(dst []byte, v int64, size int) []byte {
	return AppendUint(dst, uint64(v), size)
}

// DecodeInt decodes a 0- to 8-byte big-endian two's complement integer.
// Empty data decodes to 0.
func DecodeInt(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}
	v := DecodeUint(data)
	// Sign-extend from the encoded width.
	shift := uint(64 - 8*len(data))

	return int64(v<<shift) >> shift
}

// DecodeFloat decodes an IEEE-754 big-endian float of 0, 4 or 8 bytes.
// Empty data decodes to 0.0; any other width fails with
// errs.ErrInvalidFloatSize.
func DecodeFloat(data []byte) (float64, error) {
	switch len(data) {
	case 0:
		return 0, nil
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	default:
		return 0, fmt.Errorf("%w: %d bytes", errs.ErrInvalidFloatSize, len(data))
	}
}

// AppendFloat appends v as an IEEE-754 big-endian float of 4 or 8 bytes.
func AppendFloat(dst []byte, v float64, size int) ([]byte, error) {
	switch size {
	case 4:
		return binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v))), nil
	case 8:
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(v)), nil
	default:
		return dst, fmt.Errorf("%w: %d bytes", errs.ErrInvalidFloatSize, size)
	}
}

// DecodeString decodes an ASCII string payload, stripping trailing NUL
// padding.
func DecodeString(data []byte) string {
	return string(bytes.TrimRight(data, "\x00"))
}

// DecodeUTF8 decodes a UTF-8 string payload, stripping trailing NUL padding.
// Invalid sequences fail with errs.ErrInvalidUTF8.
func DecodeUTF8(data []byte) (string, error) {
	s := string(bytes.TrimRight(data, "\x00"))
	if !utf8.ValidString(s) {
		return "", errs.ErrInvalidUTF8
	}

	return s, nil
}

// AppendString appends s padded with NUL bytes to exactly size bytes. size
// must be at least len(s).
func AppendString(dst []byte, s string, size int) []byte {
	dst = append(dst, s...)
	for i := len(s); i < size; i++ {
		dst = append(dst, 0)
	}

	return dst
}

// DecodeDate decodes a Date payload: 8 bytes of signed nanoseconds relative
// to Epoch, or 0 bytes meaning the epoch itself. Any other width fails with
// errs.ErrInvalidDateSize.
func DecodeDate(data []byte) (time.Time, error) {
	switch len(data) {
	case 0:
		return Epoch, nil
	case 8:
		return Epoch.Add(time.Duration(DecodeInt(data))), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %d bytes", errs.ErrInvalidDateSize, len(data))
	}
}

// AppendDate appends t as 8 bytes of signed nanoseconds relative to Epoch.
func AppendDate(dst []byte, t time.Time) []byte {
	return AppendInt(dst, t.Sub(Epoch).Nanoseconds(), 8)
}

// HexBytes formats a byte string as colon-separated hex pairs, the form used
// for element IDs and UIDs in summaries.
func HexBytes(data []byte) string {
	var sb bytes.Buffer
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}

	return sb.String()
}
