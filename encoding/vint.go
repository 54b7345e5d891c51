package encoding

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/arloliu/ebmlkit/errs"
)

// MaxVintWidth is the widest EBML variable-length integer this package
// handles, for both element data sizes and (capped at MaxIDWidth) element IDs.
const MaxVintWidth = 8

// MaxIDWidth is the widest encoded element ID the Matroska document type
// permits.
const MaxIDWidth = 4

// MaxDataSize is the largest data size encodable as an 8-byte VINT. The
// all-ones payload one above it is the reserved "unknown size" marker.
const MaxDataSize = uint64(1)<<(7*MaxVintWidth) - 2

// VintWidth returns the minimum number of bytes needed to encode v as a
// VINT, or 0 if v exceeds MaxDataSize.
//
// Each VINT byte carries 7 value bits; the all-ones payload per width is
// reserved, so width w holds values up to 2^(7w)-2.
func VintWidth(v uint64) int {
	for w := 1; w <= MaxVintWidth; w++ {
		if v < uint64(1)<<(7*w)-1 {
			return w
		}
	}

	return 0
}

// MaxVint returns the largest value encodable in width bytes.
func MaxVint(width int) uint64 {
	return uint64(1)<<(7*width) - 2
}

// Unknown returns the reserved all-ones VINT payload for the given width,
// which EBML uses as the "unknown size" marker.
func Unknown(width int) uint64 {
	return uint64(1)<<(7*width) - 1
}

// AppendVint appends the VINT encoding of v to dst using the smallest valid
// width >= minWidth, and returns the extended slice.
//
// Returns errs.ErrVINTTooLarge if v does not fit in 8 bytes or minWidth is
// out of range.
func AppendVint(dst []byte, v uint64, minWidth int) ([]byte, error) {
	if minWidth < 1 {
		minWidth = 1
	}
	width := VintWidth(v)
	if width == 0 || minWidth > MaxVintWidth {
		return dst, fmt.Errorf("%w: %d in %d bytes", errs.ErrVINTTooLarge, v, minWidth)
	}
	if width < minWidth {
		width = minWidth
	}

	marker := uint64(1) << (7 * width)
	enc := marker | v
	for i := width - 1; i >= 0; i-- {
		dst = append(dst, byte(enc>>(8*i)))
	}

	return dst, nil
}

// AppendUnknownVint appends the reserved all-ones VINT of the given width,
// EBML's "unknown size" marker.
func AppendUnknownVint(dst []byte, width int) ([]byte, error) {
	if width < 1 || width > MaxVintWidth {
		return dst, fmt.Errorf("%w: unknown-size marker of %d bytes", errs.ErrVINTTooLarge, width)
	}
	enc := uint64(1)<<(7*width) | Unknown(width)
	for i := width - 1; i >= 0; i-- {
		dst = append(dst, byte(enc>>(8*i)))
	}

	return dst, nil
}

// ReadVint reads a VINT of at most maxWidth bytes from r.
//
// It returns the decoded value with the width marker stripped, together with
// the raw bytes consumed. The reserved all-ones payload is returned as-is;
// use IsUnknown to detect it.
//
// Returns errs.ErrMalformedVINT for a zero first byte or a length descriptor
// wider than maxWidth, and errs.ErrUnexpectedEOF on truncation.
func ReadVint(r io.Reader, maxWidth int) (uint64, []byte, error) {
	var buf [MaxVintWidth]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, nil, eofErr(err)
	}
	if buf[0] == 0 {
		return 0, nil, fmt.Errorf("%w: zero length descriptor", errs.ErrMalformedVINT)
	}

	width := bits.LeadingZeros8(buf[0]) + 1
	if width > maxWidth {
		return 0, nil, fmt.Errorf("%w: %d bytes exceeds maximum %d",
			errs.ErrMalformedVINT, width, maxWidth)
	}
	if width > 1 {
		if _, err := io.ReadFull(r, buf[1:width]); err != nil {
			return 0, nil, eofErr(err)
		}
	}

	v := uint64(buf[0]) &^ (uint64(1) << (8 - uint(width)))
	for _, b := range buf[1:width] {
		v = v<<8 | uint64(b)
	}

	return v, buf[:width], nil
}

// IsUnknown reports whether a decoded VINT payload of the given width is the
// reserved all-ones "unknown size" marker.
func IsUnknown(v uint64, width int) bool {
	return width >= 1 && width <= MaxVintWidth && v == Unknown(width)
}

// IDWidth returns the encoded width of a marker-retained element ID, or 0 if
// id is not a valid encoded ID.
//
// Element IDs keep their width marker, so the width is implied by the
// position of the most significant set bit: a 1-byte ID lives in
// [0x80, 0xFF], a 2-byte ID in [0x4000, 0x7FFF], and so on.
func IDWidth(id uint64) int {
	for w := 1; w <= MaxIDWidth; w++ {
		marker := uint64(1) << (7 * w)
		if id >= marker && id < marker<<1 {
			return w
		}
	}

	return 0
}

// AppendID appends the canonical encoding of a marker-retained element ID.
func AppendID(dst []byte, id uint64) ([]byte, error) {
	width := IDWidth(id)
	if width == 0 {
		return dst, fmt.Errorf("%w: %#x is not an encodable ID", errs.ErrMalformedVINT, id)
	}
	for i := width - 1; i >= 0; i-- {
		dst = append(dst, byte(id>>(8*i)))
	}

	return dst, nil
}

// ReadID reads an element ID from r, returning it in marker-retained form
// along with its encoded width.
//
// The all-ones payload is rejected with errs.ErrReservedID; EBML reserves it.
func ReadID(r io.Reader) (uint64, int, error) {
	v, raw, err := ReadVint(r, MaxIDWidth)
	if err != nil {
		return 0, 0, err
	}
	width := len(raw)
	if IsUnknown(v, width) {
		return 0, 0, errs.ErrReservedID
	}

	// Reassemble the marker-retained form from the raw bytes.
	var id uint64
	for _, b := range raw {
		id = id<<8 | uint64(b)
	}

	return id, width, nil
}

func eofErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %w", errs.ErrUnexpectedEOF, err)
	}

	return err
}
