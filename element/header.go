package element

import (
	"fmt"
	"io"

	"github.com/arloliu/ebmlkit/encoding"
	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

// Header is the two-part frame in front of every EBML element: the
// marker-retained element ID followed by the data size.
//
// The encoded header is not uniquely determined by ID and size: the size
// field may legally be wider than minimal. In-place editing depends on that
// freedom, so Header tracks the size-field width separately and lets callers
// inflate it to reserve header growth room. Setting the size may grow the
// width but never shrinks it.
type Header struct {
	id          schema.ID
	size        int64
	sizeWidth   int
	unknownSize bool
}

// NewHeader creates a header with the minimal size-field width for size.
func NewHeader(id schema.ID, size int64) Header {
	h := Header{id: id}
	h.SetSize(size)

	return h
}

// DecodeHeader reads an encoded header from the current stream position.
func DecodeHeader(r io.Reader) (Header, error) {
	rawID, _, err := encoding.ReadID(r)
	if err != nil {
		return Header{}, err
	}
	size, raw, err := encoding.ReadVint(r, encoding.MaxVintWidth)
	if err != nil {
		return Header{}, err
	}

	h := Header{id: schema.ID(rawID), sizeWidth: len(raw)}
	if encoding.IsUnknown(size, len(raw)) {
		h.unknownSize = true
	} else {
		h.size = int64(size)
	}

	return h, nil
}

// ID returns the element ID.
func (h *Header) ID() schema.ID { return h.id }

// Size returns the data size.
func (h *Header) Size() int64 { return h.size }

// UnknownSize reports whether the header carried the reserved all-ones size.
// Only top-level Master elements may use it; the reader resolves the size to
// the remaining stream extent.
func (h *Header) UnknownSize() bool { return h.unknownSize }

// SetSize updates the data size, growing the size-field width if the new
// value no longer fits. The width is never shrunk; use SetNumBytes for that.
func (h *Header) SetSize(size int64) {
	h.size = size
	h.unknownSize = false
	if w := encoding.VintWidth(uint64(size)); h.sizeWidth < w {
		h.sizeWidth = w
	}
}

// resolveUnknown pins an unknown-size header to a concrete size while
// keeping the encoded width it was read with.
func (h *Header) resolveUnknown(size int64) {
	h.size = size
	h.unknownSize = false
}

// IDWidth returns the encoded width of the ID part.
func (h *Header) IDWidth() int { return h.id.Width() }

// SizeWidth returns the encoded width of the size part.
func (h *Header) SizeWidth() int { return h.sizeWidth }

// NumBytes returns the total encoded header width.
func (h *Header) NumBytes() int64 { return int64(h.IDWidth() + h.sizeWidth) }

// MinNumBytes returns the smallest legal encoded width for the current size.
func (h *Header) MinNumBytes() int64 {
	return int64(h.IDWidth() + encoding.VintWidth(uint64(h.size)))
}

// MaxNumBytes returns the largest legal encoded width (8-byte size field).
func (h *Header) MaxNumBytes() int64 {
	return int64(h.IDWidth() + encoding.MaxVintWidth)
}

// SetNumBytes fixes the total encoded width, adjusting the size-field width.
// The value must lie in [MinNumBytes, MaxNumBytes].
func (h *Header) SetNumBytes(n int64) error {
	if n < h.MinNumBytes() || n > h.MaxNumBytes() {
		return fmt.Errorf("%w: cannot encode header in %d bytes", errs.ErrInsufficientSpace, n)
	}
	h.sizeWidth = int(n) - h.IDWidth()

	return nil
}

// Append appends the encoded header to dst.
func (h *Header) Append(dst []byte) ([]byte, error) {
	dst, err := encoding.AppendID(dst, uint64(h.id))
	if err != nil {
		return dst, err
	}
	if h.unknownSize {
		return encoding.AppendUnknownVint(dst, h.sizeWidth)
	}

	return encoding.AppendVint(dst, uint64(h.size), h.sizeWidth)
}

// Encode returns the encoded header. Its length equals NumBytes.
func (h *Header) Encode() ([]byte, error) {
	return h.Append(make([]byte, 0, h.NumBytes()))
}

func (h *Header) String() string {
	return fmt.Sprintf("Header(id=[%s] size=%d)", h.id, h.size)
}
