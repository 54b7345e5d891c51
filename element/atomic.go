package element

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/arloliu/ebmlkit/encoding"
	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/internal/hash"
	"github.com/arloliu/ebmlkit/schema"
)

// Atomic is a typed leaf element: unsigned, signed, float, ASCII string,
// UTF-8 string, date or binary.
//
// An Atomic read from a stream keeps a snapshot of the exact payload bytes
// it was decoded from. Several encodings of the same value are legal
// (zero-padded integers, NUL-padded strings), and in-place editing requires
// that untouched elements round-trip bit-exactly even when they move. The
// snapshot is discarded the moment the value is set; from then on the
// element encodes canonically, padded only up to an explicitly reserved
// size.
type Atomic struct {
	base

	u uint64
	i int64
	f float64
	s string
	b []byte
	t time.Time

	raw     []byte
	origSig string
	hasOrig bool
}

func newAtomic(hdr Header, def *schema.Def, reg *schema.Registry) *Atomic {
	a := &Atomic{base: newBase(hdr, def)}
	a.t = encoding.Epoch
	a.applyDefault()

	return a
}

func (a *Atomic) applyDefault() {
	if a.def == nil || a.def.Default == nil {
		return
	}
	switch a.Kind() {
	case schema.KindUint:
		a.u = a.def.DefaultUint()
	case schema.KindInt:
		a.i = int64(a.def.DefaultUint())
	case schema.KindFloat:
		a.f = a.def.DefaultFloat()
	case schema.KindString, schema.KindUnicode:
		a.s = a.def.DefaultString()
	}
}

// Kind returns the primitive kind of the element.
func (a *Atomic) Kind() schema.Kind {
	if a.def == nil {
		return schema.KindBinary
	}

	return a.def.Kind
}

// Uint returns the value of an unsigned element.
func (a *Atomic) Uint() uint64 { return a.u }

// Int returns the value of a signed element.
func (a *Atomic) Int() int64 { return a.i }

// Float returns the value of a float element.
func (a *Atomic) Float() float64 { return a.f }

// Text returns the value of a string or UTF-8 element.
func (a *Atomic) Text() string { return a.s }

// Date returns the value of a date element.
func (a *Atomic) Date() time.Time { return a.t }

// Bytes returns the value of a binary element. The returned slice must not
// be modified.
func (a *Atomic) Bytes() []byte { return a.b }

// Value returns the element's value boxed by kind.
func (a *Atomic) Value() any {
	switch a.Kind() {
	case schema.KindUint:
		return a.u
	case schema.KindInt:
		return a.i
	case schema.KindFloat:
		return a.f
	case schema.KindString, schema.KindUnicode:
		return a.s
	case schema.KindDate:
		return a.t
	default:
		return a.b
	}
}

func (a *Atomic) kindErr(want string) error {
	return fmt.Errorf("%w: %s is %s, not %s", errs.ErrKindMismatch, a.Name(), a.Kind(), want)
}

func (a *Atomic) checkRange(v float64) error {
	if a.def != nil && !a.def.Range.Contains(v) {
		return fmt.Errorf("%w: %v for %s", errs.ErrValueOutOfRange, v, a.Name())
	}

	return nil
}

// valueSet discards the raw snapshot and re-sizes the payload to the
// canonical minimal encoding of the new value. A larger width survives only
// when the schema reserves it (DataSizeMin) or the caller fixes it with a
// later Resize.
func (a *Atomic) valueSet() {
	a.raw = nil
	min := a.minEncodedSize()
	if a.def != nil && a.def.DataSizeMin > min {
		min = a.def.DataSizeMin
	}
	if a.Size() != min {
		a.hdr.SetSize(min)
	}
}

// SetUint sets the value of an unsigned element, validating the schema
// range.
func (a *Atomic) SetUint(v uint64) error {
	if a.Kind() != schema.KindUint {
		return a.kindErr("uint")
	}
	if err := a.checkRange(float64(v)); err != nil {
		return err
	}
	a.u = v
	a.valueSet()

	return nil
}

// SetInt sets the value of a signed element.
func (a *Atomic) SetInt(v int64) error {
	if a.Kind() != schema.KindInt {
		return a.kindErr("int")
	}
	if err := a.checkRange(float64(v)); err != nil {
		return err
	}
	a.i = v
	a.valueSet()

	return nil
}

// SetFloat sets the value of a float element. New values encode as 8 bytes
// unless the element already held a 4-byte float and the new value is
// exactly representable in 4 bytes.
func (a *Atomic) SetFloat(v float64) error {
	if a.Kind() != schema.KindFloat {
		return a.kindErr("float")
	}
	if err := a.checkRange(v); err != nil {
		return err
	}
	a.f = v
	a.valueSet()

	return nil
}

// SetText sets the value of a string or UTF-8 element.
func (a *Atomic) SetText(v string) error {
	if k := a.Kind(); k != schema.KindString && k != schema.KindUnicode {
		return a.kindErr("string")
	}
	a.s = v
	a.valueSet()

	return nil
}

// SetDate sets the value of a date element.
func (a *Atomic) SetDate(v time.Time) error {
	if a.Kind() != schema.KindDate {
		return a.kindErr("date")
	}
	a.t = v
	a.valueSet()

	return nil
}

// SetBytes sets the value of a binary element. The element takes ownership
// of v.
func (a *Atomic) SetBytes(v []byte) error {
	if k := a.Kind(); k != schema.KindBinary && k != schema.KindVoid {
		return a.kindErr("binary")
	}
	a.b = v
	a.valueSet()

	return nil
}

// minEncodedSize is the smallest payload that can hold the current value.
func (a *Atomic) minEncodedSize() int64 {
	switch a.Kind() {
	case schema.KindUint:
		return int64(encoding.UintSize(a.u))
	case schema.KindInt:
		return int64(encoding.IntSize(a.i))
	case schema.KindFloat:
		if a.Size() == 4 && float64(float32(a.f)) == a.f {
			return 4
		}

		return 8
	case schema.KindString, schema.KindUnicode:
		return int64(len(a.s))
	case schema.KindDate:
		return 8
	default:
		return int64(len(a.b))
	}
}

func (a *Atomic) MinDataSize() int64 {
	min := a.minEncodedSize()
	if a.def != nil && a.def.DataSizeMin > min {
		min = a.def.DataSizeMin
	}
	switch a.Kind() {
	case schema.KindFloat:
		// Never drop float precision by shrinking.
		return a.Size()
	case schema.KindBinary, schema.KindVoid:
		return min
	default:
		if a.Size() < min {
			return a.Size()
		}

		return min
	}
}

func (a *Atomic) MaxDataSize() int64 {
	switch a.Kind() {
	case schema.KindUint, schema.KindInt, schema.KindFloat, schema.KindDate:
		return 8
	case schema.KindBinary:
		return int64(len(a.b))
	default:
		// Strings may be NUL-padded arbitrarily.
		return int64(encoding.MaxDataSize)
	}
}

func (a *Atomic) ValidDataSizeLE(goal int64) (int64, bool) {
	min := a.MinDataSize()
	if min > goal {
		return 0, false
	}
	switch a.Kind() {
	case schema.KindUint, schema.KindInt:
		if goal >= 8 {
			return 8, true
		}

		return goal, true
	case schema.KindFloat:
		if goal >= 8 {
			return 8, true
		}
		if goal >= 4 && min <= 4 {
			return 4, true
		}

		return 0, false
	case schema.KindDate:
		return 8, goal >= 8
	case schema.KindBinary:
		return int64(len(a.b)), true
	default:
		return goal, true
	}
}

// Resize reserves an explicit payload size. The size must be able to hold
// the current value; on write the gap is filled with deterministic padding
// (leading zero bytes for unsigned integers, sign-extension bytes for signed
// ones, trailing NULs for strings).
func (a *Atomic) Resize(size int64) error {
	ds, ok := a.ValidDataSizeLE(size)
	if !ok || ds != size {
		return fmt.Errorf("%w: cannot encode %s value in %d bytes",
			errs.ErrValueOutOfRange, a.Name(), size)
	}
	a.hdr.SetSize(size)

	return nil
}

// ReadData decodes the payload and snapshots its exact bytes.
func (a *Atomic) ReadData(r io.ReadSeeker) error {
	data := make([]byte, a.Size())
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("%w: reading %s: %w", errs.ErrUnexpectedEOF, a.Name(), err)
	}
	if err := a.decode(data); err != nil {
		return err
	}
	a.raw = data
	a.state = StateFullyLoaded

	return nil
}

func (a *Atomic) ReadSummary(r io.ReadSeeker) error {
	return a.ReadData(r)
}

func (a *Atomic) decode(data []byte) error {
	switch a.Kind() {
	case schema.KindUint:
		a.u = encoding.DecodeUint(data)
	case schema.KindInt:
		a.i = encoding.DecodeInt(data)
	case schema.KindFloat:
		f, err := encoding.DecodeFloat(data)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}
		a.f = f
	case schema.KindString:
		a.s = encoding.DecodeString(data)
	case schema.KindUnicode:
		s, err := encoding.DecodeUTF8(data)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}
		a.s = s
	case schema.KindDate:
		t, err := encoding.DecodeDate(data)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}
		a.t = t
	default:
		a.b = data
	}

	return nil
}

// encode produces the payload at exactly the current size. A clean snapshot
// of matching length is reproduced bit-exactly.
func (a *Atomic) encode() ([]byte, error) {
	size := a.Size()
	if a.raw != nil && int64(len(a.raw)) == size {
		return a.raw, nil
	}

	switch a.Kind() {
	case schema.KindUint:
		return encoding.AppendUint(nil, a.u, int(size)), nil
	case schema.KindInt:
		return encoding.AppendInt(nil, a.i, int(size)), nil
	case schema.KindFloat:
		return encoding.AppendFloat(nil, a.f, int(size))
	case schema.KindString, schema.KindUnicode:
		return encoding.AppendString(nil, a.s, int(size)), nil
	case schema.KindDate:
		if size == 0 {
			return nil, nil
		}

		return encoding.AppendDate(nil, a.t), nil
	default:
		if int64(len(a.b)) != size {
			return nil, fmt.Errorf("%w: binary %s value is %d bytes, size is %d",
				errs.ErrValueOutOfRange, a.Name(), len(a.b), size)
		}

		return a.b, nil
	}
}

func (a *Atomic) write(w io.WriteSeeker, _ io.ReadSeeker, _ bool) error {
	hdr, err := a.hdr.Encode()
	if err != nil {
		return err
	}
	data, err := a.encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	return nil
}

// sig condenses the current value for change detection. Large binary values
// collapse to an xxHash64 digest instead of being kept twice.
func (a *Atomic) sig() string {
	switch a.Kind() {
	case schema.KindUint:
		return strconv.FormatUint(a.u, 16)
	case schema.KindInt:
		return strconv.FormatInt(a.i, 16)
	case schema.KindFloat:
		return strconv.FormatUint(math.Float64bits(a.f), 16)
	case schema.KindString, schema.KindUnicode:
		return a.s
	case schema.KindDate:
		return strconv.FormatInt(a.t.Sub(encoding.Epoch).Nanoseconds(), 16)
	default:
		return hash.Signature(a.b)
	}
}

func (a *Atomic) Dirty() bool {
	if a.base.Dirty() {
		return true
	}

	return !a.hasOrig || a.origSig != a.sig()
}

func (a *Atomic) MarkClean() {
	a.base.MarkClean()
	a.origSig = a.sig()
	a.hasOrig = true
}

// CheckConsistency verifies the value against the schema range and the
// presence of a parent.
func (a *Atomic) CheckConsistency() error {
	if a.parent == nil {
		return fmt.Errorf("%w: %s", errs.ErrDetachedElement, a.Name())
	}
	if a.def == nil || a.def.Range == nil {
		return nil
	}
	var v float64
	switch a.Kind() {
	case schema.KindUint:
		v = float64(a.u)
	case schema.KindInt:
		v = float64(a.i)
	case schema.KindFloat:
		v = a.f
	default:
		return nil
	}
	if !a.def.Range.Contains(v) {
		return fmt.Errorf("%w: %v in %s", errs.ErrBadValue, v, a.Name())
	}

	return nil
}

func (a *Atomic) String() string {
	val := a.Value()
	if b, ok := val.([]byte); ok {
		if len(b) > 32 {
			val = fmt.Sprintf("[size %d]", len(b))
		} else {
			val = encoding.HexBytes(b)
		}
	}

	return fmt.Sprintf("%s %s %s: %v", a.Kind(), a.Name(), a.frame(), val)
}
