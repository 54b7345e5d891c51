package element

import (
	"fmt"
	"io"

	"github.com/arloliu/ebmlkit/encoding"
	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

// Void is padding. Its data is skipped on read and left undefined on write:
// the writer emits the header, seeks past the payload, and touches at most
// one byte to extend the stream when needed.
type Void struct {
	base
}

// MinVoidSize is the smallest encodable Void: a 1-byte ID plus a 1-byte
// size field.
const MinVoidSize = 2

func newVoid(hdr Header, def *schema.Def, reg *schema.Registry) *Void {
	return &Void{base: newBase(hdr, def)}
}

// NewVoid creates a Void of an exact total size (header plus data).
// totalSize must be at least MinVoidSize.
func NewVoid(reg *schema.Registry, totalSize int64) (*Void, error) {
	if totalSize < MinVoidSize {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidVoidSize, totalSize)
	}
	def := reg.Get(schema.IDVoid)
	v := newVoid(NewHeader(schema.IDVoid, 0), def, reg)
	if err := ResizeTotal(v, totalSize); err != nil {
		return nil, err
	}

	return v, nil
}

func (v *Void) MinDataSize() int64 { return 0 }

func (v *Void) MaxDataSize() int64 { return int64(encoding.MaxDataSize) }

func (v *Void) ValidDataSizeLE(goal int64) (int64, bool) {
	if goal < 0 {
		return 0, false
	}

	return goal, true
}

func (v *Void) ReadData(r io.ReadSeeker) error {
	if err := v.skipData(r); err != nil {
		return err
	}
	v.state = StateFullyLoaded

	return nil
}

func (v *Void) ReadSummary(r io.ReadSeeker) error {
	return v.ReadData(r)
}

func (v *Void) write(w io.WriteSeeker, _ io.ReadSeeker, _ bool) error {
	hdr, err := v.hdr.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if v.Size() > 0 {
		// Leave the payload undefined; write a single byte at the end so a
		// fresh sink grows to cover the region.
		if _, err := w.Seek(v.Size()-1, io.SeekCurrent); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}

	return nil
}

func (v *Void) CheckConsistency() error {
	if v.parent == nil {
		return fmt.Errorf("%w: %s", errs.ErrDetachedElement, v.Name())
	}

	return nil
}

func (v *Void) String() string {
	return fmt.Sprintf("Void %s", v.frame())
}

// Unsupported is an element whose ID is absent from the schema. Its bytes
// pass through verbatim; it cannot be resized or given a value, and writing
// one that was modified fails.
type Unsupported struct {
	base
}

func newUnsupported(hdr Header, reg *schema.Registry) *Unsupported {
	return &Unsupported{base: newBase(hdr, nil)}
}

func (u *Unsupported) MinDataSize() int64 { return u.Size() }
func (u *Unsupported) MaxDataSize() int64 { return u.Size() }

func (u *Unsupported) ValidDataSizeLE(goal int64) (int64, bool) {
	if u.Size() <= goal {
		return u.Size(), true
	}

	return 0, false
}

func (u *Unsupported) Resize(size int64) error {
	if size != u.Size() {
		return fmt.Errorf("%w: cannot resize %s", errs.ErrUnsupportedElement, u.Name())
	}

	return nil
}

func (u *Unsupported) ReadData(r io.ReadSeeker) error {
	if err := u.skipData(r); err != nil {
		return err
	}
	u.state = StateFullyLoaded

	return nil
}

func (u *Unsupported) ReadSummary(r io.ReadSeeker) error {
	return u.ReadData(r)
}

// write copies the original bytes from the source stream. A dirty
// Unsupported element other than an in-place passthrough cannot be written.
func (u *Unsupported) write(w io.WriteSeeker, src io.ReadSeeker, _ bool) error {
	orig, ok := u.StreamOffset()
	if !ok || src == nil || u.TotalSize() != u.origTotal {
		return fmt.Errorf("%w: cannot write modified element [%s]",
			errs.ErrUnsupportedElement, u.ID())
	}

	return copyRegion(w, src, orig, u.TotalSize())
}

func (u *Unsupported) CheckConsistency() error {
	if u.parent == nil {
		return fmt.Errorf("%w: [%s]", errs.ErrDetachedElement, u.ID())
	}

	return nil
}

func (u *Unsupported) String() string {
	return fmt.Sprintf("Unsupported [%s] %s", u.ID(), u.frame())
}

// Placeholder covers a frozen byte region: a run of Clusters the summary
// reader skipped without parsing. It behaves like an already-loaded,
// never-dirty element whose write is a pure seek, so the bytes underneath
// are never touched. Moving or modifying one is inconsistent.
type Placeholder struct {
	base
	span int64
}

// NewPlaceholder creates a placeholder covering span bytes. The synthetic
// header is sized so that header plus data equals span; it is never
// encoded.
func NewPlaceholder(reg *schema.Registry, span int64) (*Placeholder, error) {
	if span < MinVoidSize {
		return nil, fmt.Errorf("%w: placeholder of %d bytes", errs.ErrInvalidVoidSize, span)
	}
	p := &Placeholder{
		base: newBase(NewHeader(schema.IDReserved, 0), nil),
		span: span,
	}
	if err := ResizeTotal(p, span); err != nil {
		return nil, err
	}
	p.state = StateFullyLoaded

	return p, nil
}

func (p *Placeholder) Name() string { return "Reserved" }

func (p *Placeholder) MinDataSize() int64 { return p.Size() }
func (p *Placeholder) MaxDataSize() int64 { return int64(encoding.MaxDataSize) }

func (p *Placeholder) ValidDataSizeLE(goal int64) (int64, bool) {
	if goal < 0 {
		return 0, false
	}

	return goal, true
}

func (p *Placeholder) ReadData(r io.ReadSeeker) error {
	if err := p.skipData(r); err != nil {
		return err
	}
	p.state = StateFullyLoaded

	return nil
}

func (p *Placeholder) ReadSummary(r io.ReadSeeker) error {
	return p.ReadData(r)
}

// write seeks past the whole region without touching the header bytes.
func (p *Placeholder) write(w io.WriteSeeker, _ io.ReadSeeker, _ bool) error {
	_, err := w.Seek(p.TotalSize(), io.SeekCurrent)

	return err
}

func (p *Placeholder) CheckConsistency() error {
	if p.Dirty() {
		return fmt.Errorf("%w: frozen region %s was modified", errs.ErrInconsistent, p.frame())
	}
	if p.parent == nil {
		return fmt.Errorf("%w: %s", errs.ErrDetachedElement, p.Name())
	}

	return nil
}

func (p *Placeholder) String() string {
	return fmt.Sprintf("Reserved %s", p.frame())
}
