// Package element implements the EBML element tree: reading elements from a
// seekable stream, tracking which parts of the tree differ from their
// on-stream representation, repairing container layout with Void padding,
// and writing back only the regions that changed.
package element

import (
	"fmt"
	"io"

	"github.com/arloliu/ebmlkit/encoding"
	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

// ReadState tracks how much of an element has been loaded from the stream.
type ReadState int

const (
	// StateUnread: the element exists but no data has been read.
	StateUnread ReadState = iota
	// StateHeaderOnly: the header was decoded, the data was not.
	StateHeaderOnly
	// StateSummaryLoaded: ReadSummary ran; for deferred Masters the children
	// were skipped.
	StateSummaryLoaded
	// StateFullyLoaded: ReadData ran; the element is complete in memory.
	StateFullyLoaded
)

// Parent is the container side of the child back-reference: either a *Master
// or a *File.
type Parent interface {
	// DataOffset returns the absolute stream offset where the container's
	// data region begins. ok is false while the container itself is
	// detached.
	DataOffset() (int64, bool)
	// ChildLevel returns the tree depth of the container's children (0 for
	// top-level elements).
	ChildLevel() int
	// Children returns the container's children in offset order.
	Children() []Element
}

// Element is a single node of the EBML tree: a Master, a typed Atomic leaf,
// a Void, an Unsupported opaque element, or an internal Placeholder covering
// a frozen byte region.
type Element interface {
	fmt.Stringer

	Header() *Header
	ID() schema.ID
	Name() string
	Def() *schema.Def

	// Size is the data size; TotalSize includes the header.
	Size() int64
	HeaderSize() int64
	TotalSize() int64

	// Offset is the element's position relative to the start of its
	// parent's data region. EndOffset is Offset+TotalSize.
	Offset() int64
	EndOffset() int64
	// AbsOffset is the absolute stream position of the element's header;
	// ok is false while any ancestor is detached.
	AbsOffset() (int64, bool)
	// StreamOffset is the absolute position the element was last read from
	// or written to; ok is false for programmatically created elements.
	StreamOffset() (int64, bool)

	Parent() Parent
	ReadState() ReadState
	Level() int

	// Dirty reports whether the element differs from its on-stream
	// representation: it moved, was resized, its value changed, a
	// descendant is dirty, or it never came from a stream.
	Dirty() bool
	// MarkDirty forces the element dirty.
	MarkDirty()
	// MarkClean records the current position, size and value as the
	// on-stream state.
	MarkClean()

	// Resize sets the data size. The caller is responsible for making the
	// payload fit (value re-encoding, Void insertion or rearrangement).
	Resize(size int64) error

	// MinDataSize and MaxDataSize bound the sizes the element's current
	// content can be encoded in; ValidDataSizeLE returns the largest valid
	// data size not exceeding goal.
	MinDataSize() int64
	MaxDataSize() int64
	ValidDataSizeLE(goal int64) (int64, bool)

	// ReadData loads the element's data from r, which must be positioned at
	// the element's data region. ReadSummary is identical except for
	// deferred Masters and the Matroska Segment.
	ReadData(r io.ReadSeeker) error
	ReadSummary(r io.ReadSeeker) error

	// CheckConsistency verifies the element against the positional and
	// schema invariants.
	CheckConsistency() error

	asBase() *base
	// write emits the element at the current position of w. src and
	// sameFile carry the delta-writer copy context for clean descendants.
	write(w io.WriteSeeker, src io.ReadSeeker, sameFile bool) error
}

var (
	_ Element = (*Master)(nil)
	_ Element = (*Atomic)(nil)
	_ Element = (*Void)(nil)
	_ Element = (*Unsupported)(nil)
	_ Element = (*Placeholder)(nil)
	_ Parent  = (*Master)(nil)
	_ Parent  = (*File)(nil)
)

// base carries the state shared by every element kind.
type base struct {
	hdr    Header
	def    *schema.Def
	parent Parent
	offset int64
	state  ReadState

	// Snapshot of the on-stream framing, -1 offsets meaning "never on
	// stream". Dirtiness is detected by comparing against it.
	origAbs    int64
	origTotal  int64
	origHeader int64
	forced     bool
}

func newBase(hdr Header, def *schema.Def) base {
	return base{
		hdr:     hdr,
		def:     def,
		origAbs: -1,
	}
}

func (b *base) Header() *Header   { return &b.hdr }
func (b *base) ID() schema.ID     { return b.hdr.ID() }
func (b *base) Def() *schema.Def  { return b.def }
func (b *base) Parent() Parent    { return b.parent }
func (b *base) Offset() int64     { return b.offset }
func (b *base) Size() int64       { return b.hdr.Size() }
func (b *base) HeaderSize() int64 { return b.hdr.NumBytes() }
func (b *base) TotalSize() int64  { return b.hdr.NumBytes() + b.hdr.Size() }
func (b *base) EndOffset() int64  { return b.offset + b.TotalSize() }

func (b *base) ReadState() ReadState { return b.state }

// SetReadState records how much of the element is loaded. Element types
// built on top of Master (the Matroska Segment) use it from their own read
// paths.
func (b *base) SetReadState(st ReadState) { b.state = st }
func (b *base) asBase() *base          { return b }

// Name returns the schema name, or a hex rendering of the ID for elements
// outside the schema.
func (b *base) Name() string {
	if b.def != nil {
		return b.def.Name
	}

	return fmt.Sprintf("[%s]", b.hdr.ID())
}

func (b *base) Level() int {
	if b.parent == nil {
		return 0
	}

	return b.parent.ChildLevel()
}

func (b *base) AbsOffset() (int64, bool) {
	if b.parent == nil {
		return 0, false
	}
	data, ok := b.parent.DataOffset()
	if !ok {
		return 0, false
	}

	return data + b.offset, true
}

func (b *base) StreamOffset() (int64, bool) {
	if b.origAbs < 0 {
		return 0, false
	}

	return b.origAbs, true
}

// DataAbsOffset is AbsOffset plus the header width: where the payload
// starts.
func (b *base) DataAbsOffset() (int64, bool) {
	abs, ok := b.AbsOffset()
	if !ok {
		return 0, false
	}

	return abs + b.HeaderSize(), true
}

func (b *base) MarkDirty() { b.forced = true }

func (b *base) MarkClean() {
	abs, ok := b.AbsOffset()
	if !ok {
		abs = -1
	}
	b.origAbs = abs
	b.origTotal = b.TotalSize()
	b.origHeader = b.HeaderSize()
	b.forced = false
}

// Dirty on base covers position, size and header width changes. Kinds with
// content add their own checks on top.
func (b *base) Dirty() bool {
	if b.forced || b.origAbs < 0 {
		return true
	}
	abs, ok := b.AbsOffset()
	if !ok {
		return true
	}

	return abs != b.origAbs ||
		b.TotalSize() != b.origTotal ||
		b.HeaderSize() != b.origHeader
}

func (b *base) Resize(size int64) error {
	b.hdr.SetSize(size)

	return nil
}

func (b *base) frame() string {
	return fmt.Sprintf("(%d+%d @%d)", b.HeaderSize(), b.Size(), b.offset)
}

// skipData advances r past the element's payload.
func (b *base) skipData(r io.ReadSeeker) error {
	if _, err := r.Seek(b.Size(), io.SeekCurrent); err != nil {
		return fmt.Errorf("skip %s: %w", b.Name(), err)
	}

	return nil
}

// minHeaderSize returns the smallest header width permitted when the data
// size becomes dataSize. It never exceeds the current header width while the
// data is not growing, so resizing down cannot force header churn.
func minHeaderSize(e Element, dataSize int64) int64 {
	h := *e.Header()
	h.SetSize(dataSize)
	min := h.MinNumBytes()
	if dataSize <= e.Size() && e.Header().NumBytes() < min {
		min = e.Header().NumBytes()
	}

	return min
}

// MinTotalSize returns the smallest total size the element's content can be
// encoded in.
func MinTotalSize(e Element) int64 {
	ds := e.MinDataSize()

	return minHeaderSize(e, ds) + ds
}

// ValidTotalSizeLE returns the largest achievable total size <= goal,
// along with the header and data split realizing it. The data is resized
// before the header; when the header must change, the smaller width wins.
func ValidTotalSizeLE(e Element, goal int64) (total, header, data int64, ok bool) {
	minData := e.MinDataSize()
	minHeader := minHeaderSize(e, minData)
	if minHeader+minData > goal {
		return 0, 0, 0, false
	}
	if e.HeaderSize()+minData >= goal {
		// Shrink both parts to land exactly on goal.
		return goal, goal - minData, minData, true
	}

	// Try keeping the header width.
	goalData := goal - e.HeaderSize()
	if goalData <= int64(encoding.MaxDataSize) && minHeaderSize(e, goalData) <= e.HeaderSize() {
		if ds, dok := e.ValidDataSizeLE(goalData); dok && ds == goalData {
			return goal, e.HeaderSize(), ds, true
		}
	}

	// The header has to move. Try widths smallest-first, remembering the
	// best inexact split.
	var bestTotal, bestHeader, bestData int64
	maxHeader := e.Header().MaxNumBytes()
	for hs := minHeader; hs <= maxHeader; hs++ {
		goalData := goal - hs
		if goalData < 0 || goalData > int64(encoding.MaxDataSize) {
			continue
		}
		if minHeaderSize(e, goalData) > hs {
			continue
		}
		ds, dok := e.ValidDataSizeLE(goalData)
		if !dok {
			continue
		}
		if ds == goalData {
			return goal, hs, ds, true
		}
		if hs+ds > bestTotal {
			bestTotal, bestHeader, bestData = hs+ds, hs, ds
		}
	}
	if bestTotal > 0 {
		return bestTotal, bestHeader, bestData, true
	}

	return 0, 0, 0, false
}

// ResizeTotal resizes the element to an exact total size, adjusting the
// header and data split. The size must be achievable per ValidTotalSizeLE.
func ResizeTotal(e Element, total int64) error {
	got, header, data, ok := ValidTotalSizeLE(e, total)
	if !ok || got != total {
		return fmt.Errorf("%w: cannot resize %s to total size %d",
			errs.ErrInsufficientSpace, e.Name(), total)
	}
	if err := e.Resize(data); err != nil {
		return err
	}

	return e.Header().SetNumBytes(header)
}
