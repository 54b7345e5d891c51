package element

import (
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/arloliu/ebmlkit/encoding"
	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

// Factory builds an element for a decoded header, letting callers substitute
// richer types for selected IDs (the Matroska package registers its Segment
// this way). Returning nil falls back to the generic kinds.
type Factory func(hdr Header, def *schema.Def, reg *schema.Registry) Element

// newElement dispatches a decoded header to the generic element kinds.
func newElement(hdr Header, reg *schema.Registry, fac Factory) Element {
	def := reg.Get(hdr.ID())
	if fac != nil {
		if el := fac(hdr, def, reg); el != nil {
			return el
		}
	}
	if def == nil {
		return newUnsupported(hdr, reg)
	}
	switch def.Kind {
	case schema.KindMaster:
		return newMasterFromHeader(hdr, def, reg)
	case schema.KindVoid:
		return newVoid(hdr, def, reg)
	default:
		return newAtomic(hdr, def, reg)
	}
}

// New creates an empty element programmatically by schema name. The new
// element has no stream position and is dirty until written.
func New(reg *schema.Registry, name string) (Element, error) {
	def := reg.ByName(name)
	if def == nil {
		return nil, fmt.Errorf("%w: unknown element %q", errs.ErrSchemaViolation, name)
	}
	hdr := NewHeader(def.ID, 0)
	el := newElement(hdr, reg, nil)
	if a, ok := el.(*Atomic); ok {
		// Size the payload for the (default) value and any reserved width.
		min := a.minEncodedSize()
		if def.DataSizeMin > min {
			min = def.DataSizeMin
		}
		if min > 0 {
			a.hdr.SetSize(min)
		}
	}
	el.asBase().state = StateFullyLoaded

	return el, nil
}

// MustNew is New for compiled-in names; it panics on unknown ones.
func MustNew(reg *schema.Registry, name string) Element {
	el, err := New(reg, name)
	if err != nil {
		panic(err)
	}

	return el
}

// NewMaster creates an empty Master element by schema name.
func NewMaster(reg *schema.Registry, name string) (*Master, error) {
	el, err := New(reg, name)
	if err != nil {
		return nil, err
	}
	m, ok := el.(*Master)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a master element", errs.ErrKindMismatch, name)
	}

	return m, nil
}

// container is the child-holding behavior shared by Master and File. The
// children slice is kept sorted by relative offset.
type container struct {
	children []Element
	self     Parent
	reg      *schema.Registry
	fac      Factory
}

// Children returns the children in offset order. The returned slice is the
// container's own; do not modify it.
func (c *container) Children() []Element { return c.children }

// Registry returns the schema dictionary the container reads with.
func (c *container) Registry() *schema.Registry { return c.reg }

// ChildAt returns the child starting exactly at the given relative offset,
// or nil.
func (c *container) ChildAt(offset int64) Element { return c.findChildAt(offset) }

// Len returns the number of children.
func (c *container) Len() int { return len(c.children) }

// insert places el into the slice by offset, after any existing children at
// the same offset.
func (c *container) insert(el Element) {
	i := sort.Search(len(c.children), func(i int) bool {
		return c.children[i].Offset() > el.Offset()
	})
	c.children = append(c.children, nil)
	copy(c.children[i+1:], c.children[i:])
	c.children[i] = el
}

// reSort restores offset order after offsets changed in place.
func (c *container) reSort() {
	sort.SliceStable(c.children, func(i, j int) bool {
		return c.children[i].Offset() < c.children[j].Offset()
	})
}

// AddChild attaches el at the given offset relative to the container's data
// region, replacing any previous parent link.
func (c *container) AddChild(el Element, at int64) {
	el.asBase().parent = c.self
	el.asBase().offset = at
	c.insert(el)
}

// AppendChild attaches el immediately after the last child.
func (c *container) AppendChild(el Element) {
	c.AddChild(el, c.EndLastChild())
}

// RemoveChild detaches el, clearing its parent back-reference.
func (c *container) RemoveChild(el Element) error {
	for i, ch := range c.children {
		if ch == el {
			c.children = append(c.children[:i], c.children[i+1:]...)
			el.asBase().parent = nil

			return nil
		}
	}

	return fmt.Errorf("%w: %s is not a child", errs.ErrDetachedElement, el.Name())
}

// RemoveChildrenNamed detaches every child with the given schema name and
// returns them.
func (c *container) RemoveChildrenNamed(name string) []Element {
	var removed []Element
	kept := c.children[:0]
	for _, ch := range c.children {
		if ch.Name() == name {
			ch.asBase().parent = nil
			removed = append(removed, ch)
		} else {
			kept = append(kept, ch)
		}
	}
	c.children = kept

	return removed
}

// MoveChild changes a child's relative offset, keeping the slice sorted.
// No overlap checking is done; run Rearrange or CheckConsistency after.
func (c *container) MoveChild(el Element, newOffset int64) error {
	for i, ch := range c.children {
		if ch == el {
			c.children = append(c.children[:i], c.children[i+1:]...)
			el.asBase().offset = newOffset
			c.insert(el)

			return nil
		}
	}

	return fmt.Errorf("%w: %s is not a child", errs.ErrDetachedElement, el.Name())
}

// ChildrenNamed iterates over children with the given schema name.
func (c *container) ChildrenNamed(name string) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for _, ch := range c.children {
			if ch.Name() == name && !yield(ch) {
				return
			}
		}
	}
}

// ChildNamed returns the first child with the given name, or nil.
func (c *container) ChildNamed(name string) Element {
	for _, ch := range c.children {
		if ch.Name() == name {
			return ch
		}
	}

	return nil
}

// LastChildWithID returns the last child with the given ID, or nil.
// Accessors read the last instance, which wins under Matroska rules.
func (c *container) LastChildWithID(id schema.ID) Element {
	for i := len(c.children) - 1; i >= 0; i-- {
		if c.children[i].ID() == id {
			return c.children[i]
		}
	}

	return nil
}

// ChildrenWithID iterates over children with the given ID.
func (c *container) ChildrenWithID(id schema.ID) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for _, ch := range c.children {
			if ch.ID() == id && !yield(ch) {
				return
			}
		}
	}
}

func (c *container) countID(id schema.ID) int {
	n := 0
	for _, ch := range c.children {
		if ch.ID() == id {
			n++
		}
	}

	return n
}

// BegFirstChild returns the relative offset of the first child, or 0.
func (c *container) BegFirstChild() int64 {
	if len(c.children) == 0 {
		return 0
	}

	return c.children[0].Offset()
}

// EndLastChild returns the relative offset one past the last child, or 0.
func (c *container) EndLastChild() int64 {
	var end int64
	for _, ch := range c.children {
		if e := ch.EndOffset(); e > end {
			end = e
		}
	}

	return end
}

// ForceDirty recursively marks all children dirty, scheduling a full
// rewrite.
func (c *container) ForceDirty() {
	for _, ch := range c.children {
		ch.MarkDirty()
		if m, ok := ch.(interface{ ForceDirty() }); ok {
			m.ForceDirty()
		}
	}
}

// checkConsecutivity verifies the positional invariants: first child at 0,
// each next child starting where the previous ended. With childConsistency
// set, Master children get a full consistency check instead of just a
// positional one.
func (c *container) checkConsecutivity(childConsistency bool) error {
	var prev Element
	for _, ch := range c.children {
		if prev == nil {
			if ch.Offset() != 0 {
				return fmt.Errorf("%w: blank space before %s at %d",
					errs.ErrInconsistent, ch.Name(), ch.Offset())
			}
		} else {
			switch d := ch.Offset() - prev.EndOffset(); {
			case d < 0:
				return fmt.Errorf("%w: %s overlaps %s",
					errs.ErrInconsistent, prev.Name(), ch.Name())
			case d > 0:
				return fmt.Errorf("%w: %d-byte gap between %s and %s",
					errs.ErrInconsistent, d, prev.Name(), ch.Name())
			}
		}
		prev = ch

		if m, ok := ch.(masterLike); ok && !childConsistency {
			if err := m.checkChildConsecutivity(); err != nil {
				return err
			}
		} else if err := ch.CheckConsistency(); err != nil {
			return err
		}
	}

	return nil
}

// masterLike matches Master and anything embedding it.
type masterLike interface {
	checkChildConsecutivity() error
}

// checkSchemaCardinality verifies required and unique children of parentDef.
func (c *container) checkSchemaCardinality(parentDef *schema.Def) error {
	if c.reg == nil {
		return nil
	}
	var defs []*schema.Def
	if parentDef == nil {
		defs = c.reg.Roots()
	} else {
		defs = c.reg.ChildrenOf(parentDef)
	}
	for _, d := range defs {
		n := c.countID(d.ID)
		if d.Required() && n == 0 {
			return fmt.Errorf("%w: %s", errs.ErrMissingRequired, d.Name)
		}
		if !d.Multiple && n > 1 {
			return fmt.Errorf("%w: %s appears %d times", errs.ErrDuplicateUnique, d.Name, n)
		}
	}

	return nil
}

// checkAllowedChildren verifies that every non-global child is permitted
// under parentDef. Elements outside the schema are allowed anywhere; they
// pass through untouched.
func (c *container) checkAllowedChildren(parentDef *schema.Def) error {
	for _, ch := range c.children {
		d := ch.Def()
		if d == nil {
			continue
		}
		if !d.IsChildOf(parentDef) {
			parent := "file level"
			if parentDef != nil {
				parent = parentDef.Name
			}

			return fmt.Errorf("%w: %s under %s", errs.ErrDisallowedChild, d.Name, parent)
		}
	}

	return nil
}

// Master is a container element: its payload is the ordered sequence of its
// children.
type Master struct {
	base
	container
}

func newMasterFromHeader(hdr Header, def *schema.Def, reg *schema.Registry) *Master {
	m := &Master{base: newBase(hdr, def)}
	m.container.self = m
	m.container.reg = reg

	return m
}

// NewMasterFromHeader builds a Master for a decoded header. Element
// factories use it to seed richer master types.
func NewMasterFromHeader(hdr Header, def *schema.Def, reg *schema.Registry) *Master {
	return newMasterFromHeader(hdr, def, reg)
}

// SetSelf redirects the master's child back-references to outer, the
// element embedding it. Factories constructing wrapper types must call it
// so children point at the outer element.
func (m *Master) SetSelf(outer Parent) {
	m.container.self = outer
}

// ReadChildAt reads (or completes) the child at the given relative offset,
// seeking the stream itself. Summary-guided readers use it to follow index
// entries.
func (m *Master) ReadChildAt(r io.ReadSeeker, offset int64, summary bool) (Element, error) {
	return m.readElement(r, offset, m.Size()-offset, summary, true)
}

// PeekChildID decodes the header at the given relative offset and returns
// its ID without creating a child.
func (m *Master) PeekChildID(r io.ReadSeeker, offset int64) (schema.ID, bool) {
	return m.peekID(r, offset)
}

// DataOffset implements Parent: the absolute offset of the master's data
// region.
func (m *Master) DataOffset() (int64, bool) {
	return m.DataAbsOffset()
}

// ChildLevel implements Parent.
func (m *Master) ChildLevel() int {
	return m.Level() + 1
}

// Dirty reports the master dirty if it moved or resized, or if any child is
// dirty.
func (m *Master) Dirty() bool {
	if m.base.Dirty() {
		return true
	}
	for _, ch := range m.children {
		if ch.Dirty() {
			return true
		}
	}

	return false
}

func (m *Master) MinDataSize() int64 {
	var sum int64
	for _, ch := range m.children {
		if _, isVoid := ch.(*Void); isVoid {
			continue
		}
		sum += MinTotalSize(ch)
	}

	return sum
}

func (m *Master) MaxDataSize() int64 {
	// Can always pad with Voids.
	return int64(encoding.MaxDataSize)
}

func (m *Master) ValidDataSizeLE(goal int64) (int64, bool) {
	min := m.MinDataSize()
	switch {
	case min > goal:
		return 0, false
	case min == goal || min <= goal-2:
		// Any slack of two or more bytes can be voided away.
		return goal, true
	default:
		// A 1-byte gap cannot hold a Void; settle for the exact minimum.
		return min, true
	}
}

// ReadData reads all children recursively.
func (m *Master) ReadData(r io.ReadSeeker) error {
	if err := m.readRegion(r, 0, m.Size(), false); err != nil {
		return err
	}
	m.state = StateFullyLoaded

	return nil
}

// ReadSummary reads children like ReadData, except that deferred masters
// (schema Defer flag: Cluster, Cues) skip their children entirely.
func (m *Master) ReadSummary(r io.ReadSeeker) error {
	if m.def != nil && m.def.Defer {
		if err := m.skipData(r); err != nil {
			return err
		}
		m.state = StateSummaryLoaded

		return nil
	}
	if err := m.readRegion(r, 0, m.Size(), true); err != nil {
		return err
	}
	m.state = StateSummaryLoaded

	return nil
}

// deferredClean reports whether the master is a summary-loaded deferred
// element that still matches the stream. Such elements have no children in
// memory and are exempt from child checks.
func (m *Master) deferredClean() bool {
	return m.state == StateSummaryLoaded && len(m.children) == 0 && !m.Dirty()
}

// boundsCheck verifies that the children exactly fill the master's data
// region.
func (m *Master) boundsCheck() error {
	if len(m.children) == 0 {
		if m.Size() > 0 && m.state != StateUnread && m.state != StateHeaderOnly {
			return fmt.Errorf("%w: empty master %s with size %d",
				errs.ErrInconsistent, m.Name(), m.Size())
		}

		return nil
	}
	switch end := m.EndLastChild(); {
	case end > m.Size():
		return fmt.Errorf("%w: children of %s end at %d, past size %d",
			errs.ErrInconsistent, m.Name(), end, m.Size())
	case end < m.Size():
		return fmt.Errorf("%w: children of %s end at %d, before size %d",
			errs.ErrInconsistent, m.Name(), end, m.Size())
	}

	return nil
}

// checkChildConsecutivity verifies the positional invariants only, without
// schema conformance.
func (m *Master) checkChildConsecutivity() error {
	if m.deferredClean() {
		return nil
	}
	if err := m.container.checkConsecutivity(false); err != nil {
		return err
	}

	return m.boundsCheck()
}

// CheckConsistency verifies the positional invariants and schema
// conformance of the master and all loaded descendants.
func (m *Master) CheckConsistency() error {
	if m.parent == nil {
		return fmt.Errorf("%w: %s", errs.ErrDetachedElement, m.Name())
	}
	if m.deferredClean() {
		return nil
	}
	if err := m.container.checkConsecutivity(true); err != nil {
		return err
	}
	if err := m.boundsCheck(); err != nil {
		return err
	}
	if err := m.checkAllowedChildren(m.def); err != nil {
		return err
	}

	return m.checkSchemaCardinality(m.def)
}

// Consistent reports whether CheckConsistency passes.
func (m *Master) Consistent() bool {
	return m.CheckConsistency() == nil
}

func (m *Master) write(w io.WriteSeeker, src io.ReadSeeker, sameFile bool) error {
	if m.state == StateSummaryLoaded && len(m.children) == 0 {
		// A dirty deferred master has nothing in memory to write from.
		return fmt.Errorf("%w: deferred %s was modified without loading",
			errs.ErrNotLoaded, m.Name())
	}
	if err := m.CheckConsistency(); err != nil {
		return err
	}
	hdr, err := m.hdr.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	return m.writeChildren(w, src, sameFile)
}

// writeChildren emits only dirty children; clean regions are skipped when
// writing in place and copied from the source stream otherwise. Successfully
// written children record their new stream position and go clean.
func (c *container) writeChildren(w io.WriteSeeker, src io.ReadSeeker, sameFile bool) error {
	for _, ch := range c.children {
		if !ch.Dirty() {
			if sameFile {
				if _, err := w.Seek(ch.TotalSize(), io.SeekCurrent); err != nil {
					return err
				}
			} else {
				orig, ok := ch.StreamOffset()
				if !ok {
					return fmt.Errorf("%w: %s has no stream position", errs.ErrInconsistent, ch.Name())
				}
				if err := copyRegion(w, src, orig, ch.TotalSize()); err != nil {
					return err
				}
			}
			continue
		}
		if err := ch.write(w, src, sameFile); err != nil {
			return err
		}
		ch.MarkClean()
	}

	return nil
}

// String describes the master and its child count on one line.
func (m *Master) String() string {
	n := len(m.children)
	suffix := "children"
	if n == 1 {
		suffix = "child"
	}

	return fmt.Sprintf("Master %s %s: %d %s", m.Name(), m.frame(), n, suffix)
}
