package element

import (
	"fmt"

	"github.com/arloliu/ebmlkit/errs"
)

// Strategy selects how Rearrange treats padding.
type Strategy int

const (
	// StrategyPreserve keeps existing slack: gaps become Voids and the
	// container keeps its size unless it must grow.
	StrategyPreserve Strategy = iota
	// StrategyPack eliminates padding where possible, shrinking the
	// container when AllowShrink permits.
	StrategyPack
)

// RearrangeOptions controls Master.Rearrange.
type RearrangeOptions struct {
	// AllowShrink permits shrinking children whose values now encode in
	// fewer bytes, and shrinking the container itself under StrategyPack.
	AllowShrink bool
	// AllowMove permits placing children out of their current order when
	// space is reclaimed (PlaceChild paths). Rearrange itself always keeps
	// the existing order.
	AllowMove bool
	// MinVoid is the smallest Void to insert; values below the 2-byte
	// floor are raised to it.
	MinVoid int64
	// Strategy selects padding treatment.
	Strategy Strategy
	// Frozen marks additional children whose byte extent must not change.
	// Placeholder regions and unloaded deferred masters are always frozen.
	Frozen func(Element) bool
}

func (o RearrangeOptions) withDefaults() RearrangeOptions {
	if o.MinVoid < MinVoidSize {
		o.MinVoid = MinVoidSize
	}

	return o
}

// frozen reports whether e may not move or resize: placeholders covering
// cluster runs, summary-loaded deferred masters whose children are not in
// memory, and anything the caller's predicate names.
func (o *RearrangeOptions) frozen(e Element) bool {
	if _, ok := e.(*Placeholder); ok {
		return true
	}
	if m, ok := e.(interface{ deferredUnloaded() bool }); ok && m.deferredUnloaded() {
		return true
	}

	return o.Frozen != nil && o.Frozen(e)
}

// deferredUnloaded reports a master whose children were skipped by a
// summary read and are not available for rewriting.
func (m *Master) deferredUnloaded() bool {
	return m.state == StateSummaryLoaded && len(m.children) == 0
}

// Rearrange repairs the positional consistency of the master: children are
// settled bottom-up, shifted to close gaps and overlaps, and the remaining
// space is padded with Voids or reclaimed according to the options.
//
// Frozen children are hard boundaries: a repair that would move bytes
// across one fails with errs.ErrCannotRearrange.
func (m *Master) Rearrange(opts RearrangeOptions) error {
	opts = opts.withDefaults()

	// Settle master children first so their sizes are final.
	for _, ch := range m.children {
		if opts.frozen(ch) {
			continue
		}
		sub, ok := ch.(interface {
			Rearrange(RearrangeOptions) error
			checkChildConsecutivity() error
		})
		if !ok {
			continue
		}
		if sub.checkChildConsecutivity() != nil {
			if err := sub.Rearrange(opts); err != nil {
				return err
			}
		}
	}

	if err := m.packRegion(0, opts); err != nil {
		return err
	}

	// Settle the container's own size against its children.
	end := m.EndLastChild()
	switch {
	case end > m.Size():
		m.hdr.SetSize(end)
	case end < m.Size():
		if opts.Strategy == StrategyPack && opts.AllowShrink {
			m.hdr.SetSize(end)
		} else {
			gap := m.Size() - end
			if gap == 1 {
				// The smallest Void is 2 bytes; grow by one instead.
				m.hdr.SetSize(m.Size() + 1)
				gap = 2
			}
			if err := m.insertVoid(end, gap); err != nil {
				return err
			}
		}
	}

	return m.fillGaps(opts)
}

// packRegion walks the non-Void children left to right from start, moving
// each to the running cursor. Frozen children pin the cursor past their
// extent instead.
func (m *Master) packRegion(start int64, opts RearrangeOptions) error {
	// Voids are free space; drop the movable ones up front and re-derive
	// padding afterwards. Adjacent Voids coalesce as a side effect.
	for _, ch := range append([]Element(nil), m.children...) {
		if _, isVoid := ch.(*Void); isVoid && !opts.frozen(ch) && ch.Offset() >= start {
			_ = m.RemoveChild(ch)
		}
	}

	cursor := start
	var prev Element
	for _, ch := range append([]Element(nil), m.children...) {
		if ch.Offset() < start {
			continue
		}
		if opts.frozen(ch) {
			gap := ch.Offset() - cursor
			if gap < 0 {
				return fmt.Errorf("%w: %s would overlap frozen %s",
					errs.ErrCannotRearrange, nameOf(prev), ch.Name())
			}
			if gap == 1 {
				// No Void fits in one byte; stretch the previous element's
				// header over it.
				if prev == nil || !growTotalByOne(prev) {
					return fmt.Errorf("%w: 1-byte gap before frozen %s",
						errs.ErrCannotRearrange, ch.Name())
				}
			}
			cursor = ch.EndOffset()
			prev = nil

			continue
		}

		if opts.Strategy == StrategyPack && opts.AllowShrink {
			if a, ok := ch.(*Atomic); ok {
				if err := ResizeTotal(a, MinTotalSize(a)); err != nil {
					return err
				}
			}
		}
		switch gap := ch.Offset() - cursor; {
		case gap > 0 && opts.Strategy == StrategyPreserve:
			// Leave the child where it is and let the gap become a Void,
			// so a clean element stays clean. A 1-byte gap cannot hold a
			// Void: stretch the previous element over it, falling back to
			// pulling the child in.
			if gap == 1 && (prev == nil || !growTotalByOne(prev)) {
				ch.asBase().offset = cursor
			}
		case gap != 0:
			ch.asBase().offset = cursor
		}
		cursor = ch.EndOffset()
		prev = ch
	}
	m.reSort()

	return nil
}

// growTotalByOne stretches an element by one byte, absorbing a gap too
// small for a Void. The size field widens where possible, leaving the
// payload untouched; only leaf kinds that support padding fall back to
// growing the data.
func growTotalByOne(e Element) bool {
	h := e.Header()
	if h.NumBytes() < h.MaxNumBytes() {
		return h.SetNumBytes(h.NumBytes()+1) == nil
	}
	if _, isMaster := e.(*Master); isMaster {
		return false
	}
	ds, ok := e.ValidDataSizeLE(e.Size() + 1)
	if !ok || ds != e.Size()+1 {
		return false
	}

	return e.Resize(ds) == nil
}

// fillGaps replaces every internal gap between children with a Void.
func (m *Master) fillGaps(opts RearrangeOptions) error {
	var cursor int64
	for _, ch := range append([]Element(nil), m.children...) {
		gap := ch.Offset() - cursor
		if gap > 0 {
			if gap < opts.MinVoid {
				return fmt.Errorf("%w: %d-byte gap before %s",
					errs.ErrCannotRearrange, gap, ch.Name())
			}
			if err := m.insertVoid(cursor, gap); err != nil {
				return err
			}
		}
		if e := ch.EndOffset(); e > cursor {
			cursor = e
		}
	}

	return nil
}

func (m *Master) insertVoid(at, totalSize int64) error {
	v, err := NewVoid(m.reg, totalSize)
	if err != nil {
		return err
	}
	m.AddChild(v, at)

	return nil
}

// FindGap searches for free space of at least size bytes after start,
// ignoring Voids. With regionSize >= 0 the space past the last child up to
// start+regionSize counts as a gap; otherwise only internal gaps do. With
// shrink set, children before a gap are assumed shrunk to their minimum.
// Gaps of exactly size+1 bytes are skipped unless oneByteOK, because the
// leftover byte cannot hold a Void.
//
// The smallest adequate gap wins. prev is the element before the gap, if
// any.
func (m *Master) FindGap(size, start, regionSize int64, shrink, oneByteOK bool) (gapStart, gapSize int64, prev Element, found bool) {
	fits := func(gap int64) bool {
		return size <= gap-2 || size == gap || (size == gap-1 && oneByteOK)
	}
	effEnd := func(e Element) int64 {
		if shrink {
			return e.Offset() + MinTotalSize(e)
		}

		return e.EndOffset()
	}

	var nonVoid []Element
	for _, ch := range m.children {
		if _, isVoid := ch.(*Void); isVoid {
			continue
		}
		if ch.EndOffset() <= start {
			continue
		}
		nonVoid = append(nonVoid, ch)
	}

	type gap struct {
		start, size int64
		prev        Element
	}
	var gaps []gap

	if len(nonVoid) == 0 {
		if regionSize >= 0 && fits(regionSize) {
			return start, regionSize, nil, true
		}

		return 0, 0, nil, false
	}

	if g := nonVoid[0].Offset() - start; g > 0 && fits(g) {
		gaps = append(gaps, gap{start, g, nil})
	}
	for i := 1; i < len(nonVoid); i++ {
		prevEnd := effEnd(nonVoid[i-1])
		if prevEnd < start {
			prevEnd = start
		}
		if g := nonVoid[i].Offset() - prevEnd; g > 0 && fits(g) {
			gaps = append(gaps, gap{prevEnd, g, nonVoid[i-1]})
		}
	}
	if regionSize >= 0 {
		last := nonVoid[len(nonVoid)-1]
		prevEnd := effEnd(last)
		if g := start + regionSize - prevEnd; g > 0 && fits(g) {
			gaps = append(gaps, gap{prevEnd, g, last})
		}
	}

	if len(gaps) == 0 {
		return 0, 0, nil, false
	}
	best := gaps[0]
	for _, g := range gaps[1:] {
		if g.size < best.size {
			best = g
		}
	}

	return best.start, best.size, best.prev, true
}

// PlaceChild finds free space for child after start and attaches it there.
// It prefers placing without any resizing, then tries shrinking the child,
// then shrinking the element before a gap. When nothing fits and
// regionSize is unbounded, the child is appended after the last non-Void
// child; a bounded region fails with errs.ErrInsufficientSpace instead.
//
// Voids are ignored throughout; run Rearrange afterwards to restore
// padding.
func (m *Master) PlaceChild(child Element, start, regionSize int64) error {
	oneByteOK := func(total int64) bool {
		got, _, _, ok := ValidTotalSizeLE(child, total+1)

		return ok && got == total+1
	}

	place := func(at, gapSize, want int64) error {
		m.AddChild(child, at)
		if gapSize == want+1 {
			return ResizeTotal(child, gapSize)
		}
		if want != child.TotalSize() {
			return ResizeTotal(child, want)
		}

		return nil
	}

	want := child.TotalSize()
	if at, gapSize, _, ok := m.FindGap(want, start, regionSize, false, oneByteOK(want)); ok {
		return place(at, gapSize, want)
	}

	min := MinTotalSize(child)
	if min < want {
		if at, gapSize, _, ok := m.FindGap(min, start, regionSize, false, oneByteOK(min)); ok {
			return place(at, gapSize, min)
		}
		want = min
	}

	if at, gapSize, prev, ok := m.FindGap(want, start, regionSize, true, oneByteOK(want)); ok && prev != nil {
		gapEnd := at + gapSize
		prevTotal, _, _, pok := ValidTotalSizeLE(prev, gapEnd-prev.Offset()-want)
		if pok {
			if err := ResizeTotal(prev, prevTotal); err != nil {
				return err
			}
			if pm, isMaster := prev.(*Master); isMaster {
				// Shrinking a master leaves its interior to be repacked.
				if err := pm.Rearrange(RearrangeOptions{
					Strategy:    StrategyPack,
					AllowShrink: true,
				}); err != nil {
					return err
				}
			}
			return place(prev.EndOffset(), gapEnd-prev.EndOffset(), want)
		}
	}

	if regionSize >= 0 {
		return fmt.Errorf("%w: cannot fit %s", errs.ErrInsufficientSpace, child.Name())
	}
	var end int64
	for i := len(m.children) - 1; i >= 0; i-- {
		if _, isVoid := m.children[i].(*Void); !isVoid {
			end = m.children[i].EndOffset()
			break
		}
	}
	m.AddChild(child, end)

	return nil
}

// ExpandHeader widens the size field of the master's header to its maximum,
// reserving room so the element can grow later without shifting its data
// region. Children move back by the widening so their absolute positions do
// not change; the master's total size is unchanged.
//
// Expansion is skipped (returning false) when a frozen child sits too close
// to the front to absorb the shift.
func (m *Master) ExpandHeader(opts RearrangeOptions) bool {
	diff := m.hdr.MaxNumBytes() - m.hdr.NumBytes()
	if diff <= 0 || m.hdr.Size() < diff {
		return false
	}
	for _, ch := range m.children {
		if opts.frozen(ch) && ch.Offset() < diff {
			return false
		}
	}
	if err := m.hdr.SetNumBytes(m.hdr.MaxNumBytes()); err != nil {
		return false
	}
	for _, ch := range m.children {
		ch.asBase().offset -= diff
	}
	m.hdr.size -= diff
	m.reSort()

	return true
}

func nameOf(e Element) string {
	if e == nil {
		return "region start"
	}

	return e.Name()
}
