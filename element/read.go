package element

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/internal/pool"
	"github.com/arloliu/ebmlkit/schema"
)

// findChildAt returns the child starting exactly at the given relative
// offset, or nil.
func (c *container) findChildAt(offset int64) Element {
	for _, ch := range c.children {
		if ch.Offset() == offset {
			return ch
		}
		if ch.Offset() > offset {
			break
		}
	}

	return nil
}

// readRegion reads elements from [start, start+length) of the container's
// data region, creating children as it goes. Existing children are reused
// and skipped over; partially loaded ones are completed.
func (c *container) readRegion(r io.ReadSeeker, start, length int64, summary bool) error {
	if _, ok := c.self.DataOffset(); !ok {
		return fmt.Errorf("%w: container is detached", errs.ErrDetachedElement)
	}
	pos := start
	end := start + length
	for pos < end {
		// Seek per element: a summary read of a child (the Segment's
		// SeekHead-guided scan) can leave the stream anywhere.
		ch, err := c.readElement(r, pos, end-pos, summary, true)
		if err != nil {
			return err
		}
		pos += ch.TotalSize()
	}

	return nil
}

// readElement reads the element starting at relative offset start. remain
// bounds the element's extent, resolving the reserved unknown-size marker
// for top-level masters. With seekFirst false the stream must already be
// positioned at the element's header.
//
// A child already present at that offset is reused: fully loaded children
// (and summary-loaded ones during a summary read) are skipped; partially
// loaded ones are completed. Newly read children come back clean.
func (c *container) readElement(r io.ReadSeeker, start, remain int64, summary, seekFirst bool) (Element, error) {
	dataAbs, ok := c.self.DataOffset()
	if !ok {
		return nil, fmt.Errorf("%w: container is detached", errs.ErrDetachedElement)
	}
	if seekFirst {
		if _, err := r.Seek(dataAbs+start, io.SeekStart); err != nil {
			return nil, err
		}
	}

	if ch := c.findChildAt(start); ch != nil {
		state := ch.ReadState()
		if state == StateFullyLoaded || (state == StateSummaryLoaded && summary) {
			if _, err := r.Seek(dataAbs+start+ch.TotalSize(), io.SeekStart); err != nil {
				return nil, err
			}

			return ch, nil
		}
		// Partially loaded: skip the header, read the data.
		if _, err := r.Seek(dataAbs+start+ch.HeaderSize(), io.SeekStart); err != nil {
			return nil, err
		}
		if summary {
			return ch, ch.ReadSummary(r)
		}

		return ch, ch.ReadData(r)
	}

	hdr, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	if hdr.UnknownSize() {
		// The reserved all-ones size is only supported on top-level
		// masters; the element then extends to the end of the region.
		def := c.reg.Get(hdr.ID())
		if c.self.ChildLevel() != 0 || def == nil || def.Kind != schema.KindMaster {
			return nil, fmt.Errorf("%w: element [%s]", errs.ErrUnknownSize, hdr.ID())
		}
		hdr.resolveUnknown(remain - hdr.NumBytes())
	}
	if hdr.NumBytes()+hdr.Size() > remain {
		return nil, fmt.Errorf("%w: element [%s] extends past its region",
			errs.ErrUnexpectedEOF, hdr.ID())
	}

	ch := newElement(hdr, c.reg, c.fac)
	ch.asBase().state = StateHeaderOnly
	c.AddChild(ch, start)
	if summary {
		err = ch.ReadSummary(r)
	} else {
		err = ch.ReadData(r)
	}
	if err != nil {
		// Leave the partially read child attached; the caller can inspect
		// its ReadState.
		return ch, err
	}
	ch.MarkClean()

	return ch, nil
}

// peekID decodes the header at the given relative offset and returns its ID
// without consuming it.
func (c *container) peekID(r io.ReadSeeker, start int64) (schema.ID, bool) {
	dataAbs, ok := c.self.DataOffset()
	if !ok {
		return 0, false
	}
	if _, err := r.Seek(dataAbs+start, io.SeekStart); err != nil {
		return 0, false
	}
	hdr, err := DecodeHeader(r)
	if err != nil {
		return 0, false
	}

	return hdr.ID(), true
}

// copyRegion copies length bytes of src starting at offset to the current
// position of w.
func copyRegion(w io.Writer, src io.ReadSeeker, offset, length int64) error {
	if src == nil {
		return errs.ErrNoStream
	}
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	buf := pool.GetCopyBuffer()
	defer pool.PutCopyBuffer(buf)
	n, err := io.CopyBuffer(struct{ io.Writer }{w}, io.LimitReader(src, length), *buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: %w", errs.ErrUnexpectedEOF, err)
		}

		return err
	}
	if n != length {
		return fmt.Errorf("%w: copied %d of %d bytes", errs.ErrUnexpectedEOF, n, length)
	}

	return nil
}
