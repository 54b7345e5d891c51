package element

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/internal/options"
	"github.com/arloliu/ebmlkit/schema"
)

// ReadMode selects how much of the stream Open loads up front.
type ReadMode int

const (
	// ReadSummaryMode reads every top-level element in summary mode,
	// skipping deferred masters and Cluster regions. The default.
	ReadSummaryMode ReadMode = iota
	// ReadAllMode reads everything eagerly.
	ReadAllMode
	// ReadNothingMode opens the stream without reading; call ReadSummary or
	// ReadAll explicitly.
	ReadNothingMode
)

// File is a seekable byte source together with its top-level elements. It is
// not itself an element (there is no header); it shares the container
// behavior of Master by composition.
//
// The backing source is owned exclusively: no element of the tree may be
// shared across goroutines, and the source must outlive the File.
type File struct {
	container
	stream io.ReadSeeker
	size   int64
	closer io.Closer
	mode   ReadMode
}

// FileOption configures Open and NewFile.
type FileOption = options.Option[*File]

// WithRegistry substitutes the element dictionary; the default is the
// built-in Matroska registry.
func WithRegistry(reg *schema.Registry) FileOption {
	return options.NoError(func(f *File) { f.container.reg = reg })
}

// WithFactory installs an element factory consulted for every top-level
// header, letting callers substitute richer element types for selected IDs.
func WithFactory(fac Factory) FileOption {
	return options.NoError(func(f *File) { f.container.fac = fac })
}

// WithReadMode selects how much of the stream is loaded on open.
func WithReadMode(mode ReadMode) FileOption {
	return options.NoError(func(f *File) { f.mode = mode })
}

// NewFile wraps an open seekable stream. Unless configured otherwise, the
// stream's top-level elements are read in summary mode before returning.
func NewFile(ctx context.Context, rs io.ReadSeeker, opts ...FileOption) (*File, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	f := &File{stream: rs, size: size}
	f.container.self = f
	f.container.reg = schema.Matroska()
	if err := options.Apply(f, opts...); err != nil {
		return nil, err
	}

	switch f.mode {
	case ReadSummaryMode:
		err = f.ReadSummary(ctx)
	case ReadAllMode:
		err = f.ReadAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Open opens path read-write and reads its top-level elements. Close
// releases the handle.
func Open(ctx context.Context, path string, opts ...FileOption) (*File, error) {
	h, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	f, err := NewFile(ctx, h, opts...)
	if err != nil {
		h.Close()

		return nil, err
	}
	f.closer = h

	return f, nil
}

// Close releases the backing stream if Open acquired it.
func (f *File) Close() error {
	f.stream = nil
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil

	return err
}

// Stream returns the backing stream.
func (f *File) Stream() io.ReadSeeker { return f.stream }

// StreamSize returns the size of the backing stream as measured on open.
func (f *File) StreamSize() int64 { return f.size }

// Registry returns the element dictionary in use.
func (f *File) Registry() *schema.Registry { return f.container.reg }

// DataOffset implements Parent: top-level elements are positioned against
// stream offset zero.
func (f *File) DataOffset() (int64, bool) { return 0, true }

// ChildLevel implements Parent.
func (f *File) ChildLevel() int { return 0 }

// Dirty reports whether any top-level element needs writing.
func (f *File) Dirty() bool {
	for _, ch := range f.children {
		if ch.Dirty() {
			return true
		}
	}

	return false
}

// ReadSummary reads every top-level element in summary mode. Cancellation
// is honored between top-level elements.
func (f *File) ReadSummary(ctx context.Context) error {
	return f.read(ctx, true)
}

// ReadAll reads every element eagerly.
func (f *File) ReadAll(ctx context.Context) error {
	return f.read(ctx, false)
}

func (f *File) read(ctx context.Context, summary bool) error {
	if f.stream == nil {
		return errs.ErrNoStream
	}
	var pos int64
	for pos < f.size {
		if err := ctx.Err(); err != nil {
			return err
		}
		ch, err := f.readElement(f.stream, pos, f.size-pos, summary, true)
		if err != nil {
			return err
		}
		pos += ch.TotalSize()
	}

	return nil
}

// CheckConsistency verifies the top-level layout: elements are consecutive
// from offset zero, only level-0 elements appear, and the schema's
// mandatory and unique rules hold.
func (f *File) CheckConsistency() error {
	if err := f.container.checkConsecutivity(true); err != nil {
		return err
	}
	if err := f.checkAllowedChildren(nil); err != nil {
		return err
	}

	return f.checkSchemaCardinality(nil)
}

// WriteChanges walks the tree and writes only dirty subtrees to dst,
// seeking over clean regions when dst is the backing stream itself and
// copying them from the source otherwise. A nil dst writes in place.
//
// Nothing is written if the tree is inconsistent. Cancellation is honored
// between top-level elements; the destination may then hold a partial
// write.
func (f *File) WriteChanges(ctx context.Context, dst io.WriteSeeker) error {
	if f.stream == nil {
		return errs.ErrNoStream
	}
	if dst == nil {
		ws, ok := f.stream.(io.WriteSeeker)
		if !ok {
			return fmt.Errorf("%w: backing stream is not writable", errs.ErrNoStream)
		}
		dst = ws
	}
	sameFile := any(dst) == any(f.stream)

	if err := f.CheckConsistency(); err != nil {
		return err
	}

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return err
	}
	for _, ch := range f.children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ch.Dirty() {
			if sameFile {
				if _, err := dst.Seek(ch.TotalSize(), io.SeekCurrent); err != nil {
					return err
				}
			} else {
				orig, ok := ch.StreamOffset()
				if !ok {
					return fmt.Errorf("%w: %s has no stream position",
						errs.ErrInconsistent, ch.Name())
				}
				if err := copyRegion(dst, f.stream, orig, ch.TotalSize()); err != nil {
					return err
				}
			}
			continue
		}
		if err := ch.write(dst, f.stream, sameFile); err != nil {
			return err
		}
		ch.MarkClean()
	}

	if end, err := dst.Seek(0, io.SeekCurrent); err == nil && sameFile && end > f.size {
		f.size = end
	}

	return nil
}

func (f *File) String() string {
	n := len(f.children)
	suffix := "children"
	if n == 1 {
		suffix = "child"
	}

	return fmt.Sprintf("File: size=%d, %d %s", f.size, n, suffix)
}
