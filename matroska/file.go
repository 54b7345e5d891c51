package matroska

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/arloliu/ebmlkit/element"
	"github.com/arloliu/ebmlkit/errs"
)

// File is a Matroska file: the generic element File with the Segment
// factory installed and the Matroska-specific save pass.
type File struct {
	*element.File
}

// Open opens a Matroska file read-write and reads it in summary mode by
// default.
func Open(ctx context.Context, path string, opts ...element.FileOption) (*File, error) {
	f, err := element.Open(ctx, path, withFactory(opts)...)
	if err != nil {
		return nil, err
	}

	return &File{File: f}, nil
}

// NewFile wraps an already-open seekable stream.
func NewFile(ctx context.Context, rs io.ReadSeeker, opts ...element.FileOption) (*File, error) {
	f, err := element.NewFile(ctx, rs, withFactory(opts)...)
	if err != nil {
		return nil, err
	}

	return &File{File: f}, nil
}

func withFactory(opts []element.FileOption) []element.FileOption {
	return append([]element.FileOption{element.WithFactory(Factory)}, opts...)
}

// Segments iterates over the file's Segment elements.
func (f *File) Segments() iter.Seq[*Segment] {
	return func(yield func(*Segment) bool) {
		for _, ch := range f.Children() {
			if s, ok := ch.(*Segment); ok && !yield(s) {
				return
			}
		}
	}
}

// Segment returns the first segment. ok is false for a file without one.
func (f *File) Segment() (*Segment, bool) {
	for s := range f.Segments() {
		return s, true
	}

	return nil, false
}

// Head returns the EBML header view. ok is false when the element is
// missing.
func (f *File) Head() (EBMLHead, bool) {
	for _, ch := range f.Children() {
		if m, ok := ch.(*element.Master); ok && m.Name() == "EBML" {
			return EBMLHead{M: m}, true
		}
	}

	return EBMLHead{}, false
}

// SaveChanges normalizes every dirty Segment whose layout is inconsistent
// and writes the deltas to dst (nil writes in place). Top-level children keep their positions; schema
// and version problems surface before any byte is written.
//
// When dst is the backing file itself, writing to a temporary and renaming
// is the safer pattern for irreplaceable inputs: a failed in-place write
// leaves the file partially updated.
func (f *File) SaveChanges(ctx context.Context, dst io.WriteSeeker) error {
	head, ok := f.Head()
	if !ok {
		return fmt.Errorf("%w: EBML", errs.ErrMissingRequired)
	}
	if !head.CheckWriteHandled() {
		return fmt.Errorf("%w: doctype %q version %d",
			errs.ErrUnhandledVersion, head.DocType(), head.DocTypeVersion())
	}

	// Only a segment whose layout is actually broken needs the normalize
	// pass; an edit the caller already rearranged writes just its own
	// subtree.
	for s := range f.Segments() {
		if !s.Dirty() || s.Consistent() {
			continue
		}
		if err := s.Normalize(NormalizeOptions{}); err != nil {
			return err
		}
	}

	return f.WriteChanges(ctx, dst)
}
