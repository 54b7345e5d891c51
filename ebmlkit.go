// Package ebmlkit reads, edits, and writes Matroska files in place.
//
// Matroska files are EBML containers: length-prefixed (ID, size, payload)
// elements nested into a tree, where the Cluster elements holding the media
// payload typically account for over 99% of the bytes. ebmlkit is built
// around never touching them: files open in summary mode (Clusters are
// skipped and frozen), edits mark only the affected subtrees dirty, padding
// Void elements absorb size changes, and saving writes nothing but the
// dirty regions.
//
// # Basic Usage
//
// Opening a file and reading metadata:
//
//	f, err := ebmlkit.Open(ctx, "movie.mkv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	fmt.Print(f.Summary())
//
// Editing a title in place:
//
//	seg, _ := f.Segment()
//	if err := seg.SetTitle("Remastered"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := f.SaveChanges(ctx, nil); err != nil { // nil = write in place
//	    log.Fatal(err)
//	}
//
// Adding an attachment:
//
//	att, _ := seg.AddAttachment("cover.jpg", "image/jpeg", "front cover")
//	att.SetData(jpegBytes)
//	err = f.SaveChanges(ctx, nil)
//
// # Package Structure
//
// This package re-exports the common entry points. The real work lives in
// the sub-packages: encoding (VINT and primitive value codecs), schema (the
// element dictionary), element (the tree, dirtiness tracking, rearrangement
// and the delta writer), matroska (Segment normalization and typed views),
// and compress (track content compression codecs).
package ebmlkit

import (
	"context"
	"io"

	"github.com/arloliu/ebmlkit/element"
	"github.com/arloliu/ebmlkit/matroska"
)

// File is a Matroska file; see matroska.File.
type File = matroska.File

// Segment is a Matroska segment; see matroska.Segment.
type Segment = matroska.Segment

// Open opens a Matroska file read-write and reads its structure in summary
// mode: every metadata element is loaded, Cluster regions are skipped and
// frozen in place.
func Open(ctx context.Context, path string, opts ...element.FileOption) (*File, error) {
	return matroska.Open(ctx, path, opts...)
}

// NewFile wraps an already-open seekable stream, reading it like Open does.
// Use element.WithReadMode to defer or deepen the initial read.
func NewFile(ctx context.Context, rs io.ReadSeeker, opts ...element.FileOption) (*File, error) {
	return matroska.NewFile(ctx, rs, opts...)
}
