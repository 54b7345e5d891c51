// Package errs defines the sentinel errors shared across ebmlkit packages.
//
// Callers are expected to match with errors.Is. Schema violation reasons are
// pre-wrapped around ErrSchemaViolation, so both the umbrella sentinel and the
// specific reason match:
//
//	if errors.Is(err, errs.ErrSchemaViolation) { ... }
//	if errors.Is(err, errs.ErrMissingRequired) { ... }
package errs

import (
	"errors"
	"fmt"
)

// Data-level decode errors.
var (
	// ErrMalformedVINT indicates a variable-length integer whose length
	// descriptor is invalid (zero first byte or wider than the allowed
	// maximum).
	ErrMalformedVINT = errors.New("malformed VINT")

	// ErrVINTTooLarge indicates a value that does not fit into the widest
	// permitted VINT encoding.
	ErrVINTTooLarge = errors.New("value too large for VINT")

	// ErrUnexpectedEOF indicates the stream ended in the middle of an
	// encoded element.
	ErrUnexpectedEOF = errors.New("unexpected end of stream")

	// ErrInvalidUTF8 indicates a Unicode element whose payload is not valid
	// UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 sequence")

	// ErrValueOutOfRange indicates a value outside the range the schema
	// declares for its element.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrInvalidFloatSize indicates a Float element whose payload is neither
	// 0, 4 nor 8 bytes.
	ErrInvalidFloatSize = errors.New("invalid float size")

	// ErrInvalidDateSize indicates a Date element whose payload is neither 0
	// nor 8 bytes.
	ErrInvalidDateSize = errors.New("invalid date size")

	// ErrKindMismatch indicates a typed accessor used against an element of
	// a different primitive kind.
	ErrKindMismatch = errors.New("element kind mismatch")

	// ErrReservedID indicates an element ID with all value bits set, which
	// EBML reserves.
	ErrReservedID = errors.New("reserved element ID")

	// ErrUnknownSize indicates the reserved all-ones data size in a context
	// that does not support it (only top-level Master elements do).
	ErrUnknownSize = errors.New("unknown element size not permitted here")
)

// Schema conformance errors, reported by consistency checks.
var (
	// ErrSchemaViolation is the umbrella sentinel for all schema conformance
	// failures.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrDisallowedChild indicates a child whose ID the schema does not
	// permit under its parent.
	ErrDisallowedChild = fmt.Errorf("%w: disallowed child", ErrSchemaViolation)

	// ErrMissingRequired indicates an absent child the schema marks
	// mandatory.
	ErrMissingRequired = fmt.Errorf("%w: missing required child", ErrSchemaViolation)

	// ErrDuplicateUnique indicates more than one instance of a child the
	// schema marks unique.
	ErrDuplicateUnique = fmt.Errorf("%w: duplicate unique child", ErrSchemaViolation)

	// ErrBadValue indicates an atomic value outside its schema-declared
	// range.
	ErrBadValue = fmt.Errorf("%w: bad value", ErrSchemaViolation)
)

// Layout and lifecycle errors.
var (
	// ErrInconsistent indicates a container whose children are not
	// byte-consistent; it cannot be written until Rearrange or Normalize
	// repairs it.
	ErrInconsistent = errors.New("inconsistent container layout")

	// ErrInsufficientSpace indicates a size-fixed container whose children
	// no longer fit.
	ErrInsufficientSpace = errors.New("insufficient space in container")

	// ErrSegmentFull indicates that a Segment's fresh SeekHead does not fit
	// in the head region before the first frozen region during
	// normalization. Other children that do not fit there move to the tail,
	// which grows as needed.
	ErrSegmentFull = errors.New("segment metadata regions full")

	// ErrCannotRearrange indicates a relocation that would straddle a frozen
	// byte region (Clusters, Cues).
	ErrCannotRearrange = errors.New("cannot rearrange across frozen region")

	// ErrUnsupportedElement indicates an attempt to modify or write a
	// modified element whose ID is absent from the schema.
	ErrUnsupportedElement = errors.New("unsupported element")

	// ErrInvalidVoidSize indicates an attempt to create a Void smaller than
	// the 2-byte minimum (1-byte ID plus 1-byte size field).
	ErrInvalidVoidSize = errors.New("void smaller than 2 bytes")

	// ErrNotLoaded indicates an operation that needs element data which has
	// not been read yet.
	ErrNotLoaded = errors.New("element data not loaded")

	// ErrDetachedElement indicates an element without a parent where one is
	// required.
	ErrDetachedElement = errors.New("element has no parent")

	// ErrNoStream indicates a File whose backing stream has been closed.
	ErrNoStream = errors.New("backing stream closed")

	// ErrUnhandledVersion indicates an EBML header whose version fields this
	// library cannot honor on write.
	ErrUnhandledVersion = errors.New("unhandled document version")

	// ErrUnknownCompression indicates a ContentCompression algorithm this
	// library has no codec for.
	ErrUnknownCompression = errors.New("unknown content compression algorithm")
)
