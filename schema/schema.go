// Package schema describes EBML element dictionaries: the mapping from
// element IDs to names, primitive kinds, cardinality rules, defaults and
// value ranges. The core packages consume a Registry read-only; the built-in
// Matroska dictionary lives in matroska.go and user extensions can be merged
// from YAML.
package schema

import (
	"fmt"

	"github.com/arloliu/ebmlkit/encoding"
)

// ID is an EBML element ID in marker-retained form: the leading 1-bit width
// marker is part of the value, so Void is 0xEC and Segment is 0x18538067.
// Two IDs are equal iff their canonical encodings are equal, which for this
// representation is plain integer equality.
type ID uint64

// Width returns the encoded width of the ID in bytes, or 0 if the ID is not
// encodable.
func (id ID) Width() int {
	return encoding.IDWidth(uint64(id))
}

// Bytes returns the canonical encoding of the ID.
func (id ID) Bytes() []byte {
	b, err := encoding.AppendID(nil, uint64(id))
	if err != nil {
		return nil
	}

	return b
}

// String formats the ID as colon-separated hex pairs, e.g. "1A:45:DF:A3".
func (id ID) String() string {
	b := id.Bytes()
	if b == nil {
		return fmt.Sprintf("[invalid ID %#x]", uint64(id))
	}

	return encoding.HexBytes(b)
}

// Kind is the primitive payload type of an element.
type Kind int

const (
	KindMaster Kind = iota
	KindUint
	KindInt
	KindFloat
	KindString  // ASCII
	KindUnicode // UTF-8
	KindDate
	KindBinary
	KindVoid
)

var kindNames = map[Kind]string{
	KindMaster:  "master",
	KindUint:    "uint",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindUnicode: "unicode",
	KindDate:    "date",
	KindBinary:  "binary",
	KindVoid:    "void",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Range restricts the values of a numeric element. Min and Max are compared
// as float64 regardless of the element kind; Exclusive makes both bounds
// strict, which Matroska uses for float ranges.
type Range struct {
	Min       float64
	Max       float64
	Exclusive bool
}

// Contains reports whether v satisfies the range.
func (r *Range) Contains(v float64) bool {
	if r == nil {
		return true
	}
	if r.Exclusive {
		return v > r.Min && v < r.Max
	}

	return v >= r.Min && v <= r.Max
}

// Def describes one element of a document type.
type Def struct {
	ID   ID
	Name string
	Kind Kind

	// Parent is the ID of the single permitted parent, or 0 when Root or
	// Global is set instead.
	Parent ID
	// Root marks a level-0 element (permitted directly in a file).
	Root bool
	// Global marks an element permitted under any parent (Void, CRC-32).
	Global bool
	// Recursive additionally permits the element under itself (ChapterAtom).
	Recursive bool

	// Mandatory children are required to be present in a consistent parent;
	// an element with a declared Default is never treated as mandatory,
	// matching the Matroska rule that defaulted elements may be omitted.
	Mandatory bool
	// Multiple permits more than one instance under one parent.
	Multiple bool

	// Defer marks a Master whose children are skipped in summary reads
	// (Cluster, Cues).
	Defer bool

	// Default is the value an accessor reports when the child is absent:
	// uint64, int64, float64, string or nil.
	Default any
	// Range restricts numeric values; checked on set and by consistency.
	Range *Range
	// DataSizeMin reserves a minimum encoded payload width, so later value
	// changes fit without relayout (SeekPosition uses 8).
	DataSizeMin int64
}

// IsChildOf reports whether the schema permits this element under parent.
// A nil parent def stands for the file level.
func (d *Def) IsChildOf(parent *Def) bool {
	if d.Global {
		return true
	}
	if parent == nil {
		return d.Root
	}
	if d.Parent == parent.ID && !d.Root {
		return true
	}

	return d.Recursive && d.ID == parent.ID
}

// Required reports whether a consistent parent must contain this element.
// Defs with a declared Default are never required.
func (d *Def) Required() bool {
	return d.Mandatory && d.Default == nil
}

// DefaultUint returns the default as an unsigned integer, or 0.
func (d *Def) DefaultUint() uint64 {
	switch v := d.Default.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// DefaultString returns the default as a string, or "".
func (d *Def) DefaultString() string {
	if s, ok := d.Default.(string); ok {
		return s
	}

	return ""
}

// DefaultFloat returns the default as a float, or 0.
func (d *Def) DefaultFloat() float64 {
	switch v := d.Default.(type) {
	case float64:
		return v
	case uint64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Registry is a read-only element dictionary keyed by ID and by name.
type Registry struct {
	byID   map[ID]*Def
	byName map[string]*Def
}

// NewRegistry builds a registry from a list of defs. Later entries override
// earlier ones with the same ID.
func NewRegistry(defs []Def) *Registry {
	r := &Registry{
		byID:   make(map[ID]*Def, len(defs)),
		byName: make(map[string]*Def, len(defs)),
	}
	for i := range defs {
		r.add(&defs[i])
	}

	return r
}

func (r *Registry) add(d *Def) {
	r.byID[d.ID] = d
	r.byName[d.Name] = d
}

// Get returns the def for an ID, or nil if the ID is not part of the
// dictionary (the caller constructs an Unsupported element then).
func (r *Registry) Get(id ID) *Def {
	return r.byID[id]
}

// ByName returns the def with the given name, or nil.
func (r *Registry) ByName(name string) *Def {
	return r.byName[name]
}

// MustByName returns the def with the given name and panics if it does not
// exist. Intended for compiled-in names.
func (r *Registry) MustByName(name string) *Def {
	d := r.byName[name]
	if d == nil {
		panic(fmt.Sprintf("schema: unknown element name %q", name))
	}

	return d
}

// Roots returns all level-0 defs.
func (r *Registry) Roots() []*Def {
	var out []*Def
	for _, d := range r.byID {
		if d.Root {
			out = append(out, d)
		}
	}

	return out
}

// ChildrenOf returns the defs whose declared parent is the given def.
func (r *Registry) ChildrenOf(parent *Def) []*Def {
	var out []*Def
	for _, d := range r.byID {
		if !d.Root && !d.Global && d.Parent == parent.ID {
			out = append(out, d)
		}
	}

	return out
}

// Len returns the number of defs in the registry.
func (r *Registry) Len() int {
	return len(r.byID)
}
