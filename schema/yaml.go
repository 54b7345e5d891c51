package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlDef is the on-disk form of a Def. IDs are written in their usual
// marker-retained hex form.
type yamlDef struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Kind      string  `yaml:"kind"`
	Parent    string  `yaml:"parent,omitempty"`
	Root      bool    `yaml:"root,omitempty"`
	Global    bool    `yaml:"global,omitempty"`
	Recursive bool    `yaml:"recursive,omitempty"`
	Mandatory bool    `yaml:"mandatory,omitempty"`
	Multiple  bool    `yaml:"multiple,omitempty"`
	Defer     bool    `yaml:"defer,omitempty"`
	Default   any     `yaml:"default,omitempty"`
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	Exclusive bool    `yaml:"exclusive,omitempty"`
}

var yamlKinds = map[string]Kind{
	"master":  KindMaster,
	"uint":    KindUint,
	"int":     KindInt,
	"float":   KindFloat,
	"string":  KindString,
	"unicode": KindUnicode,
	"date":    KindDate,
	"binary":  KindBinary,
	"void":    KindVoid,
}

// Load reads a YAML list of element definitions and returns a registry
// derived from r with those definitions merged in.
//
// The document is a sequence of mappings:
//
//	- id: 0x4DEF
//	  name: MyElement
//	  kind: uint
//	  parent: 0x18538067
//	  default: 7
//	  min: 1
//	  max: 100
//
// This is the "schema input loaded externally" hook: documents beyond plain
// Matroska can teach the reader their private elements without recompiling.
func (r *Registry) Load(src io.Reader) (*Registry, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var raw []yamlDef
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	defs := make([]Def, 0, len(raw))
	for i, y := range raw {
		d, err := y.toDef()
		if err != nil {
			return nil, fmt.Errorf("schema entry %d: %w", i, err)
		}
		defs = append(defs, d)
	}

	return r.Extend(defs), nil
}

func (y *yamlDef) toDef() (Def, error) {
	var d Def

	id, err := parseID(y.ID)
	if err != nil {
		return d, err
	}
	kind, ok := yamlKinds[y.Kind]
	if !ok {
		return d, fmt.Errorf("unknown kind %q", y.Kind)
	}
	if y.Name == "" {
		return d, fmt.Errorf("missing name for id %s", id)
	}

	d = Def{
		ID:        id,
		Name:      y.Name,
		Kind:      kind,
		Root:      y.Root,
		Global:    y.Global,
		Recursive: y.Recursive,
		Mandatory: y.Mandatory,
		Multiple:  y.Multiple,
		Defer:     y.Defer,
		Default:   normalizeDefault(y.Default),
	}
	if y.Parent != "" {
		if d.Parent, err = parseID(y.Parent); err != nil {
			return d, err
		}
	}
	if !d.Root && !d.Global && d.Parent == 0 {
		return d, fmt.Errorf("%q needs a parent, root or global placement", y.Name)
	}
	if y.Min != nil || y.Max != nil {
		rng := &Range{Min: -1e308, Max: 1e308, Exclusive: y.Exclusive}
		if y.Min != nil {
			rng.Min = *y.Min
		}
		if y.Max != nil {
			rng.Max = *y.Max
		}
		d.Range = rng
	}

	return d, nil
}

func parseID(s string) (ID, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "0x%x", &v); err != nil {
		return 0, fmt.Errorf("invalid element ID %q", s)
	}
	id := ID(v)
	if id.Width() == 0 {
		return 0, fmt.Errorf("element ID %q is not a valid marker-retained ID", s)
	}

	return id, nil
}

// normalizeDefault maps YAML scalar types onto the types Def.Default uses.
func normalizeDefault(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return uint64(t)
	case int64:
		return uint64(t)
	case uint64, float64, string:
		return t
	default:
		return nil
	}
}
