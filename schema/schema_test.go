package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatroskaRegistry(t *testing.T) {
	reg := Matroska()

	seg := reg.Get(IDSegment)
	require.NotNil(t, seg)
	require.Equal(t, "Segment", seg.Name)
	require.Equal(t, KindMaster, seg.Kind)
	require.True(t, seg.Root)

	void := reg.Get(IDVoid)
	require.NotNil(t, void)
	require.Equal(t, KindVoid, void.Kind)
	require.True(t, void.Global)

	require.Nil(t, reg.Get(ID(0x4FFF)))
	require.Equal(t, reg.Get(IDTitle), reg.ByName("Title"))
}

func TestIDString(t *testing.T) {
	require.Equal(t, "EC", IDVoid.String())
	require.Equal(t, "1A:45:DF:A3", IDEBML.String())
	require.Equal(t, 4, IDSegment.Width())
	require.Equal(t, []byte{0x18, 0x53, 0x80, 0x67}, IDSegment.Bytes())
}

func TestIsChildOf(t *testing.T) {
	reg := Matroska()
	segment := reg.Get(IDSegment)
	info := reg.Get(IDInfo)
	title := reg.Get(IDTitle)
	void := reg.Get(IDVoid)
	chapterAtom := reg.Get(IDChapterAtom)

	require.True(t, info.IsChildOf(segment))
	require.True(t, title.IsChildOf(info))
	require.False(t, title.IsChildOf(segment))
	require.False(t, info.IsChildOf(nil))
	require.True(t, segment.IsChildOf(nil))

	// Globals fit anywhere.
	require.True(t, void.IsChildOf(segment))
	require.True(t, void.IsChildOf(nil))

	// ChapterAtom nests inside itself.
	require.True(t, chapterAtom.IsChildOf(chapterAtom))
}

func TestRequiredAndDefaults(t *testing.T) {
	reg := Matroska()

	// MuxingApp is mandatory with no default.
	require.True(t, reg.ByName("MuxingApp").Required())
	// TimecodeScale is mandatory upstream but has a default, so a parent
	// missing it is still consistent.
	ts := reg.ByName("TimecodeScale")
	require.False(t, ts.Required())
	require.Equal(t, uint64(1000000), ts.DefaultUint())
	require.Equal(t, "eng", reg.ByName("Language").DefaultString())
}

func TestRange(t *testing.T) {
	var r *Range
	require.True(t, r.Contains(123)) // nil range allows everything

	r = &Range{Min: 1, Max: 10}
	require.True(t, r.Contains(1))
	require.True(t, r.Contains(10))
	require.False(t, r.Contains(0))

	r = &Range{Min: 0, Max: 10, Exclusive: true}
	require.False(t, r.Contains(0))
	require.True(t, r.Contains(5))
	require.False(t, r.Contains(10))
}

func TestLoadYAML(t *testing.T) {
	doc := `
- id: 0x4DEF
  name: CustomCounter
  kind: uint
  parent: 0x1549A966
  default: 7
  min: 1
  max: 100
- id: 0x4DE0
  name: CustomBlob
  kind: binary
  parent: 0x18538067
  multiple: true
`
	reg, err := Matroska().Load(strings.NewReader(doc))
	require.NoError(t, err)

	d := reg.Get(ID(0x4DEF))
	require.NotNil(t, d)
	require.Equal(t, "CustomCounter", d.Name)
	require.Equal(t, KindUint, d.Kind)
	require.Equal(t, IDInfo, d.Parent)
	require.Equal(t, uint64(7), d.DefaultUint())
	require.NotNil(t, d.Range)
	require.False(t, d.Range.Contains(0))

	// The original registry is untouched.
	require.Nil(t, Matroska().Get(ID(0x4DEF)))
	// Existing entries survive the merge.
	require.NotNil(t, reg.Get(IDSegment))
}

func TestLoadYAMLErrors(t *testing.T) {
	_, err := Matroska().Load(strings.NewReader(`- id: 0x4DEF
  name: X
  kind: wobble
  parent: 0xEC`))
	require.Error(t, err)

	_, err = Matroska().Load(strings.NewReader(`- id: notanid
  name: X
  kind: uint
  root: true`))
	require.Error(t, err)

	// Placement is required.
	_, err = Matroska().Load(strings.NewReader(`- id: 0x4DEF
  name: X
  kind: uint`))
	require.Error(t, err)
}
