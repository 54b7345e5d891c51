package element

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

func TestOpenSummaryAndRoundTrip(t *testing.T) {
	src := newMemFile(ebmlHead())
	f, err := NewFile(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, f.Children(), 1)
	head, ok := f.Children()[0].(*Master)
	require.True(t, ok)
	require.Equal(t, "EBML", head.Name())
	require.Equal(t, ReadState(StateSummaryLoaded), head.ReadState())
	require.Len(t, head.Children(), 7)
	require.False(t, f.Dirty())

	// Saving without mutations to a separate sink reproduces the input
	// byte for byte.
	dst := newMemFile(nil)
	require.NoError(t, f.WriteChanges(context.Background(), dst))
	require.Equal(t, src.bytes(), dst.bytes())

	// Saving in place touches nothing.
	require.NoError(t, f.WriteChanges(context.Background(), nil))
	require.Empty(t, src.writes)
}

func TestReadRecordsPositions(t *testing.T) {
	data := ebmlHead()
	f, err := NewFile(context.Background(), newMemFile(data))
	require.NoError(t, err)

	head := f.Children()[0].(*Master)
	off, ok := head.StreamOffset()
	require.True(t, ok)
	require.Equal(t, int64(0), off)
	require.Equal(t, int64(len(data)), head.TotalSize())

	version := head.Children()[0].(*Atomic)
	require.Equal(t, "EBMLVersion", version.Name())
	require.Equal(t, uint64(1), version.Uint())
	abs, ok := version.AbsOffset()
	require.True(t, ok)
	require.Equal(t, head.HeaderSize(), abs)
	require.Equal(t, head, version.Parent())
}

func TestDirtyClosure(t *testing.T) {
	f, err := NewFile(context.Background(), newMemFile(ebmlHead()))
	require.NoError(t, err)

	head := f.Children()[0].(*Master)
	version := head.ChildNamed("EBMLVersion").(*Atomic)
	require.False(t, version.Dirty())

	require.NoError(t, version.SetUint(1)) // same value, same size
	require.False(t, version.Dirty())
	require.False(t, f.Dirty())

	require.NoError(t, version.SetUint(2))
	require.True(t, version.Dirty())
	require.True(t, head.Dirty())
	require.True(t, f.Dirty())
}

func TestInPlaceValueEdit(t *testing.T) {
	src := newMemFile(ebmlHead())
	f, err := NewFile(context.Background(), src)
	require.NoError(t, err)

	head := f.Children()[0].(*Master)
	version := head.ChildNamed("EBMLVersion").(*Atomic)
	require.NoError(t, version.SetUint(2))

	require.NoError(t, f.WriteChanges(context.Background(), nil))
	require.False(t, f.Dirty())

	// Only the EBML subtree was touched.
	require.True(t, src.wroteIn(0, head.TotalSize()))

	f2, err := NewFile(context.Background(), newMemFile(src.bytes()))
	require.NoError(t, err)
	head2 := f2.Children()[0].(*Master)
	require.Equal(t, uint64(2), head2.ChildNamed("EBMLVersion").(*Atomic).Uint())
}

func TestShrinkingEditAndRearrange(t *testing.T) {
	// DocType "yy" followed by a 6-byte Void of slack.
	head := bin(0x1A45DFA3,
		uintEl(0x4286, 1),
		strEl(0x4282, "yy"),
		voidEl(6),
	)
	src := newMemFile(head)
	f, err := NewFile(context.Background(), src)
	require.NoError(t, err)

	m := f.Children()[0].(*Master)
	docType := m.ChildNamed("DocType").(*Atomic)
	require.NoError(t, docType.SetText("x"))
	require.Equal(t, int64(1), docType.Size())

	// The shrink left a 1-byte hole; the layout is broken until repaired.
	require.False(t, m.Consistent())
	require.NoError(t, m.Rearrange(RearrangeOptions{Strategy: StrategyPreserve}))
	require.True(t, m.Consistent())

	// The slack Void absorbed the freed byte; the master kept its size.
	require.Equal(t, int64(len(head)), m.TotalSize())
	v, ok := m.ChildNamed("Void").(*Void)
	require.True(t, ok)
	require.Equal(t, int64(7), v.TotalSize())

	require.NoError(t, f.WriteChanges(context.Background(), nil))
	require.Len(t, src.bytes(), len(head))

	f2, err := NewFile(context.Background(), newMemFile(src.bytes()))
	require.NoError(t, err)
	m2 := f2.Children()[0].(*Master)
	require.Equal(t, "x", m2.ChildNamed("DocType").(*Atomic).Text())
	require.True(t, m2.Consistent())
}

func TestUnknownIDPassthrough(t *testing.T) {
	unknown := bin(0x4FFF, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	data := concat(ebmlHead(), unknown)
	src := newMemFile(data)
	f, err := NewFile(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, f.Children(), 2)
	u, ok := f.Children()[1].(*Unsupported)
	require.True(t, ok)
	require.Nil(t, u.Def())
	require.False(t, u.Dirty())

	// Round-trip to a fresh sink is bit-exact.
	dst := newMemFile(nil)
	require.NoError(t, f.WriteChanges(context.Background(), dst))
	require.Equal(t, data, dst.bytes())

	// Mutation is refused.
	require.ErrorIs(t, u.Resize(10), errs.ErrUnsupportedElement)
}

func TestMissingRequiredChildBlocksWrite(t *testing.T) {
	// A Seek entry with a SeekPosition but no SeekID: positionally fine,
	// schema-invalid.
	seek := bin(0x4DBB, binW(0x53AC, 1, make([]byte, 8)))
	seekHead := bin(0x114D9B74, seek)
	info := bin(0x1549A966,
		strEl(0x4D80, "mux"),
		strEl(0x5741, "wri"),
	)
	segment := bin(0x18538067, seekHead, info)
	src := newMemFile(concat(ebmlHead(), segment))

	f, err := NewFile(context.Background(), src)
	require.NoError(t, err)

	dst := newMemFile(nil)
	err = f.WriteChanges(context.Background(), dst)
	require.ErrorIs(t, err, errs.ErrMissingRequired)
	require.ErrorIs(t, err, errs.ErrSchemaViolation)
	require.Empty(t, dst.writes)
}

func TestDisallowedChild(t *testing.T) {
	// A Title at the top level is not a valid root element.
	data := concat(ebmlHead(), strEl(0x7BA9, "nope"))
	f, err := NewFile(context.Background(), newMemFile(data))
	require.NoError(t, err)

	err = f.CheckConsistency()
	require.ErrorIs(t, err, errs.ErrDisallowedChild)
}

func TestUnknownSizeSegment(t *testing.T) {
	info := bin(0x1549A966,
		strEl(0x4D80, "mux"),
		strEl(0x5741, "wri"),
	)
	// Segment with the reserved unknown-size marker extends to EOF.
	segment := append(mustID(0x18538067), 0xFF)
	segment = append(segment, info...)
	f, err := NewFile(context.Background(), newMemFile(concat(ebmlHead(), segment)))
	require.NoError(t, err)

	seg := f.Children()[1].(*Master)
	require.Equal(t, schema.IDSegment, seg.ID())
	require.False(t, seg.Header().UnknownSize())
	require.Equal(t, int64(len(info)), seg.Size())
}

func TestReadModes(t *testing.T) {
	data := ebmlHead()
	f, err := NewFile(context.Background(), newMemFile(data), WithReadMode(ReadNothingMode))
	require.NoError(t, err)
	require.Empty(t, f.Children())

	require.NoError(t, f.ReadAll(context.Background()))
	require.Len(t, f.Children(), 1)
	require.Equal(t, ReadState(StateFullyLoaded), f.Children()[0].ReadState())
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFile(ctx, newMemFile(ebmlHead()))
	require.ErrorIs(t, err, context.Canceled)
}
