package element

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

// openMaster loads a fixture and returns its EBML master for layout tests.
func openMaster(t *testing.T, payload ...[]byte) (*File, *Master) {
	t.Helper()
	f, err := NewFile(context.Background(), newMemFile(bin(0x1A45DFA3, payload...)))
	require.NoError(t, err)

	return f, f.Children()[0].(*Master)
}

func TestRearrangePreserveKeepsSize(t *testing.T) {
	_, m := openMaster(t,
		uintEl(0x4286, 1),
		voidEl(4),
		strEl(0x4282, "matroska"),
		voidEl(8),
	)
	size := m.TotalSize()

	// Delete the middle void to open a hole.
	require.NoError(t, m.RemoveChild(m.ChildNamed("Void")))
	require.False(t, m.Consistent())

	docType := m.ChildNamed("DocType")
	offBefore := docType.Offset()

	require.NoError(t, m.Rearrange(RearrangeOptions{Strategy: StrategyPreserve}))
	require.True(t, m.Consistent())
	require.Equal(t, size, m.TotalSize())

	// The hole became a Void again and the clean neighbor did not move.
	require.Equal(t, offBefore, docType.Offset())
	require.False(t, docType.Dirty())

	voids := 0
	var voidTotal int64
	for v := range m.ChildrenNamed("Void") {
		voids++
		voidTotal += v.TotalSize()
	}
	require.Equal(t, 2, voids)
	require.Equal(t, int64(12), voidTotal)
}

func TestRearrangePackShrinks(t *testing.T) {
	_, m := openMaster(t,
		uintEl(0x4286, 1),
		voidEl(4),
		strEl(0x4282, "matroska"),
		voidEl(8),
	)

	require.NoError(t, m.Rearrange(RearrangeOptions{
		Strategy:    StrategyPack,
		AllowShrink: true,
	}))
	require.True(t, m.Consistent())
	require.Nil(t, m.ChildNamed("Void"))

	var sum int64
	for _, ch := range m.Children() {
		sum += ch.TotalSize()
	}
	require.Equal(t, m.Size(), sum)
}

func TestRearrangeGrowsForOversizedChildren(t *testing.T) {
	_, m := openMaster(t,
		strEl(0x4282, "matroska"),
	)
	docType := m.ChildNamed("DocType").(*Atomic)
	require.NoError(t, docType.SetText("matroska-but-longer"))
	require.False(t, m.Consistent())

	before := m.Size()
	require.NoError(t, m.Rearrange(RearrangeOptions{Strategy: StrategyPreserve}))
	require.True(t, m.Consistent())
	require.Greater(t, m.Size(), before)
}

func TestRearrangeFrozenBoundary(t *testing.T) {
	_, m := openMaster(t,
		strEl(0x4282, "mk"),
		voidEl(16),
	)

	// Freeze a region where the trailing void sits.
	p, err := NewPlaceholder(m.Registry(), 16)
	require.NoError(t, err)
	require.NoError(t, m.RemoveChild(m.ChildNamed("Void")))
	m.AddChild(p, m.Size()-16)
	p.MarkClean()
	require.True(t, m.Consistent())

	// Growing the element before a frozen region cannot be repaired by
	// shifting it.
	docType := m.ChildNamed("DocType").(*Atomic)
	require.NoError(t, docType.SetText("much longer than before"))
	err = m.Rearrange(RearrangeOptions{Strategy: StrategyPreserve})
	require.ErrorIs(t, err, errs.ErrCannotRearrange)
}

func TestVoidMinimumSize(t *testing.T) {
	_, err := NewVoid(schema.Matroska(), 1)
	require.ErrorIs(t, err, errs.ErrInvalidVoidSize)

	v, err := NewVoid(schema.Matroska(), 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), v.TotalSize())
	require.Equal(t, int64(0), v.Size())

	v, err = NewVoid(schema.Matroska(), 500)
	require.NoError(t, err)
	require.Equal(t, int64(500), v.TotalSize())
}

func TestFindGap(t *testing.T) {
	_, m := openMaster(t,
		uintEl(0x4286, 1), // 4 bytes at 0
		voidEl(10),        // gap at 4
		strEl(0x4282, "matroska"), // at 14
	)

	start, size, prev, ok := m.FindGap(8, 0, -1, false, false)
	require.True(t, ok)
	require.Equal(t, int64(4), start)
	require.Equal(t, int64(10), size)
	require.NotNil(t, prev)

	// A gap of exactly size+1 is rejected without oneByteOK.
	_, _, _, ok = m.FindGap(9, 0, -1, false, false)
	require.False(t, ok)
	_, _, _, ok = m.FindGap(9, 0, -1, false, true)
	require.True(t, ok)
}

func TestPlaceChild(t *testing.T) {
	f, m := openMaster(t,
		uintEl(0x4286, 1),
		voidEl(10),
		strEl(0x4282, "matroska"),
	)

	el, err := New(f.Registry(), "DocTypeVersion")
	require.NoError(t, err)
	require.NoError(t, el.(*Atomic).SetUint(4))
	require.Equal(t, int64(4), el.TotalSize())

	require.NoError(t, m.PlaceChild(el, 0, -1))
	require.Equal(t, int64(4), el.Offset())

	require.NoError(t, m.Rearrange(RearrangeOptions{Strategy: StrategyPreserve}))
	require.True(t, m.Consistent())
}

func TestExpandHeaderKeepsAbsolutePositions(t *testing.T) {
	_, m := openMaster(t,
		voidEl(16),
		strEl(0x4282, "matroska"),
	)
	docType := m.ChildNamed("DocType")
	absBefore, ok := docType.AbsOffset()
	require.True(t, ok)
	total := m.TotalSize()

	require.True(t, m.ExpandHeader(RearrangeOptions{}))
	require.Equal(t, total, m.TotalSize())
	require.Equal(t, int64(m.Header().IDWidth())+8, m.HeaderSize())

	absAfter, ok := docType.AbsOffset()
	require.True(t, ok)
	require.Equal(t, absBefore, absAfter)

	// A second expansion is a no-op.
	require.False(t, m.ExpandHeader(RearrangeOptions{}))
}

func TestGrowTotalByOne(t *testing.T) {
	_, m := openMaster(t, strEl(0x4282, "mk"))
	docType := m.ChildNamed("DocType")
	total := docType.TotalSize()

	require.True(t, growTotalByOne(docType))
	require.Equal(t, total+1, docType.TotalSize())
}
