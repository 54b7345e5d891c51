package ebmlkit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/ebmlkit/encoding"
)

func frame(id uint64, sizeWidth int, payload ...[]byte) []byte {
	var data []byte
	for _, p := range payload {
		data = append(data, p...)
	}
	out, err := encoding.AppendID(nil, id)
	if err != nil {
		panic(err)
	}
	out, err = encoding.AppendVint(out, uint64(len(data)), sizeWidth)
	if err != nil {
		panic(err)
	}

	return append(out, data...)
}

func el(id uint64, payload ...[]byte) []byte { return frame(id, 1, payload...) }

func uintEl(id, v uint64) []byte {
	return el(id, encoding.AppendUint(nil, v, encoding.UintSize(v)))
}

func strEl(id uint64, s string) []byte { return el(id, []byte(s)) }

// fixture is an EBML head plus a minimal Segment: Info and a padding Void.
func fixture() []byte {
	head := el(0x1A45DFA3,
		uintEl(0x4286, 1),
		uintEl(0x42F7, 1),
		uintEl(0x42F2, 4),
		uintEl(0x42F3, 8),
		strEl(0x4282, "matroska"),
		uintEl(0x4287, 4),
		uintEl(0x4285, 2),
	)
	info := el(0x1549A966,
		strEl(0x7BA9, "Working Title"),
		strEl(0x4D80, "mux"),
		strEl(0x5741, "wri"),
	)
	void := el(0xEC, make([]byte, 30))
	segment := frame(0x18538067, 8, info, void)

	return append(head, segment...)
}

func TestOpenEditSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sample.mkv")
	require.NoError(t, os.WriteFile(path, fixture(), 0o644))

	f, err := Open(ctx, path)
	require.NoError(t, err)

	seg, ok := f.Segment()
	require.True(t, ok)
	require.Equal(t, "Working Title", seg.Title())

	require.NoError(t, seg.SetTitle("Final Title"))
	require.NoError(t, f.SaveChanges(ctx, nil))
	require.NoError(t, f.Close())

	f, err = Open(ctx, path)
	require.NoError(t, err)
	defer f.Close()

	seg, ok = f.Segment()
	require.True(t, ok)
	require.Equal(t, "Final Title", seg.Title())
}

func TestSummaryOutput(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sample.mkv")
	require.NoError(t, os.WriteFile(path, fixture(), 0o644))

	f, err := Open(ctx, path)
	require.NoError(t, err)
	defer f.Close()

	summary := f.Summary()
	require.Contains(t, summary, "Working Title")
	require.Contains(t, summary, "Segment")
}
