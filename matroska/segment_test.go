package matroska

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/ebmlkit/element"
	"github.com/arloliu/ebmlkit/schema"
)

func openFixture(t *testing.T) (*File, *Segment, *memFile, mkvFixture) {
	t.Helper()
	fx := buildMKV()
	src := newMemFile(fx.data)
	f, err := NewFile(context.Background(), src)
	require.NoError(t, err)
	seg, ok := f.Segment()
	require.True(t, ok)

	return f, seg, src, fx
}

func TestSummaryReadSkipsClusters(t *testing.T) {
	_, seg, _, fx := openFixture(t)

	require.Equal(t, element.StateSummaryLoaded, seg.ReadState())

	// The Cluster run is covered by a single frozen placeholder.
	var ph *element.Placeholder
	for _, ch := range seg.Children() {
		if p, ok := ch.(*element.Placeholder); ok {
			require.Nil(t, ph, "expected a single placeholder")
			ph = p
		}
	}
	require.NotNil(t, ph)
	abs, ok := ph.AbsOffset()
	require.True(t, ok)
	require.Equal(t, fx.clusterStart, abs)
	require.Equal(t, fx.clusterEnd-fx.clusterStart, ph.TotalSize())
	require.False(t, ph.Dirty())

	// The SeekHead-indexed Tags behind the Clusters were found.
	var tagNames []string
	for g := range seg.TagGroups() {
		for st := range g.SimpleTags() {
			tagNames = append(tagNames, st.Name()+"="+st.Value())
		}
	}
	require.Equal(t, []string{"ARTIST=Me"}, tagNames)

	require.True(t, seg.Consistent())
}

func TestSegmentViews(t *testing.T) {
	f, seg, _, _ := openFixture(t)

	require.Equal(t, "My Movie", seg.Title())
	require.Equal(t, uint64(1000000), seg.TimecodeScale())
	// Duration 90000 ticks at 1ms each.
	require.InDelta(t, 90.0, seg.Duration(), 1e-9)
	require.Equal(t, "mux", seg.MuxingApp())
	require.Equal(t, "wri", seg.WritingApp())

	var tracks []TrackEntry
	for tr := range seg.Tracks() {
		tracks = append(tracks, tr)
	}
	require.Len(t, tracks, 1)
	require.Equal(t, "audio", tracks[0].TypeName())
	require.Equal(t, "A_OPUS", tracks[0].CodecID())
	require.Equal(t, "eng", tracks[0].Language()) // schema default
	audio, ok := tracks[0].Audio()
	require.True(t, ok)
	require.Equal(t, uint64(2), audio.Channels())
	require.InDelta(t, 48000.0, audio.SamplingFrequency(), 1e-9)
	require.InDelta(t, 48000.0, audio.OutputSamplingFrequency(), 1e-9)

	att, ok := seg.AttachmentByName("cover.txt")
	require.True(t, ok)
	require.Equal(t, "text/plain", att.MimeType())
	require.Equal(t, []byte("hello"), att.Data())

	head, ok := f.Head()
	require.True(t, ok)
	require.True(t, head.CheckReadHandled())
	require.True(t, head.CheckWriteHandled())

	summary := f.Summary()
	require.Contains(t, summary, "My Movie")
	require.Contains(t, summary, "A_OPUS")
}

func TestRoundTripIdentity(t *testing.T) {
	f, _, src, _ := openFixture(t)

	dst := newMemFile(nil)
	require.NoError(t, f.SaveChanges(context.Background(), dst))
	require.Equal(t, src.bytes(), dst.bytes())

	// In place, nothing at all is written.
	require.NoError(t, f.SaveChanges(context.Background(), nil))
	require.Empty(t, src.writes)
}

func TestTitleEditLeavesClustersUntouched(t *testing.T) {
	f, seg, src, fx := openFixture(t)

	require.NoError(t, seg.SetTitle("X"))
	require.True(t, seg.Dirty())
	require.NoError(t, f.SaveChanges(context.Background(), nil))
	require.False(t, f.Dirty())

	// The media payload was never rewritten.
	require.False(t, src.wroteIn(fx.clusterStart, fx.clusterEnd))
	require.Equal(t,
		fx.data[fx.clusterStart:fx.clusterEnd],
		src.bytes()[fx.clusterStart:fx.clusterEnd])

	// Reopen and verify the edit and the index.
	f2, err := NewFile(context.Background(), newMemFile(src.bytes()))
	require.NoError(t, err)
	seg2, ok := f2.Segment()
	require.True(t, ok)
	require.Equal(t, "X", seg2.Title())
	require.True(t, seg2.Consistent())
	requireSeekAgreement(t, seg2)
}

// requireSeekAgreement asserts that every SeekHead entry points at a child
// of the recorded ID.
func requireSeekAgreement(t *testing.T, seg *Segment) {
	t.Helper()
	entries := seg.SeekEntries()
	require.NotEmpty(t, entries)
	for _, sk := range entries {
		ch := seg.ChildAt(int64(sk.Position()))
		require.NotNil(t, ch, "no child at seek position %d", sk.Position())
		require.Equal(t, sk.TargetID(), ch.ID())
	}
}

func TestAttachmentOverflowAndNormalize(t *testing.T) {
	f, seg, src, fx := openFixture(t)

	att, err := seg.AddAttachment("notes.bin", "application/octet-stream", "scratch")
	require.NoError(t, err)
	require.NoError(t, att.SetData(make([]byte, 100)))

	// The Attachments container now overflows its 6 bytes of slack.
	require.Contains(t, seg.PrintSpace(0), "***OVERFLOW***")
	require.False(t, seg.Consistent())

	require.NoError(t, seg.Normalize(NormalizeOptions{}))
	require.True(t, seg.Consistent())
	requireSeekAgreement(t, seg)

	require.NoError(t, f.SaveChanges(context.Background(), nil))
	require.False(t, src.wroteIn(fx.clusterStart, fx.clusterEnd))

	f2, err := NewFile(context.Background(), newMemFile(src.bytes()))
	require.NoError(t, err)
	seg2, ok := f2.Segment()
	require.True(t, ok)
	got, ok := seg2.AttachmentByName("notes.bin")
	require.True(t, ok)
	require.Len(t, got.Data(), 100)
	require.Equal(t, "scratch", got.Description())

	// The original attachment survived the move to the tail.
	_, ok = seg2.AttachmentByName("cover.txt")
	require.True(t, ok)
	requireSeekAgreement(t, seg2)
}

func TestRemoveAttachment(t *testing.T) {
	_, seg, _, _ := openFixture(t)

	require.True(t, seg.RemoveAttachment("cover.txt"))
	require.False(t, seg.RemoveAttachment("cover.txt"))

	// The emptied Attachments container went with it.
	for _, ch := range seg.Children() {
		require.NotEqual(t, schema.IDAttachments, ch.ID())
	}
}

func TestNormalizeTailPlacement(t *testing.T) {
	_, seg, _, fx := openFixture(t)

	// Force a relayout.
	att, err := seg.AddAttachment("big.bin", "application/octet-stream", "")
	require.NoError(t, err)
	require.NoError(t, att.SetData(make([]byte, 500)))
	require.NoError(t, seg.Normalize(NormalizeOptions{}))

	// SeekHead leads, Attachments and Tags sit behind the frozen region.
	children := seg.Children()
	require.Equal(t, schema.IDSeekHead, children[0].ID())
	clusterRel := fx.clusterStart - fx.segDataStart
	for _, ch := range children {
		switch ch.ID() {
		case schema.IDAttachments, schema.IDTags:
			require.GreaterOrEqual(t, ch.Offset(), clusterRel)
		case schema.IDInfo, schema.IDTracks:
			require.Less(t, ch.Offset(), clusterRel)
		}
	}
}

func TestNormalizeSeekHeadSlack(t *testing.T) {
	_, seg, _, _ := openFixture(t)

	require.NoError(t, seg.SetTitle("Another"))
	require.NoError(t, seg.Normalize(NormalizeOptions{SeekHeadSlack: 32}))
	require.True(t, seg.Consistent())

	sh := seg.Children()[0].(*element.Master)
	require.Equal(t, schema.IDSeekHead, sh.ID())
	v, ok := sh.ChildNamed("Void").(*element.Void)
	require.True(t, ok)
	require.Equal(t, int64(32), v.TotalSize())
}

func TestContentEncodings(t *testing.T) {
	_, seg, _, _ := openFixture(t)

	var track TrackEntry
	for tr := range seg.Tracks() {
		track = tr
	}
	encs := track.ContentEncodings()
	require.Len(t, encs, 1)
	require.Equal(t, "zlib", encs[0].CompAlgo.String())

	codecs, err := track.CompressionCodecs()
	require.NoError(t, err)
	require.Len(t, codecs, 1)

	payload := []byte("frame payload bytes")
	packed, err := codecs[0].Compress(payload)
	require.NoError(t, err)
	restored, err := codecs[0].Decompress(packed)
	require.NoError(t, err)
	require.Equal(t, payload, restored)
}

func TestUnhandledVersionBlocksSave(t *testing.T) {
	fx := buildMKV()
	f, err := NewFile(context.Background(), newMemFile(fx.data))
	require.NoError(t, err)

	head, ok := f.Head()
	require.True(t, ok)
	version := head.M.ChildNamed("EBMLVersion").(*element.Atomic)
	require.NoError(t, version.SetUint(9))

	dst := newMemFile(nil)
	err = f.SaveChanges(context.Background(), dst)
	require.Error(t, err)
	require.Contains(t, strings.ToLower(err.Error()), "version")
	require.Empty(t, dst.writes)
}
