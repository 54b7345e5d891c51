package matroska

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessorCreatesChildOnSet(t *testing.T) {
	_, seg, _, _ := openFixture(t)

	info, ok := seg.Info()
	require.True(t, ok)

	// DateUTC is absent; setting it creates the child.
	_, had := info.DateUTC()
	require.False(t, had)
	when := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, info.SetDateUTC(when))
	got, had := info.DateUTC()
	require.True(t, had)
	require.True(t, got.Equal(when))

	// Setting an existing child updates the last instance in place.
	require.NoError(t, info.SetTitle("Renamed"))
	require.Equal(t, "Renamed", info.Title())
	count := 0
	for range info.M.ChildrenNamed("Title") {
		count++
	}
	require.Equal(t, 1, count)
}

func TestAddSimpleTag(t *testing.T) {
	_, seg, _, _ := openFixture(t)

	var group Tag
	for g := range seg.TagGroups() {
		group = g
	}
	require.NotNil(t, group.M)

	st, err := group.AddSimpleTag("COMMENT", "test pass")
	require.NoError(t, err)
	require.Equal(t, "COMMENT", st.Name())
	require.Equal(t, "test pass", st.Value())
	require.Equal(t, "eng", st.Language())
	require.True(t, st.Default())

	names := []string{}
	for s := range group.SimpleTags() {
		names = append(names, s.Name())
	}
	require.Equal(t, []string{"ARTIST", "COMMENT"}, names)
}

func TestFmtTime(t *testing.T) {
	require.Equal(t, "00:00:01.500", fmtTime(1_500_000_000, 3))
	require.Equal(t, "01:02:03.000000000", fmtTime((3600+120+3)*1_000_000_000, 9))
}
