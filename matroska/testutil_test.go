package matroska

import (
	"fmt"
	"io"

	"github.com/arloliu/ebmlkit/encoding"
)

// memFile is an in-memory seekable read-write stream recording write
// ranges, so tests can prove which byte regions a save touched.
type memFile struct {
	data   []byte
	pos    int64
	writes [][2]int64
}

func newMemFile(data []byte) *memFile {
	return &memFile{data: append([]byte(nil), data...)}
}

func (m *memFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)

	return n, nil
}

func (m *memFile) Write(p []byte) (int, error) {
	if need := m.pos + int64(len(p)); need > int64(len(m.data)) {
		grown := make([]byte, need)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:], p)
	if len(p) > 0 {
		m.writes = append(m.writes, [2]int64{m.pos, int64(len(p))})
	}
	m.pos += int64(len(p))

	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.data)) + offset
	}
	if m.pos < 0 {
		return 0, fmt.Errorf("negative position")
	}

	return m.pos, nil
}

func (m *memFile) bytes() []byte { return m.data }

func (m *memFile) wroteIn(start, end int64) bool {
	for _, w := range m.writes {
		if w[0] < end && w[0]+w[1] > start {
			return true
		}
	}

	return false
}

func mustID(id uint64) []byte {
	b, err := encoding.AppendID(nil, id)
	if err != nil {
		panic(err)
	}

	return b
}

func mustVint(v uint64, minWidth int) []byte {
	b, err := encoding.AppendVint(nil, v, minWidth)
	if err != nil {
		panic(err)
	}

	return b
}

func frame(id uint64, sizeWidth int, payload ...[]byte) []byte {
	var data []byte
	for _, p := range payload {
		data = append(data, p...)
	}
	out := mustID(id)
	out = append(out, mustVint(uint64(len(data)), sizeWidth)...)

	return append(out, data...)
}

func el(id uint64, payload ...[]byte) []byte { return frame(id, 1, payload...) }

func uintEl(id, v uint64) []byte {
	return el(id, encoding.AppendUint(nil, v, encoding.UintSize(v)))
}

func strEl(id uint64, s string) []byte { return el(id, []byte(s)) }

func floatEl(id uint64, v float64) []byte {
	enc, err := encoding.AppendFloat(nil, v, 8)
	if err != nil {
		panic(err)
	}

	return el(id, enc)
}

func voidEl(total int64) []byte {
	if total < 2 || total-2 > 126 {
		panic("fixture void out of range")
	}

	return el(0xEC, make([]byte, total-2))
}

func ebmlHead() []byte {
	return el(0x1A45DFA3,
		uintEl(0x4286, 1),
		uintEl(0x42F7, 1),
		uintEl(0x42F2, 4),
		uintEl(0x42F3, 8),
		strEl(0x4282, "matroska"),
		uintEl(0x4287, 4),
		uintEl(0x4285, 2),
	)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

// mkvFixture is a small but complete Matroska file: EBML head plus a
// Segment with a SeekHead, Info, Tracks (one audio track with a zlib
// content encoding), Attachments with slack, two Clusters, and trailing
// Tags indexed by the SeekHead.
type mkvFixture struct {
	data []byte
	// Absolute byte range covering the Cluster region.
	clusterStart int64
	clusterEnd   int64
	// Segment data region start, for translating relative offsets.
	segDataStart int64
}

func buildMKV() mkvFixture {
	info := el(0x1549A966,
		uintEl(0x2AD7B1, 1000000),   // TimecodeScale
		strEl(0x7BA9, "My Movie"),   // Title
		floatEl(0x4489, 90000),      // Duration
		strEl(0x4D80, "mux"),        // MuxingApp
		strEl(0x5741, "wri"),        // WritingApp
	)
	track := el(0xAE,
		uintEl(0xD7, 1),        // TrackNumber
		uintEl(0x73C5, 7),      // TrackUID
		uintEl(0x83, 2),        // TrackType: audio
		strEl(0x86, "A_OPUS"),  // CodecID
		el(0xE1, // Audio
			floatEl(0xB5, 48000),
			uintEl(0x9F, 2),
		),
		el(0x6D80, // ContentEncodings
			el(0x6240,
				uintEl(0x5031, 0),
				uintEl(0x5033, 0),
				el(0x5034, uintEl(0x4254, 0)), // ContentCompression: zlib
			),
		),
	)
	tracks := el(0x1654AE6B, track)
	attachments := el(0x1941A469,
		el(0x61A7,
			strEl(0x466E, "cover.txt"),
			strEl(0x6460, "text/plain"),
			uintEl(0x46AE, 5),
			el(0x465C, []byte("hello")),
		),
		voidEl(6),
	)
	slack := voidEl(40)
	cluster1 := el(0x1F43B675,
		uintEl(0xE7, 0),
		el(0xA3, []byte{0x81, 0x00, 0x00, 0x00, 1, 2, 3, 4}),
	)
	cluster2 := el(0x1F43B675,
		uintEl(0xE7, 1),
		el(0xA3, []byte{0x81, 0x00, 0x10, 0x00, 5, 6, 7, 8}),
	)
	tags := el(0x1254C367,
		el(0x7373,
			el(0x63C0, uintEl(0x68CA, 50)),
			el(0x67C8,
				strEl(0x45A3, "ARTIST"),
				strEl(0x447A, "eng"),
				uintEl(0x4484, 1),
				strEl(0x4487, "Me"),
			),
		),
	)

	build := func(tagsPos uint64) []byte {
		seekHead := el(0x114D9B74,
			el(0x4DBB,
				el(0x53AB, mustID(0x1254C367)),               // SeekID: Tags
				el(0x53AC, encoding.AppendUint(nil, tagsPos, 8)), // SeekPosition
			),
		)

		return concat(seekHead, info, tracks, attachments, slack, cluster1, cluster2, tags)
	}

	// Two passes: the SeekHead's own length is position-independent (the
	// position field is always 8 bytes), so the second pass patches the
	// real Tags offset in.
	payload := build(0)
	tagsPos := uint64(len(payload) - len(tags))
	payload = build(tagsPos)

	segment := frame(0x18538067, 8, payload)
	head := ebmlHead()
	data := concat(head, segment)

	segDataStart := int64(len(head) + len(mustID(0x18538067)) + 8)
	clusterRel := int64(len(payload) - len(tags) - len(cluster1) - len(cluster2))

	return mkvFixture{
		data:         data,
		clusterStart: segDataStart + clusterRel,
		clusterEnd:   segDataStart + int64(len(payload)-len(tags)),
		segDataStart: segDataStart,
	}
}
