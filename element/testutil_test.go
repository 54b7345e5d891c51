package element

import (
	"fmt"
	"io"

	"github.com/arloliu/ebmlkit/encoding"
)

// memFile is an in-memory seekable read-write stream that records every
// write's byte range, so tests can assert which regions a save touched.
type memFile struct {
	data   []byte
	pos    int64
	writes [][2]int64 // [offset, length]
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

// wroteIn reports whether any recorded write intersects [start, end).
func (m *memFile) wroteIn(start, end int64) bool {
	for _, w := range m.writes {
		if w[0] < end && w[0]+w[1] > start {
			return true
		}
	}

	return false
}

// Fixture building: hand-assembled EBML bytes for the decode direction.

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

// bin frames a payload with a minimal-width header.
func bin(id uint64, payload ...[]byte) []byte {
	return binW(id, 1, payload...)
}

// binW frames a payload reserving at least sizeWidth bytes for the size
// field.
func binW(id uint64, sizeWidth int, payload ...[]byte) []byte {
	var data []byte
	for _, p := range payload {
		data = append(data, p...)
	}
	out := mustID(id)
	out = append(out, mustVint(uint64(len(data)), sizeWidth)...)

	return append(out, data...)
}

func uintEl(id, v uint64) []byte {
	return bin(id, encoding.AppendUint(nil, v, encoding.UintSize(v)))
}

func strEl(id uint64, s string) []byte {
	return bin(id, []byte(s))
}

// voidEl builds a Void of an exact total size (minimum 2).
func voidEl(total int64) []byte {
	if total < 2 {
		panic("void too small")
	}
	data := total - 2
	if data > 126 {
		// 1-byte size field holds at most 126 here; use an 8-byte field.
		data = total - 9
		return binW(0xEC, 8, make([]byte, data))
	}

	return bin(0xEC, make([]byte, data))
}

// ebmlHead is a minimal valid EBML header element.
func ebmlHead() []byte {
	return bin(0x1A45DFA3,
		uintEl(0x4286, 1),         // EBMLVersion
		uintEl(0x42F7, 1),         // EBMLReadVersion
		uintEl(0x42F2, 4),         // EBMLMaxIDLength
		uintEl(0x42F3, 8),         // EBMLMaxSizeLength
		strEl(0x4282, "matroska"), // DocType
		uintEl(0x4287, 4),         // DocTypeVersion
		uintEl(0x4285, 2),         // DocTypeReadVersion
	)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}
