// Package compress implements the content compression algorithms a
// Matroska ContentCompression element can declare for a track: zlib and
// header stripping. Callers use it to undo (or apply) track-level
// compression on frame or codec-private data; the library core itself never
// interprets media payloads.
package compress

import (
	"fmt"

	"github.com/arloliu/ebmlkit/errs"
)

// Algo is the value of the ContentCompAlgo element.
type Algo uint64

const (
	AlgoZlib            Algo = 0
	AlgoBzlib           Algo = 1
	AlgoLzo1x           Algo = 2
	AlgoHeaderStripping Algo = 3
)

func (a Algo) String() string {
	switch a {
	case AlgoZlib:
		return "zlib"
	case AlgoBzlib:
		return "bzlib"
	case AlgoLzo1x:
		return "lzo1x"
	case AlgoHeaderStripping:
		return "header stripping"
	default:
		return fmt.Sprintf("algo(%d)", uint64(a))
	}
}

// Codec compresses and decompresses one track's content encoding.
//
// Memory management: returned slices are newly allocated and owned by the
// caller; inputs are never modified.
type Codec interface {
	// Algo identifies the ContentCompAlgo value the codec implements.
	Algo() Algo
	// Compress encodes data.
	Compress(data []byte) ([]byte, error)
	// Decompress restores the original data.
	Decompress(data []byte) ([]byte, error)
}

// ForAlgo returns the codec for a ContentCompAlgo value. settings is the
// ContentCompSettings payload; only header stripping uses it (the stripped
// prefix bytes).
//
// bzlib and lzo1x have no implementation here and fail with
// ErrUnknownCompression, as does any unassigned value.
func ForAlgo(algo Algo, settings []byte) (Codec, error) {
	switch algo {
	case AlgoZlib:
		return zlibCodec{}, nil
	case AlgoHeaderStripping:
		return headerStrip{prefix: append([]byte(nil), settings...)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownCompression, algo)
	}
}
