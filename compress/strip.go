package compress

import (
	"bytes"
	"fmt"
)

// headerStrip implements ContentCompAlgo 3: every frame was stored with a
// constant prefix removed; decompression prepends it again.
type headerStrip struct {
	prefix []byte
}

func (headerStrip) Algo() Algo { return AlgoHeaderStripping }

func (h headerStrip) Compress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, h.prefix) {
		return nil, fmt.Errorf("header stripping: data lacks the %d-byte prefix", len(h.prefix))
	}

	return append([]byte(nil), data[len(h.prefix):]...), nil
}

func (h headerStrip) Decompress(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(h.prefix)+len(data))
	out = append(out, h.prefix...)

	return append(out, data...), nil
}
