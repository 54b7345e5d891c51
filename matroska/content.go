package matroska

import (
	"sort"

	"github.com/arloliu/ebmlkit/compress"
)

// ContentEncoding describes one entry of a track's ContentEncodings chain.
type ContentEncoding struct {
	Order    uint64
	Scope    uint64
	Type     uint64
	CompAlgo compress.Algo
	Settings []byte
}

// Content encoding scope bits.
const (
	ScopeFrames       = 1
	ScopeCodecPrivate = 2
	ScopeNext         = 4
)

// ContentEncodings returns the track's content encodings ordered by their
// ContentEncodingOrder, lowest first.
func (t TrackEntry) ContentEncodings() []ContentEncoding {
	encodings := lastMaster(t.M, "ContentEncodings")
	if encodings == nil {
		return nil
	}
	var out []ContentEncoding
	for enc := range masters(encodings, "ContentEncoding") {
		ce := ContentEncoding{
			Order: childUint(enc, "ContentEncodingOrder"),
			Scope: childUint(enc, "ContentEncodingScope"),
			Type:  childUint(enc, "ContentEncodingType"),
		}
		if comp := lastMaster(enc, "ContentCompression"); comp != nil {
			ce.CompAlgo = compress.Algo(childUint(comp, "ContentCompAlgo"))
			ce.Settings = childBytes(comp, "ContentCompSettings")
		}
		out = append(out, ce)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })

	return out
}

// Codec returns the compress codec for this encoding.
func (ce ContentEncoding) Codec() (compress.Codec, error) {
	return compress.ForAlgo(ce.CompAlgo, ce.Settings)
}

// CompressionCodecs returns the codecs to undo the track's compression, in
// decode order (highest ContentEncodingOrder first, per the Matroska
// layering rule).
func (t TrackEntry) CompressionCodecs() ([]compress.Codec, error) {
	encs := t.ContentEncodings()
	codecs := make([]compress.Codec, 0, len(encs))
	for i := len(encs) - 1; i >= 0; i-- {
		if encs[i].Type != 0 {
			// Encryption entries carry no compression.
			continue
		}
		c, err := encs[i].Codec()
		if err != nil {
			return nil, err
		}
		codecs = append(codecs, c)
	}

	return codecs, nil
}
