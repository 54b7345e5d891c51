// Package hash provides value signatures for change detection.
package hash

import (
	"github.com/cespare/xxhash/v2"
)

// SignatureThreshold is the payload size above which Signature hashes
// instead of copying. Small payloads are cheaper to compare directly.
const SignatureThreshold = 1024

// Signature returns a compact stand-in for data, used to detect whether a
// large binary value changed since it was read without keeping the value
// twice. Payloads under SignatureThreshold are kept verbatim; larger ones
// collapse to an xxHash64 digest tagged with the length.
func Signature(data []byte) string {
	if len(data) < SignatureThreshold {
		return string(data)
	}

	var buf [16]byte
	sum := xxhash.Sum64(data)
	n := len(data)
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (8 * i))
		buf[8+i] = byte(n >> (8 * i))
	}

	return "xxh64\x00" + string(buf[:])
}
