// Package pool provides reusable buffers for the stream copy paths.
package pool

import (
	"sync"
)

// CopyBufferSize is the chunk size for shuttling clean regions between
// streams.
const CopyBufferSize = 64 * 1024

var copyPool = sync.Pool{
	New: func() any {
		buf := make([]byte, CopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer obtains a copy buffer from the pool.
func GetCopyBuffer() *[]byte {
	return copyPool.Get().(*[]byte)
}

// PutCopyBuffer returns a copy buffer to the pool.
func PutCopyBuffer(buf *[]byte) {
	copyPool.Put(buf)
}
