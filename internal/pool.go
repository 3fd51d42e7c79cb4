package internal

import (
	"bytes"
	"sync"
)

// BufferPool holds buffers used to format violation data, which is done for every violation.
var BufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64))
	},
}

// Buffer returns an empty buffer from BufferPool. It must be returned with PutBuffer.
func Buffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to BufferPool.
func PutBuffer(buf *bytes.Buffer) {
	BufferPool.Put(buf)
}
