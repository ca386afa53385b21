package runner

import (
	"bytes"
	"sync"
)

// limitedBuffer keeps the first limit bytes written to it and drops the
// rest. It is safe for concurrent writers.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if remain := b.limit - b.buf.Len(); remain < len(p) {
		b.truncated = true
		if remain > 0 {
			b.buf.Write(p[:remain])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return b.buf.String() + "...(truncated)"
	}
	return b.buf.String()
}

// take returns what was written since the last take and whether anything
// was dropped, and empties the buffer
func (b *limitedBuffer) take() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := bytes.Clone(b.buf.Bytes())
	truncated := b.truncated
	b.buf.Reset()
	b.truncated = false
	return data, truncated
}

// append adds output taken from another buffer
func (b *limitedBuffer) append(data []byte, truncated bool) {
	b.Write(data)
	if truncated {
		b.mu.Lock()
		b.truncated = true
		b.mu.Unlock()
	}
}
