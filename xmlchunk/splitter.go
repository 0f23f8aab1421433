// Package xmlchunk maps an XML file into memory and cuts it into
// contiguous chunks that are safe to tokenize independently: every
// chunk but possibly the first begins at a '<' byte (or at end of
// file), so a tokenizer never has to guess whether it is starting
// inside a tag.
package xmlchunk

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/woshijl58/xpathsplit/xpatherr"
)

// Chunk is one contiguous byte range of the mapped document, owned by
// whichever worker it was handed to.
type Chunk struct {
	Index   int
	Data    []byte
	release func() error
}

// Release gives back the chunk's share of the underlying mapping. Every
// chunk from one Split call shares a single mapping; only the last
// Release call among them actually unmaps and closes the file, so callers
// should release every chunk once they're done with it (order doesn't
// matter) rather than relying on any single one.
func (c Chunk) Release() error {
	if c.release == nil {
		return nil
	}
	return c.release()
}

// Split maps path into memory and partitions it into exactly n chunks
// per spec: for chunks 0..n-2, read a target size of ceil(len/n) bytes
// then continue until the next '<' so the cut lands immediately before
// it; the final chunk consumes the remainder. n must be >= 1. An empty
// file yields one empty chunk regardless of n.
func Split(path string, n int) ([]Chunk, error) {
	if n < 1 {
		return nil, &xpatherr.ConfigError{Cause: fmt.Errorf("worker count must be >= 1, got %d", n)}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &xpatherr.IOError{Path: path, Cause: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &xpatherr.IOError{Path: path, Cause: err}
	}
	size := int(info.Size())

	if size == 0 {
		f.Close()
		return []Chunk{{Index: 0, release: func() error { return nil }}}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, &xpatherr.IOError{Path: path, Cause: err}
	}

	unmapAndClose := func() error {
		if uerr := m.Unmap(); uerr != nil {
			f.Close()
			return uerr
		}
		return f.Close()
	}

	remaining := int32(n)
	release := func() error {
		if atomic.AddInt32(&remaining, -1) == 0 {
			return unmapAndClose()
		}
		return nil
	}

	q := (size + n - 1) / n
	chunks := make([]Chunk, 0, n)
	cur := 0
	for i := 0; i < n-1; i++ {
		end := cur + q
		if end > size {
			end = size
		}
		for end < size && m[end] != '<' {
			end++
		}
		chunks = append(chunks, Chunk{Index: i, Data: m[cur:end], release: release})
		cur = end
	}
	chunks = append(chunks, Chunk{Index: n - 1, Data: m[cur:size], release: release})

	return chunks, nil
}
