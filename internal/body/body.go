// Package body implements the dual-mode message body: a buffered form driven
// by a declared Content-Length, and a chunked form fed incrementally by a
// producer (the parser) and drained by one or more consumers (handlers).
package body

import (
	"context"
	"errors"
	"sync"
)

type Mode int

const (
	Unset Mode = iota
	Buffered
	Chunked
)

var (
	ErrWrongMode        = errors.New("body: operation not valid for this mode")
	ErrAlreadyComplete  = errors.New("body: chunks already complete")
	ErrBodyNotComplete  = errors.New("body: chunked body not yet complete")
)

// Body holds either a growable byte buffer (Buffered mode) or a chunk
// sequence plus completion flag (Chunked mode). The mode is fixed at
// construction and never changes afterward.
type Body struct {
	mode Mode

	// Buffered mode.
	declaredLen int
	buf         []byte

	// Chunked mode. Every reader blocked on a not-yet-available chunk
	// parks on ready; each push/end closes the current ready channel and
	// installs a fresh one, waking every parked reader at once.
	mu       sync.Mutex
	chunks   [][]byte
	complete bool
	ready    chan struct{}
}

// NewBuffered returns a Body in Buffered mode with the given declared
// Content-Length.
func NewBuffered(declaredLen int) *Body {
	return &Body{mode: Buffered, declaredLen: declaredLen}
}

// NewChunked returns a Body in Chunked mode.
func NewChunked() *Body {
	return &Body{mode: Chunked, ready: make(chan struct{})}
}

func (b *Body) Mode() Mode { return b.mode }

// AppendBody appends raw bytes to a Buffered body.
func (b *Body) AppendBody(p []byte) error {
	if b.mode != Buffered {
		return ErrWrongMode
	}
	b.buf = append(b.buf, p...)
	return nil
}

// FullContentsLoaded reports whether a Buffered body has received at least
// as many bytes as declared.
func (b *Body) FullContentsLoaded() bool {
	if b.mode != Buffered {
		return false
	}
	return len(b.buf) >= b.declaredLen
}

// Bytes returns the buffered content. Valid only in Buffered mode.
func (b *Body) Bytes() ([]byte, error) {
	if b.mode != Buffered {
		return nil, ErrWrongMode
	}
	return b.buf, nil
}

// DeclaredLength returns the Content-Length this body was constructed with.
func (b *Body) DeclaredLength() int { return b.declaredLen }

// Remaining reports how many more bytes a Buffered body still expects
// before FullContentsLoaded becomes true. Zero for any other mode.
func (b *Body) Remaining() int {
	if b.mode != Buffered {
		return 0
	}
	r := b.declaredLen - len(b.buf)
	if r < 0 {
		return 0
	}
	return r
}

// PushChunk appends a chunk to a Chunked body and wakes every reader parked
// on the next chunk.
func (b *Body) PushChunk(chunk []byte) error {
	if b.mode != Chunked {
		return ErrWrongMode
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)

	b.mu.Lock()
	b.chunks = append(b.chunks, cp)
	old := b.ready
	b.ready = make(chan struct{})
	b.mu.Unlock()

	close(old)
	return nil
}

// EndChunked marks a Chunked body as fully produced and wakes every parked
// reader so they can observe end-of-stream.
func (b *Body) EndChunked() error {
	if b.mode != Chunked {
		return ErrWrongMode
	}
	b.mu.Lock()
	if b.complete {
		b.mu.Unlock()
		return ErrAlreadyComplete
	}
	b.complete = true
	old := b.ready
	b.ready = make(chan struct{})
	b.mu.Unlock()

	close(old)
	return nil
}

// Chunk returns the chunk at index i, blocking until it becomes available,
// end-of-stream is reached, or ctx is done. ok is false once i has passed
// the last produced chunk and the producer has signaled completion.
func (b *Body) Chunk(ctx context.Context, i int) (chunk []byte, ok bool, err error) {
	if b.mode != Chunked {
		return nil, false, ErrWrongMode
	}
	for {
		b.mu.Lock()
		if i < len(b.chunks) {
			c := b.chunks[i]
			b.mu.Unlock()
			return c, true, nil
		}
		if b.complete {
			b.mu.Unlock()
			return nil, false, nil
		}
		wait := b.ready
		b.mu.Unlock()

		select {
		case <-wait:
			// loop and re-check
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// FullConcatenated returns the full concatenated chunk content. Valid only
// once the producer has called EndChunked.
func (b *Body) FullConcatenated() ([]byte, error) {
	if b.mode != Chunked {
		return nil, ErrWrongMode
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.complete {
		return nil, ErrBodyNotComplete
	}
	var total int
	for _, c := range b.chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out, nil
}

// ChunkCount returns the number of chunks pushed so far.
func (b *Body) ChunkCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Complete reports whether EndChunked has been called.
func (b *Body) Complete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}
