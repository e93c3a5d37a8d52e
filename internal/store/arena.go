package store

import (
	"io"

	"github.com/robert-malhotra/go-h5pp/internal/alloc"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
)

// baseAddr keeps address 0 free so that it can mean "undefined", as it does
// for heap references.
const baseAddr = 8

// arena is the byte space raw data, chunks and heap collections live in.
// It grows and shrinks with the allocator's end of file.
type arena struct {
	a   *alloc.Allocator
	buf []byte
	log *logger.Logger
}

func newArena(log *logger.Logger) *arena {
	return &arena{a: alloc.New(baseAddr), buf: make([]byte, baseAddr), log: log}
}

func (m *arena) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *arena) WriteAt(p []byte, off int64) (int, error) {
	if off < baseAddr || off+int64(len(p)) > int64(len(m.buf)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.buf[off:], p), nil
}

func (m *arena) Alloc(size uint64) (uint64, error) {
	addr := m.a.AllocAligned(size, 8)
	m.sync()
	return addr, nil
}

func (m *arena) Free(addr, size uint64) {
	if err := m.a.Free(addr, size); err != nil {
		m.log.WithError(err).Errorf("arena free of %d bytes at %d", size, addr)
		return
	}
	m.sync()
}

// sync resizes the buffer to the allocator's end of file. Grown space is
// zeroed.
func (m *arena) sync() {
	eof := int(m.a.EOFAddr())
	if eof > len(m.buf) {
		m.buf = append(m.buf, make([]byte, eof-len(m.buf))...)
		return
	}
	m.buf = m.buf[:eof]
}
