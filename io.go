// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"errors"
	"fmt"
	"io"
)

// IO is the backing store of an Image: positioned reads and writes plus
// truncation, so a rewrite can atomically replace the old contents.
// *os.File satisfies IO.
type IO interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

// MemIO is an in-memory IO, used for tests and for building images that
// never touch the filesystem.
type MemIO struct {
	buf []byte
	off int64
}

// NewMemIO returns a MemIO seeded with b. The slice is not copied.
func NewMemIO(b []byte) *MemIO {
	return &MemIO{buf: b}
}

// Bytes returns the current contents.
func (m *MemIO) Bytes() []byte {
	return m.buf
}

func (m *MemIO) Read(p []byte) (int, error) {
	if m.off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.off:])
	m.off += int64(n)
	return n, nil
}

func (m *MemIO) Write(p []byte) (int, error) {
	end := m.off + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.off:], p)
	m.off = end
	return len(p), nil
}

func (m *MemIO) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.off + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	m.off = abs
	return abs, nil
}

func (m *MemIO) Truncate(size int64) error {
	if size < 0 {
		return errors.New("negative size")
	}
	if size <= int64(len(m.buf)) {
		m.buf = m.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

// errStop signals the enclosing operation to stop; it never escapes the
// package (the public operations recover it).
var errStop = errors.New("stop")

var errShortRead = errors.New("short read")

// streamReader wraps a ReadSeeker with positioned binary reads. All offsets
// are absolute. Not safe for concurrent use.
type streamReader struct {
	r io.ReadSeeker

	buf []byte

	readErr  error
	errCode  ErrorCode
	fileSize int64
}

func newStreamReader(r io.ReadSeeker) *streamReader {
	return &streamReader{r: r, fileSize: -1}
}

func (e *streamReader) pos() int64 {
	n, _ := e.r.Seek(0, io.SeekCurrent)
	return n
}

// size returns the total stream size, computed once.
func (e *streamReader) size() int64 {
	if e.fileSize >= 0 {
		return e.fileSize
	}
	cur := e.pos()
	end, err := e.r.Seek(0, io.SeekEnd)
	if err != nil {
		e.stop(err, CodeFailedToReadImageData)
	}
	e.seek(cur)
	e.fileSize = end
	return end
}

func (e *streamReader) remaining() int64 {
	return e.size() - e.pos()
}

func (e *streamReader) seek(pos int64) {
	if _, err := e.r.Seek(pos, io.SeekStart); err != nil {
		e.stop(err, CodeFailedToReadImageData)
	}
}

// readBoxHeaderE reads the next 8-byte box header. io.EOF is returned for
// both a clean end-of-stream and a trailing partial header, so walkers can
// treat end-of-stream as a clean stop.
func (e *streamReader) readBoxHeaderE() (boxHeader, error) {
	var b [boxHeaderSize]byte
	n, err := io.ReadFull(e.r, b[:])
	if err != nil {
		if err == io.ErrUnexpectedEOF && n > 0 {
			return boxHeader{}, io.EOF
		}
		return boxHeader{}, err
	}
	return decodeBoxHeader(b[:]), nil
}

// readBytes fills b, stopping the operation on failure.
func (e *streamReader) readBytes(b []byte) {
	n, err := io.ReadFull(e.r, b)
	if err != nil {
		if n != len(b) && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			e.stop(errShortRead, CodeInputDataReadFailed)
		}
		e.stop(err, CodeFailedToReadImageData)
	}
}

// readBytesVolatile reads n bytes into the shared scratch buffer. The result
// is only valid until the next read.
func (e *streamReader) readBytesVolatile(n int) []byte {
	if n > cap(e.buf) {
		e.buf = make([]byte, n)
	}
	e.buf = e.buf[:n]
	e.readBytes(e.buf)
	return e.buf
}

func (e *streamReader) stop(err error, code ErrorCode) {
	if err != nil && e.readErr == nil {
		e.readErr = err
		e.errCode = code
	}
	panic(errStop)
}

// asError converts the stop state into the operation's returned error.
func (e *streamReader) asError() error {
	if e.readErr == nil {
		return nil
	}
	if je, ok := e.readErr.(*Error); ok {
		return je
	}
	return wrapError(e.errCode, e.readErr)
}

// recoverStop is deferred by every public operation wrapping a streamReader.
func (e *streamReader) recoverStop(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if r != errStop {
		panic(r)
	}
	if *errp == nil {
		*errp = e.asError()
	}
}
