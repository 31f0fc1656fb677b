// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"errors"
	"io"
	"sync"
)

// maxEmptyReads is the number of consecutive reads returning no data and no
// error that a source tolerates before reporting ErrNoProgress.
const maxEmptyReads = 100

var bufPool = sync.Pool{
	New: func() any { b := make([]byte, DefaultBufferSize); return &b },
}

// A source is a window over an input stream. Bytes are consumed one at a time
// with peek and advance; the window is refilled from the reader when it is
// exhausted, and consumed bytes are not retained.
type source struct {
	r      io.Reader // nil for a fixed input
	buf    []byte
	pooled *[]byte // if non-nil, buf came from bufPool
	pos    int     // next unread byte of buf
	end    int     // end of valid data in buf
	base   int     // absolute offset of buf[0]
	err    error   // error from the reader, reported once the window drains

	line      int // current line number, 1-based
	lineStart int // absolute offset of the first byte of the current line
}

func newSource(r io.Reader, size int) source {
	s := source{r: r, line: 1}
	if size == DefaultBufferSize {
		s.pooled = bufPool.Get().(*[]byte)
		s.buf = *s.pooled
	} else {
		s.buf = make([]byte, size)
	}
	return s
}

func newFixedSource(data []byte) source {
	return source{buf: data, end: len(data), err: io.EOF, line: 1}
}

// offset reports the absolute offset of the next unread byte.
func (s *source) offset() int { return s.base + s.pos }

// lineCol reports the position of the next unread byte.
func (s *source) lineCol() LineCol {
	return LineCol{Line: s.line, Column: s.offset() - s.lineStart}
}

// peek returns the next unread byte without consuming it. It reports false
// if no more input is available; in that case s.err is io.EOF or a
// *ReadError.
func (s *source) peek() (byte, bool) {
	if s.pos < s.end || s.fill() {
		return s.buf[s.pos], true
	}
	return 0, false
}

// advance consumes the byte most recently returned by peek.
func (s *source) advance() {
	if s.buf[s.pos] == '\n' {
		s.line++
		s.lineStart = s.base + s.pos + 1
	}
	s.pos++
}

// next consumes and returns the next byte.
func (s *source) next() (byte, bool) {
	b, ok := s.peek()
	if ok {
		s.advance()
	}
	return b, ok
}

// window returns the unread portion of the current window, which may be
// empty. The caller must not retain the slice across calls that refill.
func (s *source) window() []byte { return s.buf[s.pos:s.end] }

// skip consumes n bytes of the current window, which must contain no
// newlines.
func (s *source) skip(n int) { s.pos += n }

// fill refills the window, reporting whether any bytes are available.
func (s *source) fill() bool {
	if s.err != nil || s.r == nil {
		if s.err == nil {
			s.err = io.EOF
		}
		return false
	}
	s.base += s.end
	s.pos, s.end = 0, 0
	for range maxEmptyReads {
		n, err := s.r.Read(s.buf)
		s.end = n
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.err = io.EOF
			} else {
				s.err = &ReadError{Offset: s.base + n, Err: err}
			}
		}
		if n > 0 {
			return true
		} else if err != nil {
			return false
		}
	}
	s.err = &ReadError{Offset: s.base, Err: ErrNoProgress}
	return false
}

// readErr reports the pending read error, or nil at the end of input.
func (s *source) readErr() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// release returns the window buffer to the pool.
func (s *source) release() {
	if s.pooled != nil {
		bufPool.Put(s.pooled)
		s.pooled = nil
	}
	s.buf, s.pos, s.end, s.r = nil, 0, 0, nil
	if s.err == nil {
		s.err = ErrClosed
	}
}
