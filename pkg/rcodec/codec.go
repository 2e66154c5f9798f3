// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rcodec implements the little-endian, length-prefixed wire
// encoding shared by every russ message: fixed-width integers, byte
// strings, NUL-terminated strings, and string arrays. Every Writer method
// that would run past the buffer's capacity returns ErrOverflow instead
// of growing silently, and every Reader method that would run past the
// end of the supplied bytes returns ErrShortBuffer; callers propagate
// these the same way the rest of the russ core propagates error values
// rather than panicking.
package rcodec

import (
	"encoding/binary"
	"errors"
)

var (
	ErrOverflow    = errors.New("rcodec: buffer overflow")
	ErrShortBuffer = errors.New("rcodec: short buffer")
)

// Writer accumulates an encoded message into a capacity-bounded buffer.
// It is the Go analogue of the C codec's "current pointer, end pointer"
// pair: Cap is the end pointer, and every Put* call fails cleanly rather
// than writing past it.
type Writer struct {
	buf []byte
	cap int
}

// NewWriter allocates a Writer that will refuse to grow past capacity
// bytes. A capacity of 0 means unbounded.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity), cap: capacity}
}

func (w *Writer) fits(n int) bool {
	return w.cap == 0 || len(w.buf)+n <= w.cap
}

func (w *Writer) PutUint16(v uint16) error {
	if !w.fits(2) {
		return ErrOverflow
	}
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *Writer) PutInt16(v int16) error { return w.PutUint16(uint16(v)) }

func (w *Writer) PutUint32(v uint32) error {
	if !w.fits(4) {
		return ErrOverflow
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *Writer) PutInt32(v int32) error { return w.PutUint32(uint32(v)) }

func (w *Writer) PutUint64(v uint64) error {
	if !w.fits(8) {
		return ErrOverflow
	}
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *Writer) PutInt64(v int64) error { return w.PutUint64(uint64(v)) }

// PutBytes writes a length-prefixed byte string: int32 length followed by
// the bytes themselves.
func (w *Writer) PutBytes(b []byte) error {
	if !w.fits(4 + len(b)) {
		return ErrOverflow
	}
	if err := w.PutInt32(int32(len(b))); err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	return nil
}

// PutString writes s as a length-prefixed byte string including its
// trailing NUL, per spec: "Strings include the terminating NUL byte in
// the length."
func (w *Writer) PutString(s string) error {
	return w.PutBytes(append([]byte(s), 0))
}

// PutSArrayN writes a plain string array: int32 count then count
// length-prefixed strings, with no sentinel slot.
func (w *Writer) PutSArrayN(vals []string) error {
	if err := w.PutInt32(int32(len(vals))); err != nil {
		return err
	}
	for _, s := range vals {
		if err := w.PutString(s); err != nil {
			return err
		}
	}
	return nil
}

// PutSArray0 writes vals the same way as PutSArrayN; the NUL sentinel
// slot described in the spec is an in-memory decode-time convenience
// (see Reader.GetSArray0) and carries no extra bytes on the wire.
func (w *Writer) PutSArray0(vals []string) error {
	return w.PutSArrayN(vals)
}

// Bytes returns the encoded buffer built so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Reader decodes a little-endian wire message from a fixed []byte,
// advancing an internal cursor. Every Get* returns ErrShortBuffer if the
// remaining bytes are insufficient.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) remaining() int { return len(r.buf) - r.pos }

func (r *Reader) GetUint16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) GetInt16() (int16, error) {
	v, err := r.GetUint16()
	return int16(v), err
}

func (r *Reader) GetUint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}

func (r *Reader) GetUint64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) GetInt64() (int64, error) {
	v, err := r.GetUint64()
	return int64(v), err
}

// GetBytes reads a length-prefixed byte string, allocating and returning
// ownership of a fresh slice to the caller.
func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 || r.remaining() < int(n) {
		return nil, ErrShortBuffer
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

// GetString reads a length-prefixed string and strips the trailing NUL
// the encoder included in the length.
func (r *Reader) GetString() (string, error) {
	b, err := r.GetBytes()
	if err != nil {
		return "", err
	}
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// GetSArrayN reads a plain string array with no sentinel.
func (r *Reader) GetSArrayN() ([]string, error) {
	n, err := r.GetInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrShortBuffer
	}
	vals := make([]string, n)
	for i := range vals {
		s, err := r.GetString()
		if err != nil {
			return nil, err
		}
		vals[i] = s
	}
	return vals, nil
}

// GetSArray0 reads a string array and appends a NUL sentinel slot ("")
// after it, the way the original C decoder allocated count+1 entries so
// callers could iterate until they saw a NUL pointer. Go callers have no
// use for the sentinel beyond parity with the wire format's documented
// shape, but it is provided for fidelity to spec.md's decode semantics.
func (r *Reader) GetSArray0() ([]string, error) {
	vals, err := r.GetSArrayN()
	if err != nil {
		return nil, err
	}
	return append(vals, ""), nil
}

// Pos returns the current read cursor, useful for callers that need to
// know how many bytes of the supplied buffer were consumed.
func (r *Reader) Pos() int { return r.pos }

// Remaining reports the number of unread bytes.
func (r *Reader) Remaining() int { return r.remaining() }
