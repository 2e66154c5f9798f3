// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rfd implements component B of the spec: deadline-aware
// blocking descriptor I/O and fd-passing over Unix domain sockets.
package rfd

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
)

var (
	// ErrShortIO is returned when fewer bytes arrive than requested
	// before the deadline expires.
	ErrShortIO = errors.New("rfd: short read or write")
	// ErrClosed is returned when the peer shuts down mid-operation.
	ErrClosed = errors.New("rfd: peer closed connection")
)

// ReadFullDeadline reads exactly len(buf) bytes from conn or fails with
// ErrShortIO / ErrClosed. It is the Go equivalent of the C library's
// readn_deadline: net.Conn already folds "poll for readability, then
// read" into Read once a deadline is installed, so this just loops
// until the buffer is full, re-arming the deadline on each pass.
func ReadFullDeadline(conn net.Conn, buf []byte, deadline rdeadline.Deadline) (int, error) {
	if err := conn.SetReadDeadline(deadline.Time()); err != nil {
		return 0, err
	}

	n, err := io.ReadFull(conn, buf)
	if err == nil {
		return n, nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if n == 0 {
			return n, ErrClosed
		}
		return n, ErrShortIO
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return n, ErrShortIO
	}

	return n, err
}

// WriteFullDeadline writes every byte of buf to conn or fails with
// ErrShortIO. Mirror of the C library's writen_deadline.
func WriteFullDeadline(conn net.Conn, buf []byte, deadline rdeadline.Deadline) (int, error) {
	if err := conn.SetWriteDeadline(deadline.Time()); err != nil {
		return 0, err
	}

	n, err := conn.Write(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, ErrShortIO
		}
		if errors.Is(err, io.EOF) {
			return n, ErrClosed
		}
		return n, err
	}
	if n < len(buf) {
		return n, ErrShortIO
	}
	return n, nil
}

// ReadFull is ReadFullDeadline with rdeadline.Never.
func ReadFull(conn net.Conn, buf []byte) (int, error) {
	return ReadFullDeadline(conn, buf, rdeadline.Never)
}

// WriteFull is WriteFullDeadline with rdeadline.Never.
func WriteFull(conn net.Conn, buf []byte) (int, error) {
	return WriteFullDeadline(conn, buf, rdeadline.Never)
}

// ReadLineDeadline reads a single newline-terminated line, for textual
// protocols. Nothing in this module calls it; it plays no part in the
// binary wire format.
func ReadLineDeadline(conn net.Conn, deadline rdeadline.Deadline) (string, error) {
	if err := conn.SetReadDeadline(deadline.Time()); err != nil {
		return "", err
	}

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil && len(line) == 0 {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", ErrShortIO
		}
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", err
	}
	return line, nil
}
