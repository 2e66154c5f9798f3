// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rconn implements component E of the spec: client-side dial,
// server-side accept and answer, and the splice primitive that lets a
// server hand a downstream dial's descriptors to its own client.
package rconn

import (
	"net"
	"os"

	"github.com/sandia-minimega/russ/pkg/rfd"
)

// MaxUserFDs bounds the user descriptor array, per spec.md section 3
// ("user fds (up to 32; indices 0,1,2 conventionally stdin/stdout/stderr)").
const MaxUserFDs = 32

// ClientConn is the client-side view of a dial: the socket (closed once
// descriptors are received) and the two descriptor arrays.
type ClientConn struct {
	sock    *net.UnixConn
	UserFDs [MaxUserFDs]*os.File
	ExitFD  *os.File // reader end of the server's exit pipe
}

// ServerConn is the server-side view of an accepted connection: the
// accepted socket, the peer's kernel credentials, and the same
// descriptor arrays, populated once Answer is called.
type ServerConn struct {
	sock    *net.UnixConn
	Peer    *rfd.PeerCred
	UserFDs [MaxUserFDs]*os.File
	ExitFD  *os.File // writer end of the exit pipe, owned until exit is sent
}

// File returns a duplicated *os.File for the accepted control socket,
// used to hand the connection to a re-exec'd fork-mode worker via
// os/exec's ExtraFiles (see rserver.forkDispatch).
func (s *ServerConn) File() (*os.File, error) {
	return s.sock.File()
}

// FromConn wraps an already-accepted Unix connection as a ServerConn
// and fetches its peer credentials. Used by a fork-mode worker process
// to reconstruct the connection object from an inherited descriptor.
func FromConn(c *net.UnixConn) (*ServerConn, error) {
	peer, err := rfd.GetPeerCred(c)
	if err != nil {
		return nil, err
	}
	return &ServerConn{sock: c, Peer: peer}, nil
}

// Close releases every descriptor a ClientConn owns. Safe to call more
// than once; subsequent calls are no-ops on already-nil slots.
func (c *ClientConn) Close() error {
	var first error
	closeInto(&first, c.sock)
	for i := range c.UserFDs {
		closeInto(&first, c.UserFDs[i])
		c.UserFDs[i] = nil
	}
	closeInto(&first, c.ExitFD)
	c.ExitFD = nil
	c.sock = nil
	return first
}

// Close releases every descriptor a ServerConn owns.
func (s *ServerConn) Close() error {
	var first error
	closeInto(&first, s.sock)
	for i := range s.UserFDs {
		closeInto(&first, s.UserFDs[i])
		s.UserFDs[i] = nil
	}
	closeInto(&first, s.ExitFD)
	s.ExitFD = nil
	s.sock = nil
	return first
}

// closeInto closes c if non-nil, recording only the first error seen so
// repeated Close calls on a torn-down connection don't mask the
// original failure.
func closeInto(first *error, c interface{ Close() error }) {
	if c == nil {
		return
	}
	// interface holding a typed nil (*os.File)(nil) compares != nil, so
	// guard against that too.
	switch v := c.(type) {
	case *os.File:
		if v == nil {
			return
		}
	case *net.UnixConn:
		if v == nil {
			return
		}
	}
	if err := c.Close(); err != nil && *first == nil {
		*first = err
	}
}
