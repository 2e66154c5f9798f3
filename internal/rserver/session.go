// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rserver implements component F's server half: the Server
// type, its dispatch logic over an rtree service trie, and the fork and
// thread accept disciplines of spec.md section 4.5. "Fork" is
// reimagined in Go terms as a self re-exec via /proc/self/exe with the
// accepted connection passed through ExtraFiles, the same technique the
// teacher uses to launch container inits (see cmd/minimega/container.go).
package rserver

import (
	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rpath"
	"github.com/sandia-minimega/russ/pkg/rpeer"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// Session is the per-request, per-connection bundle passed to a
// handler, per spec.md section 3.
type Session struct {
	Server *Server
	SConn  *rconn.ServerConn
	Req    *rproto.Request

	// SPathPrefix is the portion of the request's service path consumed
	// to reach the matched node.
	SPathPrefix string
	// Name is the last component of SPathPrefix with any "?k=v" options
	// removed; for a wildcard match it is the dialed component, not "*".
	Name string
	// Opts is the matched component's parsed "?k=v" option vector.
	Opts []rpath.Option

	// PeerProcess supplements SConn.Peer's uid/gid/pid credential triple
	// with /proc-derived process metadata (component J), populated once
	// per dispatch. Nil if the lookup failed, e.g. the peer process
	// already exited or /proc is unavailable.
	PeerProcess *rpeer.Info
}
