// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rserver

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rlog"
	"github.com/sandia-minimega/russ/pkg/rpath"
	"github.com/sandia-minimega/russ/pkg/rpeer"
	"github.com/sandia-minimega/russ/pkg/rproto"
	"github.com/sandia-minimega/russ/internal/rtree"
)

// Discipline selects the accept loop's concurrency model, per spec.md
// section 4.5.
type Discipline int

const (
	ForkMode Discipline = iota
	ThreadMode
)

// Handler is the signature service node handlers implement. It is
// narrower than rtree.HandlerFunc (interface{}) so implementers work
// with a concrete *Session; Wrap adapts one to the other.
type Handler func(*Session) error

// Wrap adapts a Handler to rtree.HandlerFunc for use with (*rtree.Node).Add.
func Wrap(h Handler) rtree.HandlerFunc {
	return func(sess interface{}) error {
		return h(sess.(*Session))
	}
}

// AcceptFunc is the replaceable admission policy spec.md section 4.5
// calls out: "the accept step is delegated to a replaceable
// accepthandler". The default, DefaultAccept, wraps rconn.Accept.
type AcceptFunc func(l *net.UnixListener, deadline rdeadline.Deadline) (*rconn.ServerConn, error)

// DefaultAccept is the default AcceptFunc.
func DefaultAccept(l *net.UnixListener, deadline rdeadline.Deadline) (*rconn.ServerConn, error) {
	return rconn.Accept(l, deadline)
}

// Server holds everything spec.md section 3 assigns a server: the root
// service node, accept discipline, listening socket, timeouts, and the
// four policy flags.
type Server struct {
	Root       *rtree.Node
	Discipline Discipline
	Listener   *net.UnixListener

	AcceptTimeout time.Duration
	AwaitTimeout  time.Duration

	MasterPID int
	CreatedAt time.Time

	AllowRootUser   bool
	AutoSwitchUser  bool
	MatchClientUser bool
	CloseOnAccept   bool

	Accept AcceptFunc

	ListenAddr string
	HelpString string

	// ReExecPath is the executable passed to os/exec for fork-mode
	// workers; defaults to /proc/self/exe. Overridable for tests.
	ReExecPath string
}

// New returns a Server with the fields spec.md's defaults imply:
// autoanswer-bearing root, thread discipline, no special policy flags.
func New(root *rtree.Node) *Server {
	return &Server{
		Root:       root,
		Discipline: ThreadMode,
		MasterPID:  os.Getpid(),
		CreatedAt:  time.Now(),
		Accept:     DefaultAccept,
		ReExecPath: "/proc/self/exe",
	}
}

// dispatch runs spec.md section 4.5's seven-step dispatch procedure
// against a freshly-accepted, request-decoded connection.
func (s *Server) dispatch(sconn *rconn.ServerConn, req *rproto.Request) {
	deadline := s.awaitDeadline()

	if req.Op == rproto.OpNotSet {
		rconn.Fatal(sconn, "bad op", rproto.ExitFailure, deadline)
		return
	}
	if !strings.HasPrefix(req.SPath, "/") {
		rconn.Fatal(sconn, "spath must be absolute", rproto.ExitFailure, deadline)
		return
	}

	result, err := rtree.Find(s.Root, req.SPath)
	if err != nil {
		rconn.Fatal(sconn, fmt.Sprintf("lookup failed: %v", err), rproto.ExitFailure, deadline)
		return
	}
	node := result.Node

	if node.AutoAnswer {
		if err := rconn.Answer(sconn, deadline); err != nil {
			rlog.Error("rserver: answer failed: %v", err)
			return
		}
	}

	if s.AutoSwitchUser {
		if sconn.Peer.UID == 0 && !s.AllowRootUser {
			rconn.Fatal(sconn, "bad user", rproto.ExitFailure, deadline)
			return
		}
		if err := rconn.SetEUIDGID(int(sconn.Peer.UID), int(sconn.Peer.GID)); err != nil {
			rconn.Fatal(sconn, "cannot switch user", rproto.ExitCallFailure, deadline)
			return
		}
	} else if sconn.Peer.UID == 0 && !s.AllowRootUser {
		rconn.Fatal(sconn, "bad user", rproto.ExitFailure, deadline)
		return
	}

	name, opts := rpath.SplitComponentOptions(lastComponent(result.Prefix))
	peerProcess, _ := rpeer.Lookup(int(sconn.Peer.PID))
	sess := &Session{
		Server:      s,
		SConn:       sconn,
		Req:         req,
		SPathPrefix: result.Prefix,
		Name:        name,
		Opts:        opts,
		PeerProcess: peerProcess,
	}

	var handlerErr error
	if node.Handler != nil {
		handlerErr = node.Handler(sess)
	}

	if handlerErr != nil {
		rconn.Fatal(sconn, handlerErr.Error(), rproto.ExitFailure, deadline)
		return
	}

	// Fallback behavior for handlers that returned without sending an
	// exit record themselves, or nodes with no handler at all.
	s.fallback(sess, node)
}

func lastComponent(prefix string) string {
	parts := strings.Split(strings.TrimPrefix(prefix, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func (s *Server) awaitDeadline() rdeadline.Deadline {
	if s.AwaitTimeout <= 0 {
		return rdeadline.Never
	}
	return rdeadline.FromDuration(s.AwaitTimeout)
}
