// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rserver

import (
	"fmt"
	"os"

	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rlog"
	"github.com/sandia-minimega/russ/pkg/rproto"
	"github.com/sandia-minimega/russ/internal/rtree"
)

// fallback implements step 7 of spec.md section 4.5's dispatch
// algorithm: default behavior supplied when a handler returns without
// having sent an exit record of its own.
func (s *Server) fallback(sess *Session, node *rtree.Node) {
	if sess.SConn.ExitFD == nil {
		// handler already sent its own exit record.
		return
	}

	deadline := s.awaitDeadline()
	stdout := sess.SConn.UserFDs[1]

	switch sess.Req.Op {
	case rproto.OpList:
		if node.Virtual || node.Wildcard {
			rconn.Fatal(sess.SConn, "bad op", rproto.ExitFailure, deadline)
			return
		}
		if stdout != nil {
			for _, c := range node.Children() {
				fmt.Fprintln(stdout, c.Name)
			}
		}
		rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, deadline)

	case rproto.OpHelp:
		if stdout != nil && s.HelpString != "" {
			fmt.Fprintln(stdout, s.HelpString)
		}
		rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, deadline)

	case rproto.OpInfo:
		if sess.SConn.Peer.UID != uint32(os.Getuid()) {
			rconn.Fatal(sess.SConn, "bad user", rproto.ExitFailure, deadline)
			return
		}
		if stdout != nil {
			hostname, _ := os.Hostname()
			fmt.Fprintf(stdout, "hostname: %s\n", hostname)
			fmt.Fprintf(stdout, "address: %s\n", s.ListenAddr)
			fmt.Fprintf(stdout, "masterpid: %d\n", s.MasterPID)
			fmt.Fprintf(stdout, "created: %s\n", s.CreatedAt)
			fmt.Fprintf(stdout, "pid: %d\n", os.Getpid())
			if info := sess.PeerProcess; info != nil {
				fmt.Fprintf(stdout, "peer-comm: %s\n", info.Comm)
				fmt.Fprintf(stdout, "peer-state: %s\n", info.State)
			}
			for _, line := range rlog.RecentHistory() {
				fmt.Fprintf(stdout, "log: %s\n", line)
			}
		}
		rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, deadline)

	case rproto.OpExecute, rproto.OpID:
		// A handler exists for these in the ordinary case; reaching the
		// fallback with no handler at all means nothing answered the
		// request.
		rconn.Fatal(sess.SConn, "no-exit", rproto.ExitSystemFailure, deadline)

	default:
		rconn.Fatal(sess.SConn, "bad op", rproto.ExitFailure, deadline)
	}
}
