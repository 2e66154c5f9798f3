// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"fmt"
	"net"
	"os"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rfd"
)

// Accept blocks for an incoming connection on l, retrieves the peer's
// kernel credentials, and returns a ServerConn with no descriptors
// materialized yet -- Answer is a separate step per spec.md section 4.5
// step 4, gated on the matched service node's autoanswer flag.
func Accept(l *net.UnixListener, deadline rdeadline.Deadline) (*ServerConn, error) {
	if err := l.SetDeadline(deadline.Time()); err != nil {
		return nil, err
	}

	c, err := l.AcceptUnix()
	if err != nil {
		return nil, err
	}

	peer, err := rfd.GetPeerCred(c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("rconn: accept: %w", err)
	}

	return &ServerConn{sock: c, Peer: peer}, nil
}

// Answer materializes the connection's descriptors per spec.md section
// 4.5: it allocates three pipes for stdin/stdout/stderr plus one exit
// pipe, keeps the server-side ends in sconn, and sends the client-side
// ends across the control socket using the answer wire form (section
// 6). rserver's dispatch calls it for every matched node whose
// AutoAnswer flag is set; there is no hook for registering a different
// answer function. A handler on a node with AutoAnswer off can call
// AnswerFiles itself instead.
func Answer(sconn *ServerConn, deadline rdeadline.Deadline) error {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("rconn: answer: stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return fmt.Errorf("rconn: answer: stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return fmt.Errorf("rconn: answer: stderr pipe: %w", err)
	}
	exitR, exitW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return fmt.Errorf("rconn: answer: exit pipe: %w", err)
	}

	sconn.UserFDs[0] = stdinR
	sconn.UserFDs[1] = stdoutW
	sconn.UserFDs[2] = stderrW
	sconn.ExitFD = exitW

	clientFiles := make([]*os.File, MaxUserFDs+1)
	clientFiles[0] = stdinW
	clientFiles[1] = stdoutR
	clientFiles[2] = stderrR
	clientFiles[MaxUserFDs] = exitR

	if err := sendDescriptorVector(sconn.sock, deadline, clientFiles); err != nil {
		stdinW.Close()
		stdoutR.Close()
		stderrR.Close()
		exitR.Close()
		return fmt.Errorf("rconn: answer: send descriptors: %w", err)
	}

	stdinW.Close()
	stdoutR.Close()
	stderrR.Close()
	exitR.Close()
	return nil
}

// AnswerFiles is like Answer but lets the caller supply an arbitrary set
// of up to MaxUserFDs user descriptors instead of the default three-pipe
// shape, used by handlers that want to hand over something other than
// stdio (e.g. a pty master/slave pair). The exit pipe is always created.
func AnswerFiles(sconn *ServerConn, deadline rdeadline.Deadline, serverSide, clientSide [MaxUserFDs]*os.File) error {
	exitR, exitW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("rconn: answer: exit pipe: %w", err)
	}

	sconn.UserFDs = serverSide
	sconn.ExitFD = exitW

	clientFiles := make([]*os.File, MaxUserFDs+1)
	copy(clientFiles, clientSide[:])
	clientFiles[MaxUserFDs] = exitR

	if err := sendDescriptorVector(sconn.sock, deadline, clientFiles); err != nil {
		exitR.Close()
		return fmt.Errorf("rconn: answer: send descriptors: %w", err)
	}
	exitR.Close()
	return nil
}
