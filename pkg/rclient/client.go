// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rclient implements the front-end half of a dial: connect to a
// service path, relay the calling process's own stdio against the
// answered descriptors, and report the server's exit record. It plays
// the role the teacher's pkg/miniclient plays for minimega, adapted from
// a JSON/gob command protocol onto russ's fd-passing dial (component E).
package rclient

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rpager"
	"github.com/sandia-minimega/russ/pkg/rproto"
	"github.com/sandia-minimega/russ/internal/rrelay"
)

// Conn is a dialed russ connection, relayed against the calling
// process's stdio.
type Conn struct {
	SPath string
	cconn *rconn.ClientConn
}

// Dial resolves and dials spath under op, using uid for "++" expansion.
func Dial(spath string, uid int, op rproto.Op, attrs, args []string, deadline rdeadline.Deadline) (*Conn, error) {
	cconn, err := rconn.Dial(spath, uid, op, attrs, args, deadline)
	if err != nil {
		return nil, err
	}
	return &Conn{SPath: spath, cconn: cconn}, nil
}

// Close releases every descriptor the dial returned.
func (c *Conn) Close() error {
	return c.cconn.Close()
}

// Run relays os.Stdin/os.Stdout/os.Stderr against the dialed service's
// user fds 0, 1, 2 until the service closes its end, then waits for the
// exit record and returns its status and message. This is the Go
// analogue of a plain `rudial spath -- args...` invocation: three
// independent byte streams plus an exit observer, exactly the shape
// rrelay already implements for a server-side splice.
func (c *Conn) Run(timeout rdeadline.Deadline) (*rproto.Exit, rconn.WaitStatus, error) {
	r := rrelay.New(0)

	if in := c.cconn.UserFDs[0]; in != nil {
		stdinR, stdinW, err := os.Pipe()
		if err == nil {
			r.AddStream("stdin", stdinR, in, nil)
			go func() {
				_, _ = io.Copy(stdinW, os.Stdin)
				stdinW.Close()
			}()
		}
	}
	if out := c.cconn.UserFDs[1]; out != nil {
		r.AddStream("stdout", out, os.Stdout, nil)
	}
	if errfd := c.cconn.UserFDs[2]; errfd != nil {
		r.AddStream("stderr", errfd, os.Stderr, nil)
	}

	relayTimeout := timeout.Remaining()
	done := make(chan error, 1)
	go func() { done <- r.Serve(asDuration(relayTimeout)) }()

	exit, status, err := rconn.WaitExit(c.cconn, timeout)
	<-done
	return exit, status, err
}

// RunAndPrint is a convenience wrapper for front-ends: it runs the
// relay and returns an exit code for the process. It prints one line to
// stderr when the wait failed, when it timed out, or when a non-success
// exit carried a message; a hang-up (ExitFDClosed), an already-closed
// exit fd (ExitSuccess) and a non-success exit with no message are
// returned without printing anything.
func (c *Conn) RunAndPrint(timeout rdeadline.Deadline) int {
	exit, status, err := c.Run(timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rclient: %s: %v\n", c.SPath, err)
		return int(rproto.ExitSystemFailure)
	}
	switch status {
	case rconn.WaitHup:
		return int(rproto.ExitFDClosed)
	case rconn.WaitTimeout:
		fmt.Fprintf(os.Stderr, "rclient: %s: timed out waiting for exit\n", c.SPath)
		return int(rproto.ExitSystemFailure)
	case rconn.WaitBadFD:
		return int(rproto.ExitSuccess)
	}
	if exit.Message != "" && exit.Status != rproto.ExitSuccess {
		fmt.Fprintf(os.Stderr, "rclient: %s: %s\n", c.SPath, exit.Message)
	}
	return int(exit.Status)
}

// RunCapturedAndPage returns the same exit codes as RunAndPrint, but captures stdout into
// memory instead of streaming it live and pages the result through
// rpager.Default -- the shape ruls -page wants, where the whole
// response is small and the value is in seeing it a screen at a time
// rather than interactively. The user's stdin is not relayed; the
// dialed service's stdin is closed at once.
func (c *Conn) RunCapturedAndPage(timeout rdeadline.Deadline) int {
	r := rrelay.New(0)
	var captured bytes.Buffer
	captureDone := make(chan struct{})
	close(captureDone) // no-op default if there is no stdout fd to capture

	if out := c.cconn.UserFDs[1]; out != nil {
		pr, pw, err := os.Pipe()
		if err == nil {
			r.AddStream("stdout", out, pw, nil)
			captureDone = make(chan struct{})
			go func() {
				io.Copy(&captured, pr)
				pr.Close()
				close(captureDone)
			}()
		}
	}
	if errfd := c.cconn.UserFDs[2]; errfd != nil {
		r.AddStream("stderr", errfd, os.Stderr, nil)
	}
	if in := c.cconn.UserFDs[0]; in != nil {
		in.Close()
	}

	relayTimeout := timeout.Remaining()
	done := make(chan error, 1)
	go func() { done <- r.Serve(asDuration(relayTimeout)) }()

	exit, status, err := rconn.WaitExit(c.cconn, timeout)
	<-done
	<-captureDone

	if err != nil {
		fmt.Fprintf(os.Stderr, "rclient: %s: %v\n", c.SPath, err)
		return int(rproto.ExitSystemFailure)
	}

	rpager.Default.Page(captured.String())
	switch status {
	case rconn.WaitHup:
		return int(rproto.ExitFDClosed)
	case rconn.WaitTimeout:
		fmt.Fprintf(os.Stderr, "rclient: %s: timed out waiting for exit\n", c.SPath)
		return int(rproto.ExitSystemFailure)
	case rconn.WaitOK:
		return int(exit.Status)
	}
	return int(rproto.ExitSuccess)
}

// asDuration converts an rdeadline.Remaining()-style millisecond count
// into a time.Duration, treating the Never sentinel (math.MaxInt64) as
// "no timeout" for rrelay.Serve.
func asDuration(remainingMS int64) time.Duration {
	if remainingMS >= math.MaxInt64/int64(time.Millisecond) {
		return 0
	}
	return time.Duration(remainingMS) * time.Millisecond
}
