// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"bufio"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// TestDialAnswerEcho exercises the first concrete scenario from
// spec.md section 8: dial, write to stdin, read the echo back from
// stdout, then observe a clean exit. Uses testify's assert-style
// helpers for the connection/relay integration tests, the way the
// pack's gocanopen tests do, rather than the teacher's plain table
// tests -- this is the one integration path worth the readability
// tradeoff of a third-party assertion library.
func TestDialAnswerEcho(t *testing.T) {
	dir := t.TempDir()
	addr := filepath.Join(dir, "echo.sock")

	l, err := Announce(addr, 0700, -1, -1)
	require.NoError(t, err)
	defer l.Close()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- runEchoServerOnce(l)
	}()

	deadline := rdeadline.FromDuration(2 * time.Second)
	cconn, err := Dial(addr, 0, rproto.OpExecute, nil, nil, deadline)
	require.NoError(t, err)
	defer cconn.Close()

	stdin := cconn.UserFDs[0]
	stdout := cconn.UserFDs[1]
	require.NotNil(t, stdin)
	require.NotNil(t, stdout)

	_, err = stdin.Write([]byte("hello\n"))
	require.NoError(t, err)
	stdin.Close()
	cconn.UserFDs[0] = nil

	r := bufio.NewReader(stdout)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	exit, status, err := WaitExit(cconn, deadline)
	require.NoError(t, err)
	assert.Equal(t, WaitOK, status)
	assert.EqualValues(t, rproto.ExitSuccess, exit.Status)

	assert.NoError(t, <-serverDone)
}

// runEchoServerOnce accepts a single connection, answers it, copies
// stdin to stdout until EOF, and sends a success exit record -- the
// minimum needed to exercise Dial/Answer end to end ahead of the full
// service tree and dispatcher (component F).
func runEchoServerOnce(l *net.UnixListener) error {
	sconn, err := Accept(l, rdeadline.FromDuration(2*time.Second))
	if err != nil {
		return err
	}
	defer sconn.Close()

	if err := Answer(sconn, rdeadline.FromDuration(2*time.Second)); err != nil {
		return err
	}

	io.Copy(sconn.UserFDs[1], sconn.UserFDs[0])
	sconn.UserFDs[1].Close()
	sconn.UserFDs[1] = nil

	return SendExit(sconn, &rproto.Exit{Status: rproto.ExitSuccess}, rdeadline.Never)
}
