// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rdebug

import (
	"os"
	"os/exec"

	"github.com/kr/pty"

	"github.com/sandia-minimega/russ/internal/rrelay"
	"github.com/sandia-minimega/russ/internal/rserver"
	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// ptyHandler implements component K: allocate a pty, attach an
// interactive shell to it, and relay the dialer's user fds against the
// pty master, exercising the descriptor-transfer and relay paths with a
// genuinely interactive program rather than a canned byte generator.
// Grounded on the teacher's cmd/minimega/container.go launch idiom
// (pty.Start(cmd)), but the spawned program here is a plain shell
// rather than a namespaced container init.
func ptyHandler(sess *rserver.Session) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell)
	if len(sess.Req.Args) > 0 {
		cmd = exec.Command(shell, "-c", sess.Req.Args[0])
	}

	master, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer master.Close()

	deadline := rdeadline.Never
	r := rrelay.New(0)
	if in := sess.SConn.UserFDs[0]; in != nil {
		r.AddStream("stdin", in, master, nil)
	}
	if out := sess.SConn.UserFDs[1]; out != nil {
		r.AddStream("stdout", master, out, nil)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	r.Serve(0)
	werr := <-waitDone

	status := int32(rproto.ExitSuccess)
	if exitErr, ok := werr.(*exec.ExitError); ok {
		status = int32(exitErr.ExitCode())
	} else if werr != nil {
		status = rproto.ExitFailure
	}

	return rconn.SendExit(sess.SConn, &rproto.Exit{Status: status}, deadline)
}
