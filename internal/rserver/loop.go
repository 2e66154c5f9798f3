// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rserver

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"

	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rlog"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// WorkerFlag is the argv[1] sentinel a fork-mode worker process
// recognizes: "the same binary, told to skip straight to handling the
// descriptor inherited as fd 3" rather than double-forking as the C
// library does. Front-ends must check os.Args[1] == WorkerFlag before
// announcing a listening socket and call RunForkedWorker instead.
const WorkerFlag = "-russ-worker"

// Serve runs the accept loop until the listener is closed or ctx-less
// forever, dispatching each connection per s.Discipline.
func (s *Server) Serve() error {
	if s.Listener == nil {
		return fmt.Errorf("rserver: serve: no listener")
	}

	for {
		deadline := rdeadline.Never
		if s.AcceptTimeout > 0 {
			deadline = rdeadline.FromDuration(s.AcceptTimeout)
		}

		sconn, err := s.Accept(s.Listener, deadline)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if s.CloseOnAccept {
					return nil
				}
				continue
			}
			return fmt.Errorf("rserver: accept: %w", err)
		}

		if s.CloseOnAccept {
			s.Listener.Close()
		}

		switch s.Discipline {
		case ForkMode:
			s.forkDispatch(sconn)
		default:
			go s.threadDispatch(sconn)
		}

		if s.CloseOnAccept {
			return nil
		}
	}
}

// threadDispatch runs one connection's request/dispatch cycle on a
// dedicated goroutine, the Go analogue of spec.md's "spawn a worker
// thread bound to that connection".
func (s *Server) threadDispatch(sconn *rconn.ServerConn) {
	defer sconn.Close()
	defer func() {
		if r := recover(); r != nil {
			rlog.Error("rserver: handler panic: %v", r)
			if sconn.ExitFD != nil {
				rconn.Fatal(sconn, "handler panic", rproto.ExitSystemFailure, s.awaitDeadline())
			}
		}
	}()

	req, err := sconn.AwaitRequest(s.awaitDeadline())
	if err != nil {
		rlog.Error("rserver: await request: %v", err)
		return
	}

	s.dispatch(sconn, req)
}

// forkDispatch hands the connection to a freshly re-exec'd worker
// process, matching the teacher's container-launch idiom (see
// cmd/minimega/container.go): Path /proc/self/exe, the connection's fd
// passed via ExtraFiles. Reaping happens on a background goroutine so
// the accept loop itself never blocks, the same effect the C library
// achieves with its second, detaching fork.
func (s *Server) forkDispatch(sconn *rconn.ServerConn) {
	f, err := sconn.File()
	if err != nil {
		rlog.Error("rserver: fork: dup connection fd: %v", err)
		sconn.Close()
		return
	}
	sconn.Close()

	cmd := &exec.Cmd{
		Path:       s.ReExecPath,
		Args:       []string{os.Args[0], WorkerFlag},
		ExtraFiles: []*os.File{f},
		Stdin:      nil,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}

	if err := cmd.Start(); err != nil {
		rlog.Error("rserver: fork: start worker: %v", err)
		f.Close()
		return
	}
	f.Close()

	go func() {
		if err := cmd.Wait(); err != nil {
			rlog.Debug("rserver: worker %d exited: %v", cmd.Process.Pid, err)
		}
	}()
}

// RunForkedWorker is the entry point a front-end's main() calls when
// os.Args[1] == WorkerFlag: it reconstructs the ServerConn from the
// descriptor inherited as fd 3, runs exactly one dispatch cycle, and
// returns. The caller's service tree must be identical to the parent's
// -- it is rebuilt fresh by the same startup code, just without
// announcing a new listening socket.
func (s *Server) RunForkedWorker() error {
	f := os.NewFile(3, "russ-conn")
	if f == nil {
		return fmt.Errorf("rserver: worker: fd 3 not available")
	}

	fc, err := net.FileConn(f)
	if err != nil {
		return fmt.Errorf("rserver: worker: %w", err)
	}
	uconn, ok := fc.(*net.UnixConn)
	if !ok {
		fc.Close()
		return fmt.Errorf("rserver: worker: fd 3 is not a unix socket")
	}

	sconn, err := rconn.FromConn(uconn)
	if err != nil {
		return fmt.Errorf("rserver: worker: %w", err)
	}
	defer sconn.Close()

	req, err := sconn.AwaitRequest(s.awaitDeadline())
	if err != nil {
		return fmt.Errorf("rserver: worker: await request: %w", err)
	}

	s.dispatch(sconn, req)
	return nil
}
