// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// ruspawn announces a listening socket itself, then fork/execs a server
// binary with that socket inherited as fd 3, spec.md section 4.5's
// "listening socket inheritance": the supervisor, not the server, owns
// bind()/listen(), so a server can be restarted without a window where
// new dials get ECONNREFUSED.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/sandia-minimega/russ/pkg/rconn"
)

var (
	f_addr = flag.String("addr", "/tmp/russ.sock", "socket address to announce")
	f_mode = flag.Uint("mode", 0660, "socket file mode")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] server-binary [args...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	listener, err := rconn.Announce(*f_addr, os.FileMode(*f_mode), os.Getuid(), os.Getgid())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ruspawn: announce: %v\n", err)
		os.Exit(1)
	}

	lf, err := listener.File()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ruspawn: listener fd: %v\n", err)
		os.Exit(1)
	}
	listener.Close()

	cmd := exec.Command(flag.Arg(0), flag.Args()[1:]...)
	cmd.ExtraFiles = []*os.File{lf}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "ruspawn: start: %v\n", err)
		os.Exit(1)
	}
	lf.Close()

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "ruspawn: wait: %v\n", err)
		os.Exit(1)
	}
}
