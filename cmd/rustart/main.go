// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// rustart announces a listening socket and runs a server rooted at the
// internal/rdebug demonstration tree, matching how cmd/minimega's
// main.go wires together the library packages it depends on. A real
// deployment calls rserver.New with its own *rtree.Node instead; this
// binary exists to make the concrete scenarios in spec.md section 8
// dial-able end to end.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/sandia-minimega/russ/internal/rconfig"
	"github.com/sandia-minimega/russ/internal/rdebug"
	"github.com/sandia-minimega/russ/internal/rserver"
	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rlog"
	"github.com/sandia-minimega/russ/pkg/rpath"
)

var (
	f_addr   = flag.String("addr", "/tmp/russ.sock", "socket address to announce")
	f_config = flag.String("config", "", "ini settings file (component I)")
	f_fork   = flag.Bool("fork", false, "use fork discipline instead of thread discipline")
	f_level  = flag.String("level", "info", "log level: debug, info, warn, error, fatal")
	f_fd3    = flag.Bool("fd3", false, "listen on the socket inherited as fd 3 instead of announcing -addr (ruspawn)")
)

func main() {
	// A fork-mode worker re-exec arrives as argv[1] == WorkerFlag with no
	// other flags set; handle it before flag.Parse sees an argument it
	// doesn't recognize.
	if len(os.Args) > 1 && os.Args[1] == rserver.WorkerFlag {
		runWorker()
		return
	}

	flag.Parse()

	cfg := rconfig.Default()
	if *f_config != "" {
		var err error
		cfg, err = rconfig.Load(*f_config)
		if err != nil {
			rlog.Fatal("rustart: %v", err)
		}
	}

	// -level overrides the config file's log_level only if the caller
	// actually passed it; otherwise the config's value wins.
	levelName := cfg.LogLevel
	flag.Visit(func(fl *flag.Flag) {
		if fl.Name == "level" {
			levelName = *f_level
		}
	})
	level, err := rlog.ParseLevel(levelName)
	if err != nil {
		level = rlog.INFO
	}
	rlog.AddLogger("stderr", os.Stderr, level, cfg.LogColor)
	rlog.EnableHistory(200)

	if cfg.ServicesDir != "" {
		os.Setenv(rpath.ServicesDirEnv, cfg.ServicesDir)
	}

	var listener *net.UnixListener
	if *f_fd3 {
		listener, err = listenerFromFD(3)
		if err != nil {
			rlog.Fatal("rustart: inherit fd 3: %v", err)
		}
	} else {
		listener, err = rconn.Announce(*f_addr, os.FileMode(cfg.ListenMode), os.Getuid(), os.Getgid())
		if err != nil {
			rlog.Fatal("rustart: announce: %v", err)
		}
	}

	srv := rserver.New(rdebug.New())
	srv.Listener = listener
	srv.ListenAddr = *f_addr
	srv.HelpString = "russ debug service tree: /echo /exit /discard /chargen /pty /a/*"
	srv.AcceptTimeout = cfg.AcceptTimeout
	srv.AwaitTimeout = cfg.AwaitTimeout
	if *f_fork {
		srv.Discipline = rserver.ForkMode
	}

	fmt.Fprintf(os.Stderr, "rustart: listening on %s (pid %d)\n", *f_addr, os.Getpid())
	if err := srv.Serve(); err != nil {
		rlog.Fatal("rustart: serve: %v", err)
	}
}

// runWorker is the fork-mode re-exec entry point: rebuild the same tree
// and run exactly one dispatch cycle against the inherited connection.
func runWorker() {
	srv := rserver.New(rdebug.New())
	if err := srv.RunForkedWorker(); err != nil {
		rlog.Error("rustart: worker: %v", err)
		os.Exit(1)
	}
}

// listenerFromFD wraps an already-listening socket inherited at fd,
// spec.md section 4.5's "listening socket inheritance": ruspawn
// announces the socket itself and hands it to this process already
// bound and listening, skipping Announce entirely.
func listenerFromFD(fd uintptr) (*net.UnixListener, error) {
	f := os.NewFile(fd, "russ-listen")
	if f == nil {
		return nil, fmt.Errorf("fd %d not available", fd)
	}
	l, err := net.FileListener(f)
	if err != nil {
		return nil, err
	}
	ul, ok := l.(*net.UnixListener)
	if !ok {
		l.Close()
		return nil, fmt.Errorf("fd %d is not a unix listener", fd)
	}
	return ul, nil
}
