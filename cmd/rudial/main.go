// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// rudial dials a service path, relays local stdio to the returned
// descriptors, waits for the exit record, and propagates the exit
// status -- the basic russ front-end spec.md section 6 describes.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sandia-minimega/russ/pkg/rclient"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

var (
	f_timeout = flag.Duration("timeout", 0, "overall dial+wait timeout, 0 for none")
	f_attrs   = flag.String("attrs", "", "comma-separated attribute list, e.g. --perf,--foo=1")
	f_op      = flag.String("op", "execute", "operation: execute, list, help, info, id")
	f_ssh     = flag.String("ssh", "", "user@host: dial spath on a remote host over SSH instead of locally")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] spath [args...]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	spath := flag.Arg(0)
	args := flag.Args()[1:]

	if *f_ssh != "" {
		os.Exit(runSSH(*f_ssh, spath, args))
	}

	var attrs []string
	if *f_attrs != "" {
		attrs = strings.Split(*f_attrs, ",")
	}

	deadline := rdeadline.Never
	if *f_timeout > 0 {
		deadline = rdeadline.FromDuration(*f_timeout)
	}

	conn, err := rclient.Dial(spath, os.Getuid(), opFromString(*f_op), attrs, args, deadline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rudial: %v\n", err)
		os.Exit(int(rproto.ExitSystemFailure))
	}
	defer conn.Close()

	os.Exit(conn.RunAndPrint(deadline))
}

func opFromString(s string) rproto.Op {
	switch s {
	case "list":
		return rproto.OpList
	case "help":
		return rproto.OpHelp
	case "info":
		return rproto.OpInfo
	case "id":
		return rproto.OpID
	default:
		return rproto.OpExecute
	}
}
