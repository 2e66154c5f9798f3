// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// ruls dials a node with op=list and prints its children.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sandia-minimega/russ/pkg/rclient"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

var f_page = flag.Bool("page", false, "page the listing through $PAGER instead of streaming it")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s spath\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := rclient.Dial(flag.Arg(0), os.Getuid(), rproto.OpList, nil, nil, rdeadline.Never)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ruls: %v\n", err)
		os.Exit(int(rproto.ExitSystemFailure))
	}
	defer conn.Close()

	if *f_page {
		os.Exit(conn.RunCapturedAndPage(rdeadline.Never))
	}
	os.Exit(conn.RunAndPrint(rdeadline.Never))
}
