// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// ruinfo dials a node with op=info and prints server metadata.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sandia-minimega/russ/pkg/rclient"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

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

	conn, err := rclient.Dial(flag.Arg(0), os.Getuid(), rproto.OpInfo, nil, nil, rdeadline.Never)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ruinfo: %v\n", err)
		os.Exit(int(rproto.ExitSystemFailure))
	}
	defer conn.Close()

	os.Exit(conn.RunAndPrint(rdeadline.Never))
}
