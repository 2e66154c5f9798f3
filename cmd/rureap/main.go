// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// rureap dials a running server's info node and reports its master pid,
// creation time and hostname, the liveness probe a supervisor runs before deciding
// whether to restart a server.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

var f_timeout = flag.Duration("timeout", 2*time.Second, "dial+wait timeout")

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

	deadline := rdeadline.FromDuration(*f_timeout)

	cconn, err := rconn.Dial(flag.Arg(0), os.Getuid(), rproto.OpInfo, nil, nil, deadline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rureap: down: %v\n", err)
		os.Exit(1)
	}
	defer cconn.Close()

	fields := map[string]string{}
	if out := cconn.UserFDs[1]; out != nil {
		scanner := bufio.NewScanner(out)
		for scanner.Scan() {
			line := scanner.Text()
			if i := strings.Index(line, ": "); i > 0 {
				fields[line[:i]] = line[i+2:]
			}
		}
	}

	_, status, err := rconn.WaitExit(cconn, deadline)
	if err != nil || status != rconn.WaitOK {
		fmt.Fprintf(os.Stderr, "rureap: down: wait=%v err=%v\n", status, err)
		os.Exit(1)
	}

	fmt.Printf("pid=%s created=%s hostname=%s\n", fields["masterpid"], fields["created"], fields["hostname"])
	os.Exit(0)
}
