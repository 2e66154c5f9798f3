// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// rush is an interactive REPL front-end: it attaches a line-editing
// console to a service path prefix and dials one leaf per line,
// component M, built the way miniclient.Attach builds minimega's
// -attach console with github.com/peterh/liner.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sandia-minimega/russ/pkg/rclient"
	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

var f_base = flag.String("base", "/", "service path prefix to dial commands under")

func main() {
	flag.Parse()

	home, _ := os.UserHomeDir()
	sh := &rclient.Shell{
		Base:     *f_base,
		Prompt:   *f_base + "$ ",
		Timeout:  rdeadline.Never,
		HistFile: home + "/.rush_history",
		Dial: func(spath string, args []string) (*rclient.Conn, error) {
			return rclient.Dial(spath, os.Getuid(), rproto.OpExecute, nil, args, rdeadline.Never)
		},
		Complete: func(input string) []string {
			return completeChildren(*f_base, input)
		},
	}

	if err := sh.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "rush: %v\n", err)
		os.Exit(1)
	}
}

// completeChildren dials base with op=list and filters its children by
// input, the russ analogue of miniclient.Conn.Suggest.
func completeChildren(base, input string) []string {
	conn, err := rconn.Dial(base, os.Getuid(), rproto.OpList, nil, nil, rdeadline.FromDuration(500*time.Millisecond))
	if err != nil {
		return nil
	}
	defer conn.Close()

	var names []string
	if out := conn.UserFDs[1]; out != nil {
		buf := make([]byte, 4096)
		n, _ := out.Read(buf)
		for _, line := range strings.Split(string(buf[:n]), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && strings.HasPrefix(line, input) {
				names = append(names, line)
			}
		}
	}
	rconn.WaitExit(conn, rdeadline.FromDuration(500*time.Millisecond))
	return names
}
