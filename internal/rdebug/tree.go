// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rdebug builds the demonstration service tree spec.md section
// 8's concrete scenarios dial against: /echo, /exit, /discard,
// /chargen, and a wildcard /a/* node. rustart wires this tree as its
// default root, the same way cmd/minimega's main.go wires together the
// library packages minimega depends on.
package rdebug

import (
	"fmt"
	"io"
	"strconv"

	"github.com/sandia-minimega/russ/internal/rserver"
	"github.com/sandia-minimega/russ/internal/rtree"
	"github.com/sandia-minimega/russ/pkg/rconn"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// New builds the debug tree described in spec.md section 8: a handful
// of leaves a front-end can dial to exercise relay, exit, and wildcard
// matching without standing up a real service.
func New() *rtree.Node {
	root := rtree.New()

	mustAdd(root, "echo", rserver.Wrap(echoHandler))
	mustAdd(root, "exit", rserver.Wrap(exitHandler))
	mustAdd(root, "discard", rserver.Wrap(discardHandler))
	mustAdd(root, "chargen", rserver.Wrap(chargenHandler))
	mustAdd(root, "pty", rserver.Wrap(ptyHandler))

	a, err := root.Add("a", nil)
	if err != nil {
		panic(err)
	}
	wc, err := a.Add(rtree.WildcardName, rserver.Wrap(wildcardHandler))
	if err != nil {
		panic(err)
	}
	wc.SetVirtual(true)

	return root
}

func mustAdd(parent *rtree.Node, name string, h rtree.HandlerFunc) {
	if _, err := parent.Add(name, h); err != nil {
		panic(err)
	}
}

// echoHandler implements concrete scenario 1: copy stdin to stdout
// verbatim, exit 0 once the client closes its write end.
func echoHandler(sess *rserver.Session) error {
	in, out := sess.SConn.UserFDs[0], sess.SConn.UserFDs[1]
	if in != nil && out != nil {
		io.Copy(out, in)
	}
	return rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, rdeadline.Never)
}

// exitHandler implements concrete scenario 2: exit with the status
// given as the first argument.
func exitHandler(sess *rserver.Session) error {
	status := int32(rproto.ExitSuccess)
	if len(sess.Req.Args) > 0 {
		if n, err := strconv.Atoi(sess.Req.Args[0]); err == nil {
			status = int32(n)
		}
	}
	return rconn.SendExit(sess.SConn, &rproto.Exit{Status: status}, rdeadline.Never)
}

// discardHandler implements concrete scenario 3: read stdin to EOF,
// discarding it, and if "--perf" was supplied as an attribute, report
// the total transferred to stderr in the "total (MB): %.1f" form the
// scenario checks for.
func discardHandler(sess *rserver.Session) error {
	in := sess.SConn.UserFDs[0]
	var total int64
	if in != nil {
		n, _ := io.Copy(io.Discard, in)
		total = n
	}

	if hasAttr(sess.Req.Attrs, "--perf") {
		if errfd := sess.SConn.UserFDs[2]; errfd != nil {
			fmt.Fprintf(errfd, "total (MB): %.1f\n", float64(total)/(1024*1024))
		}
	}

	return rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, rdeadline.Never)
}

// chargenHandler implements concrete scenario 4: a classic RFC 864
// character generator, cycling printable ASCII 33-126 onto stdout until
// the client disconnects.
func chargenHandler(sess *rserver.Session) error {
	out := sess.SConn.UserFDs[1]
	if out == nil {
		return rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, rdeadline.Never)
	}

	const lineLen = 72
	start := byte('!')
	for {
		line := make([]byte, lineLen+1)
		c := start
		for i := 0; i < lineLen; i++ {
			line[i] = c
			c++
			if c > 126 {
				c = 33
			}
		}
		line[lineLen] = '\n'
		if _, err := out.Write(line); err != nil {
			break
		}
		start++
		if start > 126 {
			start = 33
		}
	}

	return rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, rdeadline.Never)
}

// wildcardHandler implements concrete scenario 5: print the matched
// leaf name and the full prefix the dial resolved against.
func wildcardHandler(sess *rserver.Session) error {
	if out := sess.SConn.UserFDs[1]; out != nil {
		fmt.Fprintf(out, "%s %s\n", sess.Name, sess.SPathPrefix)
	}
	return rconn.SendExit(sess.SConn, &rproto.Exit{Status: rproto.ExitSuccess}, rdeadline.Never)
}

func hasAttr(attrs []string, name string) bool {
	for _, a := range attrs {
		if a == name || len(a) > len(name) && a[:len(name)+1] == name+"=" {
			return true
		}
	}
	return false
}
