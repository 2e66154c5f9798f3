// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rpager pages long output through $PAGER, for front-ends like
// ruls -page whose dialed output (a big service listing) can exceed a
// terminal's height.
package rpager

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"unsafe"

	"github.com/sandia-minimega/russ/pkg/rlog"
)

// Pager pages a block of captured output.
type Pager interface {
	Page(output string)
}

type winsize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}

// Default pages through $PAGER (falling back to less) whenever output
// has at least twice as many lines as the terminal has rows.
var Default Pager = &termPager{}

type termPager struct{}

func (termPager) Page(output string) {
	if output == "" {
		return
	}

	size := termSize()
	if size == nil {
		fmt.Println(output)
		return
	}

	lines := strings.Count(output, "\n")
	if lines < 2*int(size.Row) {
		fmt.Println(output)
		return
	}

	fmt.Printf("-- sending %v lines to $PAGER --\n", lines)

	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}

	cmd := exec.Command(pager)
	cmd.Stdin = strings.NewReader(output)
	cmd.Stdout = os.Stdout

	if err := cmd.Run(); err != nil {
		rlog.Error("rpager: problem paging: %s", err)
	}
}

func termSize() *winsize {
	ws := &winsize{}
	res, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		uintptr(syscall.Stdout),
		uintptr(syscall.TIOCGWINSZ),
		uintptr(unsafe.Pointer(ws)))

	if int(res) == -1 {
		rlog.Error("rpager: unable to determine terminal size (errno: %d)", errno)
		return nil
	}

	return ws
}
