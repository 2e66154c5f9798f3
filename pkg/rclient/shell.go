// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rclient

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/peterh/liner"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// Dialer is the subset of behavior Shell needs to turn one line of
// input into one dial. Front-ends pass a closure built around Dial so
// Shell itself never has to know about uid/attrs bookkeeping.
type Dialer func(spath string, args []string) (*Conn, error)

// Shell is an interactive front-end console, the russ analogue of
// miniclient.Conn.Attach: a prompt loop with history and completion
// that dials a fresh connection per line of input rather than sharing
// one long-lived command channel, since russ has no persistent command
// socket the way minimega's JSON/gob protocol does.
type Shell struct {
	Prompt    string
	Base      string // service path prefix each bare command is dialed under
	Dial      Dialer
	Complete  func(input string) []string
	Timeout   rdeadline.Deadline
	HistFile  string
}

// Run starts the prompt loop and returns when the user disconnects
// (Ctrl-D, "quit", or "disconnect") or liner itself errors out.
func (sh *Shell) Run() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	if sh.Complete != nil {
		line.SetCompleter(sh.Complete)
	}

	if sh.HistFile != "" {
		if f, err := os.Open(sh.HistFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	prompt := sh.Prompt
	if prompt == "" {
		prompt = sh.Base + "$ "
	}

	for {
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			fmt.Println("disconnecting")
			break
		}
		if err == io.EOF {
			fmt.Println()
			break
		}
		if err != nil {
			return fmt.Errorf("rclient: shell: %w", err)
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		line.AppendHistory(input)

		if trimmed == "quit" || trimmed == "disconnect" || trimmed == "exit" {
			break
		}

		sh.dispatch(trimmed)
	}

	if sh.HistFile != "" {
		if f, err := os.Create(sh.HistFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}

	return nil
}

// dispatch splits one line of input into a leaf name and argv, dials it
// under sh.Base, and relays it to the console.
func (sh *Shell) dispatch(input string) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}

	spath := path.Join(sh.Base, fields[0])
	conn, err := sh.Dial(spath, fields[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", fields[0], err)
		return
	}
	defer conn.Close()

	status := conn.RunAndPrint(sh.Timeout)
	if status != rproto.ExitSuccess {
		fmt.Fprintf(os.Stderr, "%s: exit %d\n", fields[0], status)
	}
}
