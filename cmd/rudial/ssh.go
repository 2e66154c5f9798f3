// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/sandia-minimega/russ/pkg/rconn"
)

// runSSH implements -ssh user@host: dial the remote host, then run a
// remote rudial invocation for spath/args over that connection, with
// local stdio wired straight into the SSH session (component L).
func runSSH(target, spath string, args []string) int {
	user, host := target, ""
	if i := strings.IndexByte(target, '@'); i >= 0 {
		user, host = target[:i], target[i+1:]
	} else {
		host = target
		if u := os.Getenv("USER"); u != "" {
			user = u
		}
	}
	if !strings.Contains(host, ":") {
		host += ":22"
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{agentAuth()},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	client, err := rconn.DialSSH(host, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rudial: -ssh: %v\n", err)
		return 127
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rudial: -ssh: new session: %v\n", err)
		return 127
	}
	defer session.Close()

	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	remote := "rudial " + spath
	for _, a := range args {
		remote += " " + a
	}

	if err := session.Run(remote); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return exitErr.ExitStatus()
		}
		fmt.Fprintf(os.Stderr, "rudial: -ssh: %v\n", err)
		return 127
	}
	return 0
}

// agentAuth wires up ssh-agent authentication the standard way,
// failing closed to an empty signer list if SSH_AUTH_SOCK is unset.
func agentAuth() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return ssh.PublicKeys()
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return ssh.PublicKeys()
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}
