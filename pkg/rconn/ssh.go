// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// DialSSH opens an SSH connection to addr, the first half of component
// L's "redial on a remote host" splice (grounded on the teacher's
// cmd/protonuke/ssh.go, which dials and drives an ssh.Session the same
// way).
func DialSSH(addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("rconn: dial ssh %s: %w", addr, err)
	}
	return client, nil
}

// RedialAndSpliceSSH realizes the "splice servers (via SSH ...)"
// transparency promised in spec.md section 1: rather than locally
// redialing spath and handing off real descriptors (RedialAndSplice),
// it runs remoteCommand (typically a remote rudial invocation) over an
// SSH session and wires sconn's user fds directly in as that session's
// stdio. Real SCM_RIGHTS descriptor passing cannot cross an SSH
// channel -- only the final remote-host-to-remote-service hop gets
// genuine fd transfer -- so this is where the splice primitive's
// byte-only fallback belongs.
func RedialAndSpliceSSH(sconn *ServerConn, client *ssh.Client, remoteCommand string, deadline rdeadline.Deadline) error {
	session, err := client.NewSession()
	if err != nil {
		return Fatal(sconn, fmt.Sprintf("ssh session: %v", err), rproto.ExitSystemFailure, deadline)
	}
	defer session.Close()

	session.Stdin = sconn.UserFDs[0]
	session.Stdout = sconn.UserFDs[1]
	session.Stderr = sconn.UserFDs[2]

	runErr := session.Run(remoteCommand)

	status := int32(rproto.ExitSuccess)
	message := ""
	if runErr != nil {
		if exitErr, ok := runErr.(*ssh.ExitError); ok {
			status = int32(exitErr.ExitStatus())
		} else {
			status = rproto.ExitSystemFailure
			message = runErr.Error()
		}
	}

	return SendExit(sconn, &rproto.Exit{Status: status, Message: message}, deadline)
}
