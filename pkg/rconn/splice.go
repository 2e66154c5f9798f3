// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"fmt"
	"os"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// Splice implements spec.md section 4.7: transfer cconn's user fds (the
// descriptors just received from an inner, downstream dial) to sconn's
// peer, using the same presence-vector answer mechanism, then tear down
// every local copy -- both control sockets and all transferred fds.
// After Splice returns successfully, the calling server may exit without
// participating in the resulting byte traffic; the original client now
// talks directly to whatever answered the inner dial.
func Splice(sconn *ServerConn, cconn *ClientConn, deadline rdeadline.Deadline) error {
	clientFiles := make([]*os.File, MaxUserFDs+1)
	copy(clientFiles[:MaxUserFDs], cconn.UserFDs[:])
	clientFiles[MaxUserFDs] = cconn.ExitFD

	if err := sendDescriptorVector(sconn.sock, deadline, clientFiles); err != nil {
		return fmt.Errorf("rconn: splice: %w", err)
	}

	// The transfer was a move: every fd just handed over as ancillary
	// data must be closed locally, and both control sockets torn down.
	for i := range cconn.UserFDs {
		if cconn.UserFDs[i] != nil {
			cconn.UserFDs[i].Close()
			cconn.UserFDs[i] = nil
		}
	}
	if cconn.ExitFD != nil {
		cconn.ExitFD.Close()
		cconn.ExitFD = nil
	}

	return sconn.Close()
}

// SwitchUserFunc performs the effective-uid/gid switch spec.md section
// 4.5 describes for autoswitchuser. It is pluggable so tests can stub
// out the OS call; the default, SetEUIDGID, wraps syscall.Setreuid /
// Setregid.
type SwitchUserFunc func(uid, gid int) error

// RedialAndSplice composes a user switch, an outbound dial, and a
// splice into the one-call "become a transparent router" primitive of
// spec.md section 4.7. If the user switch, dial, or splice fails, a
// fatal exit record is sent on sconn and the connection closed.
func RedialAndSplice(sconn *ServerConn, switchUser SwitchUserFunc, uid, gid int, spath string, op rproto.Op, attrs, args []string, deadline rdeadline.Deadline) error {
	if switchUser != nil {
		if err := switchUser(uid, gid); err != nil {
			Fatal(sconn, fmt.Sprintf("cannot switch user: %v", err), rproto.ExitCallFailure, deadline)
			return fmt.Errorf("rconn: redialandsplice: switch user: %w", err)
		}
	}

	cconn, err := Dial(spath, uid, op, attrs, args, deadline)
	if err != nil {
		Fatal(sconn, fmt.Sprintf("redial failed: %v", err), rproto.ExitSystemFailure, deadline)
		return fmt.Errorf("rconn: redialandsplice: dial: %w", err)
	}

	if err := Splice(sconn, cconn, deadline); err != nil {
		Fatal(sconn, fmt.Sprintf("splice failed: %v", err), rproto.ExitSystemFailure, deadline)
		return fmt.Errorf("rconn: redialandsplice: splice: %w", err)
	}

	return nil
}
