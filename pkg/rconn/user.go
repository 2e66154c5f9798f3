// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import "syscall"

// SetEUIDGID is the default SwitchUserFunc, switching the process's
// effective uid/gid to match a dialing peer's kernel-reported
// credentials (spec.md section 4.5, autoswitchuser). Group is switched
// first so the process never holds an elevated uid with a stale gid.
func SetEUIDGID(uid, gid int) error {
	if err := syscall.Setregid(-1, gid); err != nil {
		return err
	}
	if err := syscall.Setreuid(-1, uid); err != nil {
		return err
	}
	return nil
}
