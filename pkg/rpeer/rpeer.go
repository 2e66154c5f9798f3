// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rpeer extends rfd.PeerCred's kernel credential triple
// (uid/gid/pid) with additional /proc-derived process metadata for a
// dialing peer (component J): command name, process state, and start
// time. rconn.ServerConn only carries what SO_PEERCRED returns; callers
// that want more -- an /info handler logging who dialed in, or an audit
// trail -- ask this package to look the pid up.
package rpeer

import (
	"fmt"

	"github.com/c9s/goprocinfo/linux"
)

// Info is the subset of /proc/[pid]/stat useful for attributing a dial
// to a specific running process, beyond the uid/gid/pid SO_PEERCRED
// already provides.
type Info struct {
	Pid        int
	Comm       string
	State      string
	Starttime  uint64
}

// Lookup reads /proc/<pid>/stat for additional metadata about a peer
// process. Returns an error if the process has already exited or /proc
// is unavailable (e.g. non-Linux), which callers should treat as
// "enrichment unavailable", not a dial failure.
func Lookup(pid int) (*Info, error) {
	stat, err := linux.ReadProcessStat(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return nil, fmt.Errorf("rpeer: lookup pid %d: %w", pid, err)
	}
	return &Info{
		Pid:       stat.Pid,
		Comm:      stat.Comm,
		State:     stat.State,
		Starttime: stat.Starttime,
	}, nil
}
