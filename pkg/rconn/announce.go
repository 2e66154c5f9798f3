// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ListenBacklog is the minimum backlog spec.md section 4.8 requires
// ("listen with a backlog of at least 1024"). net.ListenUnix has no way
// to request a backlog beyond the kernel's SOMAXCONN-clamped default, so
// Announce builds the socket with golang.org/x/sys/unix directly, the same
// layer the rest of the core's fd-passing already lives at (see rfd).
const ListenBacklog = 1024

// Announce binds a Unix stream socket at addr, sets its mode and
// ownership, and starts listening with ListenBacklog. If bind fails
// because a stale socket file is left over from a crashed server
// (address in use, but nothing answers a connect), the stale file is
// unlinked and the bind retried; any other failure is fatal.
func Announce(addr string, mode os.FileMode, uid, gid int) (*net.UnixListener, error) {
	l, err := bindAndListen(addr)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(addr, mode); err != nil {
		l.Close()
		return nil, fmt.Errorf("rconn: chmod %s: %w", addr, err)
	}
	if uid >= 0 || gid >= 0 {
		if err := os.Chown(addr, uid, gid); err != nil {
			l.Close()
			return nil, fmt.Errorf("rconn: chown %s: %w", addr, err)
		}
	}

	return l, nil
}

func bindAndListen(addr string) (*net.UnixListener, error) {
	l, err := rawListen(addr)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, fmt.Errorf("rconn: listen %s: %w", addr, err)
	}

	// A stale socket file from a crashed server also produces
	// EADDRINUSE. Distinguish "in use" from "stale" by attempting a
	// connect: a live listener accepts or refuses cleanly; a stale file
	// refuses with ECONNREFUSED.
	if probe, dialErr := net.DialTimeout("unix", addr, 0); dialErr == nil {
		probe.Close()
		return nil, fmt.Errorf("rconn: %s: address in use by a live listener", addr)
	} else if !errors.Is(dialErr, syscall.ECONNREFUSED) {
		return nil, fmt.Errorf("rconn: listen %s: %w", addr, err)
	}

	if rmErr := os.Remove(addr); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, fmt.Errorf("rconn: removing stale socket %s: %w", addr, rmErr)
	}

	l, err = rawListen(addr)
	if err != nil {
		return nil, fmt.Errorf("rconn: listen %s after unlinking stale socket: %w", addr, err)
	}
	return l, nil
}

// rawListen creates, binds, and listens on a Unix stream socket via raw
// syscalls so ListenBacklog actually takes effect, then wraps the
// resulting fd as a *net.UnixListener.
func rawListen(addr string) (*net.UnixListener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}

	sa := &unix.SockaddrUnix{Name: addr}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, ListenBacklog); err != nil {
		unix.Close(fd)
		return nil, err
	}

	f := os.NewFile(uintptr(fd), addr)
	defer f.Close()

	fl, err := net.FileListener(f)
	if err != nil {
		return nil, err
	}
	ul, ok := fl.(*net.UnixListener)
	if !ok {
		fl.Close()
		return nil, fmt.Errorf("rconn: unexpected listener type for %s", addr)
	}
	return ul, nil
}
