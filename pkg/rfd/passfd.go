// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rfd

import (
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// ErrNotUnixConn is returned when fd passing or credential lookup is
// attempted on a net.Conn that isn't backed by a Unix domain socket.
var ErrNotUnixConn = errors.New("rfd: not a unix socket connection")

// SendFDs transmits the given open files as ancillary data on conn: one
// sendmsg call with a single-byte dummy payload whose one SCM_RIGHTS
// control message carries every descriptor. Descriptors are not sent one
// per message. When files is empty, SendFDs is a no-op; the caller is
// responsible for emitting the presence-byte vector separately (see
// rconn's sendDescriptorVector).
func SendFDs(conn *net.UnixConn, files []*os.File) error {
	if len(files) == 0 {
		return nil
	}

	fds := make([]int, len(files))
	for i, f := range files {
		fds[i] = int(f.Fd())
	}

	oob := unix.UnixRights(fds...)

	_, _, err := conn.WriteMsgUnix([]byte{0}, oob, nil)
	return err
}

// RecvFDs receives n descriptors sent by a single SendFDs call. It does
// one ReadMsgUnix with a one-byte data buffer and room for one control
// message of n descriptors, so descriptors sent in separate messages are
// not gathered; any count other than n is returned as an error.
func RecvFDs(conn *net.UnixConn, n int) ([]*os.File, error) {
	if n == 0 {
		return nil, nil
	}

	// unix.CmsgSpace accounts for header + alignment per fd; allocate a
	// single message's worth since SendFDs packs them into one sendmsg.
	oob := make([]byte, unix.CmsgSpace(n*4))
	data := make([]byte, 1)

	_, oobn, _, _, err := conn.ReadMsgUnix(data, oob)
	if err != nil {
		return nil, err
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, err
	}

	var fds []int
	for _, scm := range scms {
		parsed, err := unix.ParseUnixRights(&scm)
		if err != nil {
			return nil, err
		}
		fds = append(fds, parsed...)
	}

	if len(fds) != n {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return nil, fmt.Errorf("rfd: expected %d descriptors, got %d", n, len(fds))
	}

	files := make([]*os.File, len(fds))
	for i, fd := range fds {
		files[i] = os.NewFile(uintptr(fd), fmt.Sprintf("russ-fd-%d", i))
	}
	return files, nil
}

// PeerCred holds the kernel-supplied credentials of a Unix socket peer,
// obtained via SO_PEERCRED (spec.md section 3, "server view" connection
// object).
type PeerCred struct {
	UID uint32
	GID uint32
	PID int32
}

// GetPeerCred retrieves the credentials of the process on the other end
// of conn, which must be a Unix domain socket connection.
func GetPeerCred(conn *net.UnixConn) (*PeerCred, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}

	var ucred *unix.Ucred
	var sockErr error

	err = raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return nil, err
	}
	if sockErr != nil {
		return nil, sockErr
	}

	return &PeerCred{UID: ucred.Uid, GID: ucred.Gid, PID: ucred.Pid}, nil
}
