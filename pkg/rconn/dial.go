// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"fmt"
	"net"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rfd"
	"github.com/sandia-minimega/russ/pkg/rpath"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// Dial resolves spath, connects to the resulting socket address,
// encodes and sends a request, and receives back the answered
// descriptors, per the "typical dial" data flow in spec.md section 2.
// uid is the caller's uid, used only for "++" home-directory expansion.
func Dial(spath string, uid int, op rproto.Op, attrs, args []string, deadline rdeadline.Deadline) (*ClientConn, error) {
	target, err := rpath.Resolve(spath, uid)
	if err != nil {
		return nil, fmt.Errorf("rconn: dial: resolve %s: %w", spath, err)
	}

	sock, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: target.SAddr, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("rconn: dial: connect %s: %w", target.SAddr, err)
	}

	req := rproto.NewRequest(op, target.SPath, attrs, args)
	body, err := req.Encode()
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("rconn: dial: encode request: %w", err)
	}
	if _, err := rfd.WriteFullDeadline(sock, body, deadline); err != nil {
		sock.Close()
		return nil, fmt.Errorf("rconn: dial: send request: %w", err)
	}

	files, err := recvDescriptorVector(sock, deadline)
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("rconn: dial: receive descriptors: %w", err)
	}

	cc := &ClientConn{sock: sock}
	if len(files) > 0 {
		n := len(files) - 1
		if n > MaxUserFDs {
			n = MaxUserFDs
		}
		copy(cc.UserFDs[:n], files[:n])
		cc.ExitFD = files[len(files)-1]
	}

	// The control socket's only remaining job was carrying the request
	// and the answer; the descriptors it handed over now stand on their
	// own, per spec.md section 3 ("a socket descriptor, closed after fds
	// are received").
	sock.Close()
	cc.sock = nil

	return cc, nil
}
