// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"errors"
	"fmt"
	"io"

	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rfd"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// WaitStatus reports how a client's wait for the exit record concluded,
// per spec.md section 4.4.
type WaitStatus int

const (
	WaitOK WaitStatus = iota
	WaitBadFD
	WaitTimeout
	WaitHup
)

func (s WaitStatus) String() string {
	switch s {
	case WaitOK:
		return "wait-ok"
	case WaitBadFD:
		return "wait-badfd"
	case WaitTimeout:
		return "wait-timeout"
	case WaitHup:
		return "wait-hup"
	default:
		return "wait-unknown"
	}
}

// SendExit writes exit onto sconn's exit fd and closes it, fulfilling
// the server's half of the exit channel contract: "exactly one side of
// the exit channel is the writer (server)... sending exit closes the
// writer end" (spec.md section 3 invariants).
func SendExit(sconn *ServerConn, exit *rproto.Exit, deadline rdeadline.Deadline) error {
	if sconn.ExitFD == nil {
		return fmt.Errorf("rconn: send exit: no exit fd")
	}
	buf, err := exit.Encode()
	if err != nil {
		return fmt.Errorf("rconn: send exit: encode: %w", err)
	}
	_, werr := rfd.WriteFullDeadline(sconn.ExitFD, buf, deadline)
	sconn.ExitFD.Close()
	sconn.ExitFD = nil
	return werr
}

// Fatal writes message to the stderr user fd (if present), sends a fatal
// exit record with the given status, and closes the connection. This is
// the Go analogue of sconn_fatal in spec.md section 7: handlers
// propagate errors this way rather than raising.
func Fatal(sconn *ServerConn, message string, status int32, deadline rdeadline.Deadline) error {
	if sconn.UserFDs[2] != nil {
		rfd.WriteFullDeadline(sconn.UserFDs[2], []byte(message), deadline)
	}
	exit := &rproto.Exit{Status: status, Message: message}
	sendErr := SendExit(sconn, exit, deadline)
	closeErr := sconn.Close()
	if sendErr != nil {
		return sendErr
	}
	return closeErr
}

// WaitExit blocks on cconn's exit fd until the server's exit record
// arrives, the fd is closed without a payload, or deadline expires.
func WaitExit(cconn *ClientConn, deadline rdeadline.Deadline) (*rproto.Exit, WaitStatus, error) {
	if cconn.ExitFD == nil {
		return nil, WaitBadFD, nil
	}

	status := make([]byte, 4)
	n, err := rfd.ReadFullDeadline(cconn.ExitFD, status, deadline)
	if err != nil {
		if errors.Is(err, rfd.ErrClosed) && n == 0 {
			return nil, WaitHup, nil
		}
		if errors.Is(err, rfd.ErrShortIO) {
			return nil, WaitTimeout, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, WaitHup, nil
		}
		return nil, WaitTimeout, err
	}

	msgLen := make([]byte, 4)
	if _, err := rfd.ReadFullDeadline(cconn.ExitFD, msgLen, deadline); err != nil {
		return nil, WaitTimeout, err
	}
	msgN := int32(uint32(msgLen[0]) | uint32(msgLen[1])<<8 | uint32(msgLen[2])<<16 | uint32(msgLen[3])<<24)
	if msgN < 0 {
		return nil, WaitTimeout, fmt.Errorf("rconn: wait exit: negative message length")
	}

	msg := make([]byte, msgN)
	if msgN > 0 {
		if _, err := rfd.ReadFullDeadline(cconn.ExitFD, msg, deadline); err != nil {
			return nil, WaitTimeout, err
		}
	}

	full := append(append(status, msgLen...), msg...)
	exit, err := rproto.DecodeExit(full)
	if err != nil {
		return nil, WaitTimeout, err
	}
	return exit, WaitOK, nil
}
