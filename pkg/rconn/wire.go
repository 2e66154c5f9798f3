// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"fmt"
	"net"
	"os"

	"github.com/sandia-minimega/russ/pkg/rcodec"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rfd"
)

// sendDescriptorVector implements the "answer" wire form of spec.md
// section 6: a little-endian u32 count, that many presence bytes (1 for
// a present slot, 0 for absent), then the present descriptors as
// ancillary data, in presence order, over a single sendmsg. By
// convention the last slot is the exit fd and the rest are user fds.
func sendDescriptorVector(conn *net.UnixConn, deadline rdeadline.Deadline, files []*os.File) error {
	w := rcodec.NewWriter(4)
	if err := w.PutUint32(uint32(len(files))); err != nil {
		return err
	}
	if _, err := rfd.WriteFullDeadline(conn, w.Bytes(), deadline); err != nil {
		return err
	}

	presence := make([]byte, len(files))
	var present []*os.File
	for i, f := range files {
		if f != nil {
			presence[i] = 1
			present = append(present, f)
		}
	}
	if _, err := rfd.WriteFullDeadline(conn, presence, deadline); err != nil {
		return err
	}

	return rfd.SendFDs(conn, present)
}

// recvDescriptorVector is the client-side mirror of sendDescriptorVector.
func recvDescriptorVector(conn *net.UnixConn, deadline rdeadline.Deadline) ([]*os.File, error) {
	head := make([]byte, 4)
	if _, err := rfd.ReadFullDeadline(conn, head, deadline); err != nil {
		return nil, err
	}
	r := rcodec.NewReader(head)
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	if n > MaxUserFDs+1 {
		return nil, fmt.Errorf("rconn: descriptor vector too large: %d", n)
	}

	presence := make([]byte, n)
	if n > 0 {
		if _, err := rfd.ReadFullDeadline(conn, presence, deadline); err != nil {
			return nil, err
		}
	}

	numPresentWire := 0
	for _, b := range presence {
		if b != 0 {
			numPresentWire++
		}
	}

	var present []*os.File
	if numPresentWire > 0 {
		present, err = rfd.RecvFDs(conn, numPresentWire)
		if err != nil {
			return nil, err
		}
	}

	files := make([]*os.File, n)
	pi := 0
	for i, b := range presence {
		if b != 0 {
			files[i] = present[pi]
			pi++
		}
	}
	return files, nil
}
