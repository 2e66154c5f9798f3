// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rproto

import "github.com/sandia-minimega/russ/pkg/rcodec"

// Conventional exit codes, per spec.md section 3.
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitFDClosed      = 125
	ExitCallFailure   = 126
	ExitSystemFailure = 127
)

// Exit is the record written to a connection's exit fd: a signed 32-bit
// status followed by a message string.
type Exit struct {
	Status  int32
	Message string
}

// Encode serializes e as described in spec.md section 6: u32 status,
// length-prefixed message.
func (e *Exit) Encode() ([]byte, error) {
	w := rcodec.NewWriter(0)
	if err := w.PutInt32(e.Status); err != nil {
		return nil, err
	}
	if err := w.PutString(e.Message); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeExit decodes a full exit record from buf.
func DecodeExit(buf []byte) (*Exit, error) {
	r := rcodec.NewReader(buf)

	status, err := r.GetInt32()
	if err != nil {
		return nil, err
	}

	msg, err := r.GetString()
	if err != nil {
		return nil, err
	}

	return &Exit{Status: status, Message: msg}, nil
}
