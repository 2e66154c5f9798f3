// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rproto builds, encodes, and decodes the request and exit
// records that cross the russ wire (component D of the spec). It sits
// directly on top of rcodec and knows nothing about sockets, fds, or
// deadlines -- those belong to rfd and rconn.
package rproto

import (
	"errors"
	"fmt"

	"github.com/sandia-minimega/russ/pkg/rcodec"
)

// Protocol is the literal protocol string every request must carry.
// Decoding fails if this does not match exactly.
const Protocol = "0010"

// Operation numbers, per spec.md section 3.
type Op int32

const (
	OpNotSet    Op = 0
	OpExtension Op = 1 // reserved
	OpExecute   Op = 2
	OpHelp      Op = 3
	OpID        Op = 4
	OpInfo      Op = 5
	OpList      Op = 6
)

func (op Op) String() string {
	switch op {
	case OpNotSet:
		return "notset"
	case OpExtension:
		return "extension"
	case OpExecute:
		return "execute"
	case OpHelp:
		return "help"
	case OpID:
		return "id"
	case OpInfo:
		return "info"
	case OpList:
		return "list"
	}
	return fmt.Sprintf("op(%d)", int32(op))
}

const (
	MaxAttrs    = 1024
	MaxArgs     = 1024
	MaxWireSize = 262144
)

var (
	ErrBadProtocol = errors.New("rproto: bad protocol string")
	ErrTooManyAttrs = errors.New("rproto: too many attributes")
	ErrTooManyArgs  = errors.New("rproto: too many arguments")
	ErrTooLarge     = errors.New("rproto: request too large")
)

// Request is the fully decoded request record clients send to dial a
// service path.
type Request struct {
	Op    Op
	OpStr string
	SPath string

	// Attrs holds "name=value" strings, e.g. "--perf=1"; the trailing NUL
	// each carries on the wire is not kept in memory.
	Attrs []string

	// Args holds the operation's argument vector.
	Args []string
}

// NewRequest builds a request for the given operation and service path.
// OpStr is derived from op automatically.
func NewRequest(op Op, spath string, attrs, args []string) *Request {
	return &Request{
		Op:    op,
		OpStr: op.String(),
		SPath: spath,
		Attrs: attrs,
		Args:  args,
	}
}

// Encode serializes r into the wire format described in spec.md section
// 6: a u32 body length, then protocol, dummy reserved string, spath, op,
// attrs, args. The returned slice includes the length prefix.
func (r *Request) Encode() ([]byte, error) {
	if len(r.Attrs) > MaxAttrs {
		return nil, ErrTooManyAttrs
	}
	if len(r.Args) > MaxArgs {
		return nil, ErrTooManyArgs
	}

	// encode the body first so we know its length, then prepend it
	body := rcodec.NewWriter(MaxWireSize)

	if err := body.PutString(Protocol); err != nil {
		return nil, err
	}
	if err := body.PutBytes(nil); err != nil { // reserved dummy slot
		return nil, err
	}
	if err := body.PutString(r.SPath); err != nil {
		return nil, err
	}
	if err := body.PutString(r.OpStr); err != nil {
		return nil, err
	}
	if err := body.PutSArray0(r.Attrs); err != nil {
		return nil, err
	}
	if err := body.PutSArray0(r.Args); err != nil {
		return nil, err
	}

	if body.Len() > MaxWireSize-4 {
		return nil, ErrTooLarge
	}

	out := rcodec.NewWriter(0)
	if err := out.PutInt32(int32(body.Len())); err != nil {
		return nil, err
	}
	return append(out.Bytes(), body.Bytes()...), nil
}

// DecodeRequestBody decodes everything after the u32 body-length prefix
// (which the caller reads separately off the wire -- see rconn.AwaitRequest).
func DecodeRequestBody(body []byte) (*Request, error) {
	r := rcodec.NewReader(body)

	proto, err := r.GetString()
	if err != nil {
		return nil, err
	}
	if proto != Protocol {
		return nil, ErrBadProtocol
	}

	if _, err := r.GetBytes(); err != nil { // reserved dummy slot
		return nil, err
	}

	spath, err := r.GetString()
	if err != nil {
		return nil, err
	}

	opStr, err := r.GetString()
	if err != nil {
		return nil, err
	}

	attrs, err := r.GetSArray0()
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		attrs = attrs[:len(attrs)-1] // drop the decode-time NUL sentinel
	}
	if len(attrs) > MaxAttrs {
		return nil, ErrTooManyAttrs
	}

	args, err := r.GetSArray0()
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		args = args[:len(args)-1]
	}
	if len(args) > MaxArgs {
		return nil, ErrTooManyArgs
	}

	return &Request{
		Op:    opForString(opStr),
		OpStr: opStr,
		SPath: spath,
		Attrs: attrs,
		Args:  args,
	}, nil
}

func opForString(s string) Op {
	switch s {
	case "extension":
		return OpExtension
	case "execute":
		return OpExecute
	case "help":
		return OpHelp
	case "id":
		return OpID
	case "info":
		return OpInfo
	case "list":
		return OpList
	}
	return OpNotSet
}

// Attr looks up the value of a "name=value" attribute, returning ok=false
// if name was not present.
func (r *Request) Attr(name string) (string, bool) {
	prefix := name + "="
	for _, a := range r.Attrs {
		if len(a) >= len(prefix) && a[:len(prefix)] == prefix {
			return a[len(prefix):], true
		}
	}
	return "", false
}
