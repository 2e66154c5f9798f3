// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconn

import (
	"fmt"

	"github.com/sandia-minimega/russ/pkg/rcodec"
	"github.com/sandia-minimega/russ/pkg/rdeadline"
	"github.com/sandia-minimega/russ/pkg/rfd"
	"github.com/sandia-minimega/russ/pkg/rproto"
)

// AwaitRequest implements spec.md section 4.4's await_request: read the
// 4-byte total body size, then exactly that many bytes, then decode.
func (s *ServerConn) AwaitRequest(deadline rdeadline.Deadline) (*rproto.Request, error) {
	head := make([]byte, 4)
	if _, err := rfd.ReadFullDeadline(s.sock, head, deadline); err != nil {
		return nil, fmt.Errorf("rconn: await request: read length: %w", err)
	}

	bodyLen, err := rcodec.NewReader(head).GetUint32()
	if err != nil {
		return nil, err
	}
	if bodyLen > rproto.MaxWireSize {
		return nil, fmt.Errorf("rconn: await request: body too large: %d", bodyLen)
	}

	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := rfd.ReadFullDeadline(s.sock, body, deadline); err != nil {
			return nil, fmt.Errorf("rconn: await request: read body: %w", err)
		}
	}

	return rproto.DecodeRequestBody(body)
}
