package rproto

import (
	"reflect"
	"testing"

	"github.com/sandia-minimega/russ/pkg/rcodec"
)

func TestRequestRoundTrip(t *testing.T) {
	req := NewRequest(OpExecute, "/echo", []string{"--perf=1"}, []string{"a", "b"})

	buf, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// first four bytes must equal the length of the remainder (length exactness)
	r := rcodec.NewReader(buf)
	n, err := r.GetInt32()
	if err != nil {
		t.Fatal(err)
	}
	if int(n) != len(buf)-4 {
		t.Errorf("body length = %d, want %d", n, len(buf)-4)
	}

	got, err := DecodeRequestBody(buf[4:])
	if err != nil {
		t.Fatal(err)
	}

	if got.SPath != req.SPath || got.OpStr != req.OpStr || got.Op != req.Op {
		t.Errorf("got %+v, want %+v", got, req)
	}
	if !reflect.DeepEqual(got.Attrs, req.Attrs) {
		t.Errorf("attrs: got %v, want %v", got.Attrs, req.Attrs)
	}
	if !reflect.DeepEqual(got.Args, req.Args) {
		t.Errorf("args: got %v, want %v", got.Args, req.Args)
	}
}

func TestRequestBadProtocol(t *testing.T) {
	req := NewRequest(OpList, "/", nil, nil)
	buf, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// corrupt the protocol string's first content byte
	buf[8] = '9'

	if _, err := DecodeRequestBody(buf[4:]); err != ErrBadProtocol {
		t.Errorf("got %v, want ErrBadProtocol", err)
	}
}

func TestRequestTooManyAttrs(t *testing.T) {
	attrs := make([]string, MaxAttrs+1)
	for i := range attrs {
		attrs[i] = "a=1"
	}
	req := NewRequest(OpExecute, "/x", attrs, nil)
	if _, err := req.Encode(); err != ErrTooManyAttrs {
		t.Errorf("got %v, want ErrTooManyAttrs", err)
	}
}

func TestAttrLookup(t *testing.T) {
	req := NewRequest(OpExecute, "/x", []string{"--perf=1", "note=hi=there"}, nil)

	if v, ok := req.Attr("--perf"); !ok || v != "1" {
		t.Errorf("Attr(--perf) = %q, %v", v, ok)
	}
	if v, ok := req.Attr("note"); !ok || v != "hi=there" {
		t.Errorf("Attr(note) = %q, %v", v, ok)
	}
	if _, ok := req.Attr("missing"); ok {
		t.Errorf("Attr(missing) should not be found")
	}
}
