// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rrelay

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRelayPreservesBytes exercises spec.md section 8's "relay
// preserves bytes" property on a single directional stream: everything
// written into the read side arrives intact on the write side, and the
// relay returns once the source closes.
func TestRelayPreservesBytes(t *testing.T) {
	srcR, srcW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	dstR, dstW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	r := New(4096)
	r.AddStream("test", srcR, dstW, nil)

	payload := bytes.Repeat([]byte("abcdefgh"), 4096) // 32KiB, several buffer's worth

	var received []byte
	readDone := make(chan struct{})
	go func() {
		received, _ = io.ReadAll(dstR)
		close(readDone)
	}()

	go func() {
		srcW.Write(payload)
		srcW.Close()
	}()

	require.NoError(t, r.Serve(5*time.Second))

	<-readDone
	assert.True(t, bytes.Equal(received, payload), "relay must preserve bytes exactly")
}

// TestRelayBidirectional exercises two independent streams relaying in
// opposite directions simultaneously.
func TestRelayBidirectional(t *testing.T) {
	aR, aW, _ := os.Pipe()
	bR, bW, _ := os.Pipe()
	cR, cW, _ := os.Pipe()
	dR, dW, _ := os.Pipe()

	r := New(4096)
	r.AddStream("a->d", aR, dW, nil)
	r.AddStream("c->b", cR, bW, nil)

	var gotAD, gotCB []byte
	doneAD := make(chan struct{})
	doneCB := make(chan struct{})
	go func() { gotAD, _ = io.ReadAll(dR); close(doneAD) }()
	go func() { gotCB, _ = io.ReadAll(bR); close(doneCB) }()

	go func() { aW.Write([]byte("to-d")); aW.Close() }()
	go func() { cW.Write([]byte("to-b")); cW.Close() }()

	if err := r.Serve(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	<-doneAD
	<-doneCB

	if string(gotAD) != "to-d" {
		t.Errorf("a->d got %q", gotAD)
	}
	if string(gotCB) != "to-b" {
		t.Errorf("c->b got %q", gotCB)
	}
}

// TestRelayExitObservation checks that closing the exit fd unblocks a
// stream that is still waiting on a read with no data coming.
func TestRelayExitObservation(t *testing.T) {
	srcR, _, err := os.Pipe() // srcW intentionally never written or closed here
	if err != nil {
		t.Fatal(err)
	}
	_, dstW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	exitR, exitW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	r := New(4096)
	r.AddStream("stuck", srcR, dstW, nil)
	r.SetExitFD(exitR)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- r.Serve(5 * time.Second)
	}()

	exitW.Close() // hang up the exit fd

	select {
	case err := <-serveDone:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not return after exit fd hang-up")
	}

	if !r.Exited() {
		t.Error("expected Exited() true after exit fd hang-up")
	}
}
