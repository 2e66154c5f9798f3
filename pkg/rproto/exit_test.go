package rproto

import "testing"

func TestExitRoundTrip(t *testing.T) {
	e := &Exit{Status: ExitFailure, Message: "boom"}

	buf, err := e.Encode()
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecodeExit(buf)
	if err != nil {
		t.Fatal(err)
	}

	if got.Status != e.Status || got.Message != e.Message {
		t.Errorf("got %+v, want %+v", got, e)
	}
}

func TestExitSuccessZero(t *testing.T) {
	e := &Exit{Status: ExitSuccess}
	buf, err := e.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeExit(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != 0 {
		t.Errorf("got %d, want 0", got.Status)
	}
}
