package rcodec

import "testing"

func TestUintRoundTrip(t *testing.T) {
	w := NewWriter(0)
	if err := w.PutUint16(0xbeef); err != nil {
		t.Fatal(err)
	}
	if err := w.PutUint32(0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if err := w.PutUint64(0x0102030405060708); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())

	if v, err := r.GetUint16(); err != nil || v != 0xbeef {
		t.Errorf("GetUint16 = %v, %v", v, err)
	}
	if v, err := r.GetUint32(); err != nil || v != 0xdeadbeef {
		t.Errorf("GetUint32 = %v, %v", v, err)
	}
	if v, err := r.GetUint64(); err != nil || v != 0x0102030405060708 {
		t.Errorf("GetUint64 = %v, %v", v, err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	w := NewWriter(0)
	if err := w.PutString("hello"); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	s, err := r.GetString()
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Errorf("got %q, want %q", s, "hello")
	}
}

func TestSArrayRoundTrip(t *testing.T) {
	vals := []string{"a", "bb", "ccc"}

	w := NewWriter(0)
	if err := w.PutSArrayN(vals); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	got, err := r.GetSArrayN()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vals) {
		t.Fatalf("got %d values, want %d", len(got), len(vals))
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], vals[i])
		}
	}
}

func TestSArray0Sentinel(t *testing.T) {
	w := NewWriter(0)
	if err := w.PutSArray0([]string{"x"}); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	got, err := r.GetSArray0()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "x" || got[1] != "" {
		t.Errorf("got %#v, want [x ]", got)
	}
}

func TestWriterOverflow(t *testing.T) {
	w := NewWriter(4)
	if err := w.PutUint32(1); err != nil {
		t.Fatal(err)
	}
	if err := w.PutUint32(2); err != ErrOverflow {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	if _, err := r.GetUint32(); err != ErrShortBuffer {
		t.Errorf("got %v, want ErrShortBuffer", err)
	}
}
