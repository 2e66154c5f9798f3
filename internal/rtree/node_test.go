// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rtree

import "testing"

func noopHandler(sess interface{}) error { return nil }

func TestWildcardPrecedence(t *testing.T) {
	root := New()
	a, err := root.Add("a", noopHandler)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Add("b", noopHandler); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Add("*", noopHandler); err != nil {
		t.Fatal(err)
	}

	res, err := Find(root, "/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Name != "b" {
		t.Errorf("dialing /a/b matched %q, want b", res.Node.Name)
	}

	res, err = Find(root, "/a/c")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Name != "*" {
		t.Errorf("dialing /a/c matched %q, want *", res.Node.Name)
	}

	res, err = Find(root, "/a")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node != a {
		t.Errorf("dialing /a matched %v, want the 'a' node", res.Node.Name)
	}
	if res.Prefix != "/a" {
		t.Errorf("prefix = %q, want /a", res.Prefix)
	}
}

func TestWildcardCapturesRemainder(t *testing.T) {
	root := New()
	a, err := root.Add("a", nil)
	if err != nil {
		t.Fatal(err)
	}
	wc, err := a.Add("*", noopHandler)
	if err != nil {
		t.Fatal(err)
	}
	wc.SetVirtual(true)

	res, err := Find(root, "/a/foo/bar")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node != wc {
		t.Fatalf("expected wildcard node match")
	}
	if res.Prefix != "/a/foo" {
		t.Errorf("prefix = %q, want /a/foo", res.Prefix)
	}
}

func TestDuplicateNameFails(t *testing.T) {
	root := New()
	if _, err := root.Add("a", noopHandler); err != nil {
		t.Fatal(err)
	}
	if _, err := root.Add("a", noopHandler); err == nil {
		t.Error("expected duplicate name to fail")
	}
}

func TestChildrenNameOrder(t *testing.T) {
	root := New()
	root.Add("c", noopHandler)
	root.Add("a", noopHandler)
	root.Add("b", noopHandler)

	names := []string{}
	for _, c := range root.Children() {
		names = append(names, c.Name)
	}
	want := []string{"a", "b", "c"}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("children[%d] = %q, want %q", i, names[i], n)
		}
	}
}
