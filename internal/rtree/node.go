// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rtree implements component F's service dispatch trie: named
// nodes with wildcard and virtual children, kept in name order, and the
// lookup walk described in spec.md section 4.5. The shape (a node
// holding its own children and a handler) mirrors the teacher's
// patternTrie, simplified from minicli's multi-kind pattern items down
// to the plain name/wildcard matching RUSS service paths need.
package rtree

import (
	"fmt"
	"sort"
	"strings"
)

// HandlerFunc is the signature every service node's handler satisfies.
// The session argument is left as interface{} here to avoid an import
// cycle with rserver, which defines the concrete Session type and
// narrows it at the call site.
type HandlerFunc func(sess interface{}) error

// Node is a named trie node, per spec.md section 3 ("Service node").
type Node struct {
	Name       string
	Handler    HandlerFunc
	AutoAnswer bool
	Virtual    bool
	Wildcard   bool

	children []*Node
}

// WildcardName is the component name reserved for a node's wildcard
// child; at most one may exist per parent.
const WildcardName = "*"

// New creates a root node. Root nodes carry no name and are never
// matched directly; they are the starting point for Add and Find.
func New() *Node {
	return &Node{AutoAnswer: true}
}

// Add inserts a new named child under parent with the given handler and
// default flags (autoanswer=true, virtual=false, wildcard=name=="*"),
// keeping children in name order. Duplicate names fail, matching
// svcnode_add's documented behavior.
func (parent *Node) Add(name string, handler HandlerFunc) (*Node, error) {
	for _, c := range parent.children {
		if c.Name == name {
			return nil, fmt.Errorf("rtree: duplicate child %q", name)
		}
	}

	child := &Node{
		Name:       name,
		Handler:    handler,
		AutoAnswer: true,
		Wildcard:   name == WildcardName,
	}

	i := sort.Search(len(parent.children), func(i int) bool {
		return parent.children[i].Name >= name
	})
	parent.children = append(parent.children, nil)
	copy(parent.children[i+1:], parent.children[i:])
	parent.children[i] = child

	return child, nil
}

// Children returns the node's children in name order.
func (n *Node) Children() []*Node {
	return n.children
}

// SetVirtual marks n as virtual, preventing the dispatcher's default
// list/help fallback and leaving the remaining path available to the
// handler (spec.md section 3). Returns n for chaining after Add.
func (n *Node) SetVirtual(v bool) *Node {
	n.Virtual = v
	return n
}

// SetAutoAnswer overrides the default autoanswer flag. Returns n for
// chaining after Add.
func (n *Node) SetAutoAnswer(v bool) *Node {
	n.AutoAnswer = v
	return n
}

// Result is the outcome of a Find walk: the node that matched, and the
// portion of the path that was consumed to reach it.
type Result struct {
	Node   *Node
	Prefix string // the matched portion of the path, always starting with "/"
}

// Find walks remainingPath one component at a time from root, per
// spec.md section 4.5's lookup algorithm: prefer an exact name match
// among a node's children; failing that, fall back to a wildcard child;
// stop early on a virtual match, or when the path is exhausted.
func Find(root *Node, remainingPath string) (*Result, error) {
	if !strings.HasPrefix(remainingPath, "/") {
		return nil, fmt.Errorf("rtree: path must be absolute: %q", remainingPath)
	}

	cur := root
	matched := ""
	rest := remainingPath

	for {
		if cur.Virtual {
			break
		}

		rest = strings.TrimPrefix(rest, "/")
		if rest == "" {
			break
		}

		var name, tail string
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name, tail = rest[:idx], rest[idx:]
		} else {
			name, tail = rest, ""
		}

		next := cur.findExact(name)
		if next == nil {
			next = cur.findWildcard()
		}
		if next == nil {
			break
		}

		cur = next
		matched += "/" + name
		rest = tail

		if cur.Virtual {
			break
		}
	}

	if matched == "" {
		matched = "/"
	}

	return &Result{Node: cur, Prefix: matched}, nil
}

func (n *Node) findExact(name string) *Node {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].Name >= name
	})
	if i < len(n.children) && n.children[i].Name == name && !n.children[i].Wildcard {
		return n.children[i]
	}
	return nil
}

func (n *Node) findWildcard() *Node {
	for _, c := range n.children {
		if c.Wildcard {
			return c
		}
	}
	return nil
}
