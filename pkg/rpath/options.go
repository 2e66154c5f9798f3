// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rpath

import "strings"

// Option is a single "k=v" query-style option attached to a service
// path component, per spec.md section 4.3 / 6 ("name?k1=v1?k2=v2").
type Option struct {
	Key   string
	Value string
}

// SplitComponentOptions splits a path component of the form
// "name?k1=v1?k2=v2" into its bare name and an ordered option vector.
// Options are consumed by whichever handler chooses to honor them (e.g.
// an ssh-splicing service reading "controlpersist" or "controltag");
// the dispatcher passes the vector through unchanged.
func SplitComponentOptions(component string) (name string, opts []Option) {
	parts := strings.Split(component, "?")
	name = parts[0]

	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		if k, v, ok := strings.Cut(p, "="); ok {
			opts = append(opts, Option{Key: k, Value: v})
		} else {
			opts = append(opts, Option{Key: p})
		}
	}

	return name, opts
}

// GetOption returns the value of the first option with the given key.
func GetOption(opts []Option, key string) (string, bool) {
	for _, o := range opts {
		if o.Key == key {
			return o.Value, true
		}
	}
	return "", false
}

// HasOptionPrefix reports whether any option's key starts with prefix,
// returning the first match's full key. Useful for handlers that accept
// a family of related options (e.g. "env.PATH", "env.HOME").
func HasOptionPrefix(opts []Option, prefix string) (key string, ok bool) {
	for _, o := range opts {
		if strings.HasPrefix(o.Key, prefix) {
			return o.Key, true
		}
	}
	return "", false
}

// SuffixAfterPrefix returns the part of key after prefix, used together
// with HasOptionPrefix to pull out a suffix like "PATH" from "env.PATH".
func SuffixAfterPrefix(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}
