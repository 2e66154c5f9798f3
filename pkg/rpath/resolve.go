// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rpath implements component C of the spec: service path
// resolution (prefix expansion, symlink following) and the
// socket-boundary split that produces a dial Target.
package rpath

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// MaxSPathLen is the maximum length, in bytes, of a service path.
	MaxSPathLen = 65536

	// MaxSymlinkFollows bounds resolution to prevent symlink cycles.
	MaxSymlinkFollows = 32

	// DefaultServicesDir is used when RUSS_SERVICES_DIR is unset.
	DefaultServicesDir = "/var/run/russ/services"

	// ServicesDirEnv overrides DefaultServicesDir.
	ServicesDirEnv = "RUSS_SERVICES_DIR"
)

var (
	ErrTooLong          = errors.New("rpath: service path too long")
	ErrTooManySymlinks  = errors.New("rpath: too many symlink expansions")
	ErrNoSocketOnPath   = errors.New("rpath: no socket found along service path")
	ErrNotAbsolute      = errors.New("rpath: service path must be absolute")
)

// ServicesDir returns the configured services directory root, honoring
// RUSS_SERVICES_DIR, falling back to DefaultServicesDir.
func ServicesDir() string {
	if v := os.Getenv(ServicesDirEnv); v != "" {
		return v
	}
	return DefaultServicesDir
}

// HomeDirFunc resolves the home directory for a uid. The default,
// LookupHomeDir, shells out to os/user; tests substitute a stub.
type HomeDirFunc func(uid int) (string, error)

// LookupHomeDir is the default HomeDirFunc, backed by os/user.
func LookupHomeDir(uid int) (string, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}

// StatFunc reports the type of the filesystem entry at path. The
// default, osLstat, wraps os.Lstat; tests substitute a fake filesystem.
type StatFunc func(path string) (os.FileMode, error)

func osLstat(path string) (os.FileMode, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	return fi.Mode(), nil
}

// ReadlinkFunc reads the target of a symlink. Default wraps os.Readlink.
type ReadlinkFunc func(path string) (string, error)

// Resolver expands '+'/'++' prefixes and follows symlinks in a service
// path. The zero value uses the real filesystem and os/user; tests
// construct a Resolver with stub functions.
type Resolver struct {
	ServicesDir string
	HomeDir     HomeDirFunc
	Stat        StatFunc
	Readlink    ReadlinkFunc
}

// NewResolver returns a Resolver wired to the real OS.
func NewResolver() *Resolver {
	return &Resolver{
		ServicesDir: ServicesDir(),
		HomeDir:     LookupHomeDir,
		Stat:        osLstat,
		Readlink:    os.Readlink,
	}
}

func (r *Resolver) init() {
	if r.ServicesDir == "" {
		r.ServicesDir = ServicesDir()
	}
	if r.HomeDir == nil {
		r.HomeDir = LookupHomeDir
	}
	if r.Stat == nil {
		r.Stat = osLstat
	}
	if r.Readlink == nil {
		r.Readlink = os.Readlink
	}
}

// Resolve expands spath into its absolute, symlink-free form, per
// spec.md section 4.3. uid is used to resolve "++" to that uid's home
// directory; a "++user/..." form naming another user is not recognized.
func (r *Resolver) Resolve(spath string, uid int) (string, error) {
	r.init()

	if len(spath) > MaxSPathLen {
		return "", ErrTooLong
	}

	cur := spath
	symlinkFollows := 0

	for {
		if cur == "+" || cur == "++" {
			cur += "/"
			continue
		}

		if expanded, ok, err := r.expandPrefix(cur, uid); err != nil {
			return "", err
		} else if ok {
			cur = expanded
			continue
		}

		next, changed, err := r.expandOneSymlink(cur)
		if err != nil {
			return "", err
		}
		if !changed {
			return cur, nil
		}

		symlinkFollows++
		if symlinkFollows > MaxSymlinkFollows {
			return "", ErrTooManySymlinks
		}
		cur = next
	}
}

// expandPrefix rewrites a leading "+/" / "/+/" (services dir) or
// "++/" / "/++/" (home dir) prefix. ok is false if cur has neither.
func (r *Resolver) expandPrefix(cur string, uid int) (string, bool, error) {
	switch {
	case strings.HasPrefix(cur, "/+/"):
		return r.ServicesDir + cur[len("/+"):], true, nil
	case strings.HasPrefix(cur, "+/"):
		return r.ServicesDir + cur[len("+"):], true, nil
	case strings.HasPrefix(cur, "/++/"):
		home, err := r.HomeDir(uid)
		if err != nil {
			return "", false, err
		}
		return filepath.Join(home, ".russ") + cur[len("/++"):], true, nil
	case strings.HasPrefix(cur, "++/"):
		home, err := r.HomeDir(uid)
		if err != nil {
			return "", false, err
		}
		return filepath.Join(home, ".russ") + cur[len("++"):], true, nil
	}
	return "", false, nil
}

// expandOneSymlink walks cur component by component looking for the
// first symlink boundary, substitutes it, and returns the new spath. If
// no symlink is found (only directories, or a terminal non-directory),
// changed is false.
func (r *Resolver) expandOneSymlink(cur string) (next string, changed bool, err error) {
	if !strings.HasPrefix(cur, "/") {
		return cur, false, nil
	}

	parts := strings.Split(strings.TrimPrefix(cur, "/"), "/")
	prefix := ""

	for i, p := range parts {
		if p == "" {
			continue
		}
		prefix += "/" + p

		mode, statErr := r.Stat(prefix)
		if statErr != nil {
			// component doesn't exist (yet) -- resolution doesn't
			// require existence beyond the deepest real component.
			return cur, false, nil
		}

		if mode&os.ModeSymlink != 0 {
			target, err := r.Readlink(prefix)
			if err != nil {
				return "", false, err
			}

			remainder := "/" + strings.Join(parts[i+1:], "/")
			if len(parts) == i+1 {
				remainder = ""
			}

			var newPrefix string
			switch {
			case strings.HasPrefix(target, "/"):
				newPrefix = target
			case strings.HasPrefix(target, "+/"):
				newPrefix = r.ServicesDir + target[len("+"):]
			default:
				parent := filepath.Dir(prefix)
				newPrefix = filepath.Join(parent, target)
			}

			return newPrefix + remainder, true, nil
		}

		if mode.IsDir() {
			continue
		}

		// regular file, socket, or other leaf -- nothing further to
		// expand along this path.
		return cur, false, nil
	}

	return cur, false, nil
}

// Target is the (saddr, remaining spath) pair produced by Split.
type Target struct {
	SAddr  string // the socket's filesystem path
	SPath  string // remainder, always starting with "/"
}

// Split walks an already-resolved spath left to right, stopping at the
// first component that names a Unix socket. Anything else along the
// way must be a directory, or Split fails.
func (r *Resolver) Split(resolved string) (*Target, error) {
	r.init()

	if !strings.HasPrefix(resolved, "/") {
		return nil, ErrNotAbsolute
	}

	parts := strings.Split(strings.TrimPrefix(resolved, "/"), "/")
	prefix := ""

	for i, p := range parts {
		if p == "" {
			continue
		}
		prefix += "/" + p

		mode, err := r.Stat(prefix)
		if err != nil {
			return nil, fmt.Errorf("rpath: %s: %w", prefix, err)
		}

		if mode&os.ModeSocket != 0 {
			remainder := "/" + strings.Join(parts[i+1:], "/")
			if len(parts) == i+1 {
				remainder = "/"
			}
			return &Target{SAddr: prefix, SPath: remainder}, nil
		}

		if mode.IsDir() {
			continue
		}

		return nil, fmt.Errorf("rpath: %s: %w", prefix, ErrNoSocketOnPath)
	}

	return nil, ErrNoSocketOnPath
}

// Resolve is a convenience wrapper that resolves and splits spath in
// one call, using the default OS-backed Resolver.
func Resolve(spath string, uid int) (*Target, error) {
	r := NewResolver()
	resolved, err := r.Resolve(spath, uid)
	if err != nil {
		return nil, err
	}
	return r.Split(resolved)
}
