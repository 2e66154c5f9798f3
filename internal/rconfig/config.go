// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package rconfig loads the server/front-end defaults a russ process
// starts with (component I): services directory override, default
// timeouts, logging level and color, and the listening socket's file
// mode. This is a settings
// file read once at startup, unrelated to the spath ini-file parsing
// spec.md section 9 explicitly leaves out of scope -- that one parses
// per-dial wildcard attributes off the wire; this one is a plain
// on-disk defaults file, the same role minimega's "-filepath"-adjacent
// flags play before cmd/minimega's main.go ever dials anything.
package rconfig

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds the settings a russ server or front-end reads at
// startup. Zero value is usable; every field in the underlying file is
// optional.
type Config struct {
	ServicesDir   string
	LogLevel      string
	LogColor      bool
	AcceptTimeout time.Duration
	AwaitTimeout  time.Duration
	ListenMode    uint32
}

// Default returns a Config populated with russ's built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		ListenMode: 0660,
	}
}

// Load reads path (an ini file with an optional [russ] section) on top
// of Default(), returning the merged result. A missing file is not an
// error -- callers that want to require one check os.Stat first.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := ini.LoadSources(ini.LoadOptions{Loose: true}, path)
	if err != nil {
		return nil, fmt.Errorf("rconfig: load %s: %w", path, err)
	}

	sec := f.Section("russ")

	if v := sec.Key("services_dir").String(); v != "" {
		cfg.ServicesDir = v
	}
	if v := sec.Key("log_level").String(); v != "" {
		cfg.LogLevel = v
	}
	cfg.LogColor = sec.Key("log_color").MustBool(cfg.LogColor)

	if ms := sec.Key("accept_timeout_ms").MustInt(0); ms > 0 {
		cfg.AcceptTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := sec.Key("await_timeout_ms").MustInt(0); ms > 0 {
		cfg.AwaitTimeout = time.Duration(ms) * time.Millisecond
	}
	if mode := sec.Key("listen_mode").MustUint(0); mode > 0 {
		cfg.ListenMode = uint32(mode)
	}

	return cfg, nil
}
