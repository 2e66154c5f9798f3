// Copyright 2015-2021 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package rconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "russ.conf")
	contents := "[russ]\nservices_dir = /tmp/svc\nlog_level = debug\naccept_timeout_ms = 2500\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServicesDir != "/tmp/svc" {
		t.Errorf("ServicesDir = %q", cfg.ServicesDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.AcceptTimeout != 2500*time.Millisecond {
		t.Errorf("AcceptTimeout = %v", cfg.AcceptTimeout)
	}
	if cfg.LogColor != false {
		t.Errorf("LogColor default should stay false when absent")
	}
}

func TestLoadMissingFileIsLoose(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.conf"))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}
