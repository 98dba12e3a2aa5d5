package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigWhenNothingSet(t *testing.T) {
	clearTriadEnv(t)
	r, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if r.engineName != "threaded" {
		t.Fatalf("engineName = %q, want threaded", r.engineName)
	}
}

func TestEnvOverridesDefault(t *testing.T) {
	clearTriadEnv(t)
	t.Setenv("TRIAD_ENGINE", "hybrid")
	t.Setenv("TRIAD_PORT", "9090")

	r, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if r.engineName != "hybrid" {
		t.Fatalf("engineName = %q, want hybrid", r.engineName)
	}
	if r.cfg.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", r.cfg.Addr)
	}
}

func TestFlagOverridesEnvAndFile(t *testing.T) {
	clearTriadEnv(t)
	t.Setenv("TRIAD_ENGINE", "hybrid")

	dir := t.TempDir()
	path := filepath.Join(dir, "triad.toml")
	if err := os.WriteFile(path, []byte("engine = \"eventloop\"\nworkerCap = 7\n"), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}

	r, err := loadConfig([]string{"-config", path, "-engine", "threaded"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if r.engineName != "threaded" {
		t.Fatalf("engineName = %q, want threaded (flag should win over file and env)", r.engineName)
	}
	if r.cfg.WorkerCap != 7 {
		t.Fatalf("workerCap = %d, want 7 (from file, since no flag set it)", r.cfg.WorkerCap)
	}
}

func clearTriadEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TRIAD_ENGINE", "TRIAD_PORT", "TRIAD_WORKER_CAP", "TRIAD_BACKLOG",
		"TRIAD_MAX_CONNECTIONS", "TRIAD_MONITORING_ENABLED",
		"TRIAD_HYBRID_DEADLINE_MS", "TRIAD_OFFLOAD_POOL_SIZE",
	} {
		t.Setenv(k, "")
	}
}
