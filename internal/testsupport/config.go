package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cmd360/internal/config"
)

// ConfigOption adjusts a config built by NewConfig.
type ConfigOption func(t testing.TB, root string, cfg *config.Config)

// NewConfig returns defaults whose dump, temp and lock directories live
// under a fresh temp root, with a short device timeout.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DumpDir = filepath.Join(root, "dump")
	cfg.Paths.TempDir = filepath.Join(root, "tmp")
	cfg.Paths.LockDir = filepath.Join(root, "locks")
	cfg.Device.TimeoutSeconds = 5

	for _, opt := range opts {
		opt(t, root, &cfg)
	}
	return &cfg
}

// WithFTPServer targets srv's port. Credentials stay at the device defaults.
func WithFTPServer(srv *FTPServer) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Device.Port = srv.Port()
	}
}

// WithStubbedBinaries puts no-op executables named names (ffmpeg and
// ffprobe by default) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	if len(names) == 0 {
		names = []string{"ffmpeg", "ffprobe"}
	}
	return func(t testing.TB, root string, _ *config.Config) {
		bin := filepath.Join(root, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("create stub dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp root NewConfig created for cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DumpDir)
}
