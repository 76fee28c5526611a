package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cmd360/internal/device"
	"cmd360/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work", "dump")
	result := CheckCreatableDirectory("Dump directory", path)
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "created on first use") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckCreatableDirectory_UnderFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckCreatableDirectory("Dump directory", filepath.Join(f, "dump"))
	if result.Passed {
		t.Fatal("expected failure when a file blocks the path")
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	cfg.Transcoder.FFprobeBinary = "definitely-not-ffprobe"

	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("expected stubbed ffmpeg to be found: %#v", statuses[0])
	}
	if statuses[1].Available || !statuses[1].Optional {
		t.Fatalf("expected ffprobe missing but optional, got %#v", statuses[1])
	}

	cfg.Transcoder.VerifyOutput = true
	if statuses := CheckSystemDeps(context.Background(), cfg); statuses[1].Optional {
		t.Fatal("expected ffprobe to be required when verification is enabled")
	}
}

func TestRunAllWithDevice(t *testing.T) {
	srv := testsupport.NewFTPServer(t, testsupport.WithRemoteFile("A.WAV", []byte("a")))
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.TempDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg, Options{Device: device.Config{
		Host:     srv.Host(),
		Port:     srv.Port(),
		Username: "360USER",
		Password: "PASSWORD",
		Timeout:  5 * time.Second,
	}})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %+v", results)
	}
	if Failed(results) {
		t.Fatalf("expected all checks to pass, got %+v", results)
	}
	if !strings.Contains(results[3].Detail, "1 files") {
		t.Fatalf("unexpected device detail %q", results[3].Detail)
	}
}

func TestCheckDeviceBadLogin(t *testing.T) {
	srv := testsupport.NewFTPServer(t)
	result := CheckDevice(context.Background(), nil, device.Config{
		Host:     srv.Host(),
		Port:     srv.Port(),
		Username: "360USER",
		Password: "nope",
	})
	if result.Passed {
		t.Fatal("expected failure for bad login")
	}
	if !strings.Contains(result.Detail, "login refused") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDeviceListingDenied(t *testing.T) {
	srv := testsupport.NewFTPServer(t, testsupport.WithDeniedListing())
	result := CheckDevice(context.Background(), nil, device.Config{
		Host:     srv.Host(),
		Port:     srv.Port(),
		Username: "360USER",
		Password: "PASSWORD",
	})
	if !result.Passed {
		t.Fatalf("expected login to count as reachable, got %q", result.Detail)
	}
}

func TestRunAllSkipsDeviceWithoutHost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg, Options{})
	if len(results) != 3 {
		t.Fatalf("expected only local checks, got %+v", results)
	}
	if RunAll(context.Background(), nil, Options{}) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
