package transfer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"cmd360/internal/device"
)

func TestGetCreatesDumpDirAndCopiesBytes(t *testing.T) {
	session := newFakeSession()
	payload := []byte("RIFF\x10\x00\x00\x00WAVEfmt ")
	session.remote["track01.wav"] = payload
	out := &bytes.Buffer{}
	runner := NewRunner(&fakeDialer{session: session}, WithReporter(NewReporter(out, nil)))

	dumpDir := filepath.Join(t.TempDir(), "work", "dump")
	local, err := runner.Get(context.Background(), GetRequest{
		Device:  device.Config{Host: "192.0.2.10"},
		Name:    "track01.wav",
		DumpDir: dumpDir,
	})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if local != filepath.Join(dumpDir, "track01.wav") {
		t.Fatalf("unexpected local path %s", local)
	}
	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("read local file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("downloaded bytes differ: %q", got)
	}
	if out.String() != "Retrieving: track01.wav\nSuccessfully Retrieved: track01.wav\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if session.closed != 1 {
		t.Fatalf("expected session closed once, got %d", session.closed)
	}
}

func TestGetDefaultsToDumpUnderWorkingDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	session := newFakeSession()
	session.remote["CUE.WAV"] = []byte("x")
	runner := NewRunner(&fakeDialer{session: session})

	local, err := runner.Get(context.Background(), GetRequest{Device: device.Config{Host: "192.0.2.10"}, Name: "CUE.WAV"})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if local != filepath.Join("dump", "CUE.WAV") {
		t.Fatalf("unexpected local path %s", local)
	}
	if _, err := os.Stat(filepath.Join("dump", "CUE.WAV")); err != nil {
		t.Fatalf("expected ./dump/CUE.WAV: %v", err)
	}
}

func TestGetMissingRemoteFile(t *testing.T) {
	session := newFakeSession()
	out := &bytes.Buffer{}
	runner := NewRunner(&fakeDialer{session: session}, WithReporter(NewReporter(out, nil)))
	dumpDir := filepath.Join(t.TempDir(), "dump")

	_, err := runner.Get(context.Background(), GetRequest{Device: device.Config{Host: "192.0.2.10"}, Name: "NOPE.WAV", DumpDir: dumpDir})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !device.IsPermissionDenied(err) {
		t.Fatalf("expected the 550 reply to be preserved, got %v", err)
	}
	entries, readErr := os.ReadDir(dumpDir)
	if readErr != nil {
		t.Fatalf("read dump dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no partial download, got %v", entries)
	}
	if bytes.Contains(out.Bytes(), []byte("Successfully")) {
		t.Fatalf("failure must not be reported as success: %q", out.String())
	}
	if session.closed != 1 {
		t.Fatalf("expected session closed on failure, got %d", session.closed)
	}
}

func TestGetRejectsEscapingNames(t *testing.T) {
	dialer := &fakeDialer{session: newFakeSession()}
	runner := NewRunner(dialer)
	for _, name := range []string{"", "  ", "..", ".", "../etc/passwd", "sub/../../x.wav", "/etc/passwd", "sub/"} {
		if _, err := runner.Get(context.Background(), GetRequest{Device: device.Config{Host: "h"}, Name: name, DumpDir: t.TempDir()}); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
	if dialer.dials != 0 {
		t.Fatalf("expected no dial for rejected names, got %d", dialer.dials)
	}
}

func TestGetKeepsRemoteSubdirectories(t *testing.T) {
	session := newFakeSession()
	session.remote["sub/take.wav"] = []byte("RIFF")
	runner := NewRunner(&fakeDialer{session: session})
	dumpDir := t.TempDir()

	local, err := runner.Get(context.Background(), GetRequest{
		Device:  device.Config{Host: "192.0.2.10"},
		Name:    "sub/take.wav",
		DumpDir: dumpDir,
	})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if want := filepath.Join(dumpDir, "sub", "take.wav"); local != want {
		t.Fatalf("local path = %s, want %s", local, want)
	}
	if got, err := os.ReadFile(local); err != nil || string(got) != "RIFF" {
		t.Fatalf("unexpected download %q, %v", got, err)
	}
}
