package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cmd360/internal/device"
	"cmd360/internal/fileutil"
	"cmd360/internal/logging"
)

// DefaultDumpDir is where get stores downloads, relative to the working
// directory.
const DefaultDumpDir = "dump"

// GetRequest names one remote file to download.
type GetRequest struct {
	Device device.Config
	Name   string
	// DumpDir receives the file. Empty means DefaultDumpDir.
	DumpDir string
}

// Get downloads req.Name into the dump directory, creating it as needed, and
// returns the local path. The local file only appears once the transfer
// completed. Errors are returned without retry.
func (r *Runner) Get(ctx context.Context, req GetRequest) (string, error) {
	if err := checkHost(req.Device); err != nil {
		return "", err
	}
	dumpDir := req.DumpDir
	if dumpDir == "" {
		dumpDir = DefaultDumpDir
	}
	local, err := dumpPath(dumpDir, req.Name)
	if err != nil {
		return "", err
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldCommand, "get"))

	session, release, err := r.open(ctx, req.Device)
	if err != nil {
		return "", err
	}
	defer release()

	r.reporter.Retrieving(req.Name)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("create dump dir: %w", err)
	}

	m := r.reporter.startMeter(req.Name, 0)
	var written int64
	err = fileutil.WriteAtomic(local, 0o644, func(w io.Writer) error {
		counter := &countingWriter{w: w, m: m}
		err := session.Retrieve(req.Name, counter)
		written = counter.count
		return err
	})
	m.finish()
	if err != nil {
		return "", err
	}

	r.reporter.Retrieved(req.Name)
	logger.Info("file retrieved", logging.String(logging.FieldRemote, req.Name), logging.String("path", local), logging.Int64("bytes", written))
	return local, nil
}

// dumpPath maps a remote name to its place under dumpDir. Names with
// directories ("sub/take.wav") keep them; names that would leave dumpDir
// are rejected.
func dumpPath(dumpDir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("remote file name required")
	}
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) || filepath.Clean(rel) == "." || strings.HasSuffix(name, "/") {
		return "", fmt.Errorf("invalid remote file name %q: must stay inside the dump directory", name)
	}
	return filepath.Join(dumpDir, rel), nil
}
