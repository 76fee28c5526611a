package preflight

import (
	"context"
	"os"

	"cmd360/internal/config"
	"cmd360/internal/device"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options narrows what RunAll probes.
type Options struct {
	// Device enables the login probe when Host is set.
	Device device.Config
	Dialer device.Dialer
}

// RunAll executes the local checks for cfg and, when a host is given, a
// login and listing probe against the device.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	tempDir := cfg.Paths.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	results = append(results, CheckDirectoryAccess("Temp directory", tempDir))
	results = append(results, CheckCreatableDirectory("Dump directory", cfg.Paths.DumpDir))
	results = append(results, CheckCreatableDirectory("Lock directory", cfg.Paths.LockDir))

	if opts.Device.Host != "" {
		results = append(results, CheckDevice(ctx, opts.Dialer, opts.Device))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
