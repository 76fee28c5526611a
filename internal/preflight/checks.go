package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"cmd360/internal/config"
	"cmd360/internal/deps"
	"cmd360/internal/device"
)

const deviceProbeTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is a usable directory or when its
// nearest existing ancestor would let cmd360 create it on demand.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	check := CheckDirectoryAccess(name, parent)
	if !check.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot be created under %s)", path, parent)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first use)", path)}
}

// CheckSystemDeps evaluates the external programs cfg refers to. ffprobe is
// only required when output verification is enabled.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcoder.FFmpegBinary,
			Description: "Required for put conversions",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.Transcoder.FFmpegBinary, cfg.Transcoder.FFprobeBinary),
			Description: "Verifies converted files",
			Optional:    !cfg.Transcoder.VerifyOutput,
			VersionArgs: []string{"-version"},
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

// CheckDevice logs in to the device and requests a listing.
func CheckDevice(ctx context.Context, dialer device.Dialer, cfg device.Config) Result {
	addr := device.Address(cfg.Host, cfg.Port)
	name := "Device " + addr
	if dialer == nil {
		dialer = device.FTPDialer
	}

	checkCtx, cancel := context.WithTimeout(ctx, deviceProbeTimeout)
	defer cancel()
	if cfg.Timeout == 0 || cfg.Timeout > deviceProbeTimeout {
		cfg.Timeout = deviceProbeTimeout
	}

	session, err := dialer.Dial(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: summarizeDeviceError(err)}
	}
	defer session.Close()

	names, err := session.NameList()
	if err != nil {
		if device.IsPermissionDenied(err) {
			return Result{Name: name, Passed: true, Detail: "login ok (listing refused)"}
		}
		return Result{Name: name, Detail: summarizeDeviceError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("login ok (%d files)", len(names))}
}

// summarizeDeviceError produces a human-readable summary for device probe failures.
func summarizeDeviceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (device unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (device unreachable)"
	}
	if device.IsPermissionDenied(err) {
		return "login refused (check username and password)"
	}
	return err.Error()
}
