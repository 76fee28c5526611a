package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe that belongs to the configured ffmpeg.
//
// Static ffmpeg builds ship ffprobe in the same directory, and mixing the
// two from different builds gives confusing verification results. When
// ffprobeBinary is left at its bare default and ffmpegBinary resolves to a
// directory holding an executable ffprobe, that sidecar wins. Otherwise
// ffprobeBinary is returned unchanged.
func ResolveFFprobe(ffmpegBinary, ffprobeBinary string) string {
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	if ffprobeBinary != "ffprobe" {
		return ffprobeBinary
	}

	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		return ffprobeBinary
	}
	resolved, err := exec.LookPath(ffmpegBinary)
	if err != nil {
		return ffprobeBinary
	}
	candidate := sidecarPath(resolved, "ffprobe")
	if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
		return candidate
	}
	return ffprobeBinary
}

func sidecarPath(binaryPath, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(binaryPath), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
