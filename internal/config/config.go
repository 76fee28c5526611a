package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Device contains the FTP login used for the Instant Replay unit.
type Device struct {
	Username       string `toml:"username" validate:"required"`
	Password       string `toml:"password"`
	Port           int    `toml:"port" validate:"min=1,max=65535"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"min=0"`
}

// Paths contains local directories used by the transfer commands.
type Paths struct {
	DumpDir string `toml:"dump_dir" validate:"required"`
	TempDir string `toml:"temp_dir"`
	LockDir string `toml:"lock_dir" validate:"required"`
}

// Transcoder contains the external conversion tool settings.
type Transcoder struct {
	FFmpegBinary  string `toml:"ffmpeg_binary" validate:"required"`
	FFprobeBinary string `toml:"ffprobe_binary" validate:"required"`
	// VerifyOutput probes each converted WAV before it is uploaded.
	VerifyOutput bool `toml:"verify_output"`
}

// Put contains settings specific to the convert-and-upload command.
type Put struct {
	ExcludedExtensions []string `toml:"excluded_extensions" validate:"dive,startswith=."`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" validate:"oneof=console json"`
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
}

// Config encapsulates all configuration values for cmd360.
//
// Every value has a default that matches the command-line contract, so a
// missing config file never changes behaviour:
//   - Device: FTP credentials, port, and dial timeout
//   - Paths: dump directory for downloads, temp root, device lock directory
//   - Transcoder: ffmpeg/ffprobe binaries and output verification
//   - Put: extensions that are never converted
//   - Logging: log format and level
type Config struct {
	Device     Device     `toml:"device"`
	Paths      Paths      `toml:"paths"`
	Transcoder Transcoder `toml:"transcoder"`
	Put        Put        `toml:"put"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath is where Load looks first when no path is given.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cmd360/config.toml")
}

// Load reads the config at path, or the first of DefaultConfigPath and
// ./cmd360.toml that exists when path is blank. A missing file is not an
// error: defaults are used and exists is false. The result is normalized
// and validated.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	resolved, exists, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}

	loaded := Default()
	if exists {
		if err := decodeFile(resolved, &loaded); err != nil {
			return nil, "", false, err
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

func decodeFile(path string, into *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(expanded)
		return expanded, found, err
	}

	home, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("cmd360.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{home, local} {
		if found, _ := isFile(candidate); found {
			return candidate, true, nil
		}
	}
	return home, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config %s is a directory", path)
	}
	return true, nil
}

// Timeout returns the FTP dial timeout. Zero means no timeout beyond the
// transport defaults.
func (c *Config) Timeout() time.Duration {
	if c.Device.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Device.TimeoutSeconds) * time.Second
}

// ExpandPath resolves a leading "~" and returns an absolute, cleaned path.
// Blank input stays blank.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimLeft(p[1:], `/\`))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return abs, nil
}

// CreateSample writes the commented sample config to path, creating parent
// directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
