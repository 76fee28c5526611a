package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"unicode/utf8"

	"cmd360/internal/logging"
)

var commandContext = exec.CommandContext

const maxDiagnosticLines = 20

// Option configures the ffmpeg client.
type Option func(*FFmpeg)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if strings.TrimSpace(binary) != "" {
			f.binary = strings.TrimSpace(binary)
		}
	}
}

// WithLogger attaches a logger for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FFmpeg) {
		f.logger = logging.NewComponentLogger(logger, "transcode")
	}
}

// FFmpeg wraps the ffmpeg command-line tool.
type FFmpeg struct {
	binary string
	logger *slog.Logger
}

// NewFFmpeg constructs an ffmpeg client using defaults.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{binary: "ffmpeg", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Binary returns the executable that Convert runs.
func (f *FFmpeg) Binary() string {
	return f.binary
}

// Args returns the ffmpeg argument list for one conversion.
func (f *FFmpeg) Args(source, target string, p Params) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", source,
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", strconv.Itoa(p.Channels),
		"-af", p.LoudnormFilter(),
		"-c:a", "pcm_s16le",
		target,
	}
}

// Convert runs ffmpeg for source and writes the result to target. A partial
// target is removed on failure.
func (f *FFmpeg) Convert(ctx context.Context, source, target string, p Params) error {
	if strings.TrimSpace(source) == "" {
		return errors.New("source path required")
	}
	if strings.TrimSpace(target) == "" {
		return errors.New("target path required")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("conversion params: %w", err)
	}

	args := f.Args(source, target, p)
	f.logger.Debug("running ffmpeg", logging.String(logging.FieldSource, source), logging.String("args", strings.Join(args, " ")))

	var diag bytes.Buffer
	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	cmd.Stdout = &diag
	cmd.Stderr = &diag
	runErr := cmd.Run()

	if !utf8.Valid(diag.Bytes()) {
		_ = os.Remove(target)
		return fmt.Errorf("%w: %s", ErrUndecodableMetadata, source)
	}
	if runErr != nil {
		_ = os.Remove(target)
		return &ConversionError{Source: source, Output: tail(diag.String(), maxDiagnosticLines), Err: runErr}
	}
	if _, err := os.Stat(target); err != nil {
		return &ConversionError{Source: source, Output: tail(diag.String(), maxDiagnosticLines), Err: fmt.Errorf("no output written: %w", err)}
	}
	return nil
}

func tail(output string, n int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

var _ Transcoder = (*FFmpeg)(nil)
