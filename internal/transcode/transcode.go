package transcode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUndecodableMetadata marks a source whose metadata the transcoder could
// not render as text. Callers skip such files instead of aborting the batch.
var ErrUndecodableMetadata = errors.New("source metadata is not decodable")

// Params fixes the output format. Every converted file uses the same values
// so repeated runs produce identical output.
type Params struct {
	SampleRate int
	Channels   int
	// TruePeak is the loudnorm true-peak ceiling in dBTP.
	TruePeak float64
}

// DeviceParams returns the format the Instant Replay plays back natively:
// 44.1 kHz stereo PCM normalized to -0.1 dBTP.
func DeviceParams() Params {
	return Params{SampleRate: 44100, Channels: 2, TruePeak: -0.1}
}

// Validate rejects values ffmpeg would refuse or silently clamp.
func (p Params) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", p.SampleRate)
	}
	if p.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", p.Channels)
	}
	if p.TruePeak < -9 || p.TruePeak > 0 {
		return fmt.Errorf("true peak %.1f outside [-9, 0]", p.TruePeak)
	}
	return nil
}

// LoudnormFilter renders the audio filter expression for p.
func (p Params) LoudnormFilter() string {
	return "loudnorm=tp=" + strconv.FormatFloat(p.TruePeak, 'f', -1, 64)
}

// Transcoder converts one source file into a WAV at target.
type Transcoder interface {
	Convert(ctx context.Context, source, target string, p Params) error
}

// ConversionError reports a transcoder failure for one source. It aborts the
// whole put batch.
type ConversionError struct {
	Source string
	// Output holds the tail of the transcoder diagnostics, if any.
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("conversion failed for %q", e.Source)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if last := lastLine(e.Output); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
