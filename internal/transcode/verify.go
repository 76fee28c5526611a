package transcode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cmd360/internal/media/ffprobe"
)

// Verifier checks converted files with ffprobe.
type Verifier struct {
	binary  string
	inspect func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// NewVerifier returns a verifier that runs the given ffprobe binary.
func NewVerifier(ffprobeBinary string) *Verifier {
	return &Verifier{binary: ffprobeBinary, inspect: ffprobe.Inspect}
}

// Verify confirms that target holds a PCM stream matching p. Mismatches are
// reported as a ConversionError for source.
func (v *Verifier) Verify(ctx context.Context, source, target string, p Params) error {
	result, err := v.inspect(ctx, v.binary, target)
	if err != nil {
		return &ConversionError{Source: source, Err: fmt.Errorf("verify output: %w", err)}
	}
	audio, ok := result.AudioStream()
	if !ok {
		return &ConversionError{Source: source, Err: errors.New("verify output: no audio stream")}
	}
	var problems []string
	if !strings.HasPrefix(audio.CodecName, "pcm_") {
		problems = append(problems, fmt.Sprintf("codec %s", audio.CodecName))
	}
	if got := audio.SampleRateHz(); got != p.SampleRate {
		problems = append(problems, fmt.Sprintf("sample rate %d, want %d", got, p.SampleRate))
	}
	if audio.Channels != p.Channels {
		problems = append(problems, fmt.Sprintf("channels %d, want %d", audio.Channels, p.Channels))
	}
	if len(problems) > 0 {
		return &ConversionError{Source: source, Err: fmt.Errorf("verify output: %s", strings.Join(problems, "; "))}
	}
	return nil
}

// Verified wraps t so every successful conversion is probed before it is
// handed back to the caller.
func Verified(t Transcoder, v *Verifier) Transcoder {
	if v == nil {
		return t
	}
	return verifiedTranscoder{inner: t, verifier: v}
}

type verifiedTranscoder struct {
	inner    Transcoder
	verifier *Verifier
}

func (vt verifiedTranscoder) Convert(ctx context.Context, source, target string, p Params) error {
	if err := vt.inner.Convert(ctx, source, target, p); err != nil {
		return err
	}
	return vt.verifier.Verify(ctx, source, target, p)
}
