package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Only the fields the WAV check reads are requested, which keeps the probe
// fast on long recordings.
const (
	streamEntries = "stream=index,codec_name,codec_type,sample_fmt,sample_rate,channels,bits_per_sample,duration"
	formatEntries = "format=filename,nb_streams,format_name,duration,size"
)

// Result is the decoded probe of one file.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one audio stream. Numeric fields ffprobe reports as strings are
// kept as strings and parsed on demand.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	SampleFormat  string `json:"sample_fmt"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
	Duration      string `json:"duration"`
}

// Format is the container section of the probe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// Inspect probes the audio streams of path with binary ("ffprobe" when blank).
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe: no file to inspect")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}

	args := []string{
		"-v", "error",
		"-hide_banner",
		"-select_streams", "a",
		"-show_entries", streamEntries + ":" + formatEntries,
		"-of", "json",
		"--", path,
	}
	output, err := commandContext(ctx, binary, args...).Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if detail == "" {
			return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, detail)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("decode ffprobe output for %s: %w", path, err)
	}
	return result, nil
}

func isAudio(s Stream) bool {
	// -select_streams a can still yield an empty codec_type on some builds.
	return s.CodecType == "" || strings.EqualFold(s.CodecType, "audio")
}

// AudioStream returns the first audio stream, if any.
func (r Result) AudioStream() (Stream, bool) {
	for _, s := range r.Streams {
		if isAudio(s) {
			return s, true
		}
	}
	return Stream{}, false
}

// AudioStreamCount reports how many audio streams were probed.
func (r Result) AudioStreamCount() int {
	n := 0
	for _, s := range r.Streams {
		if isAudio(s) {
			n++
		}
	}
	return n
}

// SampleRateHz is the parsed sample rate, or 0 when missing or malformed.
func (s Stream) SampleRateHz() int {
	return int(nonNegative(s.SampleRate))
}

// DurationSeconds is the container duration. Malformed values yield NaN so
// callers can tell them apart from a genuine zero.
func (r Result) DurationSeconds() float64 {
	v := strings.TrimSpace(r.Format.Duration)
	if v == "" {
		return 0
	}
	d, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return d
}

// SizeBytes is the container size, or 0 when missing or malformed.
func (r Result) SizeBytes() int64 {
	return int64(nonNegative(r.Format.Size))
}

func nonNegative(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
