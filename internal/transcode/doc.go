// Package transcode turns arbitrary audio and media files into the 44.1 kHz
// stereo PCM WAV files an Instant Replay unit accepts.
//
// The FFmpeg type drives the ffmpeg CLI. Failures come back in two shapes:
// ErrUndecodableMetadata for sources whose tags cannot be rendered as text,
// which callers skip, and *ConversionError for everything else, which
// aborts a batch. Verified adds an ffprobe check of each output.
package transcode
