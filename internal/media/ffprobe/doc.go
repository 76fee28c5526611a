// Package ffprobe runs ffprobe against converted files and decodes the audio
// stream details cmd360 checks before an upload.
package ffprobe
