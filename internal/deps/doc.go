// Package deps locates the external programs cmd360 shells out to (ffmpeg
// and ffprobe) and reports whether they are usable.
package deps
