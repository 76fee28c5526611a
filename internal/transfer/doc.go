// Package transfer implements the put, get, and list workflows against an
// Instant Replay unit.
//
// A Runner owns the collaborators shared by all three: the device Dialer,
// the Transcoder used by put, the optional per-device lock, and the Reporter
// that prints progress lines. Every workflow opens exactly one session and
// releases it, together with put's scoped conversion directory, on every
// return path. Files are handled strictly one at a time.
package transfer
