// Package device talks to 360 Systems Instant Replay units over FTP.
//
// A Session is one logged-in control connection. The concrete Client wraps
// github.com/jlaffaye/ftp and records the control-connection transcript so
// callers can inspect the final STOR reply, which is the only place the
// device confirms a completed upload. Lock keeps concurrent cmd360
// processes from opening a second connection to the same unit.
package device
