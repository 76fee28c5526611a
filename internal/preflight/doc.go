// Package preflight provides readiness checks for the directories and
// external programs cmd360 depends on, plus an optional login probe against
// an Instant Replay unit.
//
// The CLI "cmd360 check" command renders these results. Each check returns
// a Result instead of an error so one failure never hides the others.
package preflight
