// Package main hosts the cmd360 CLI entrypoint and command graph.
//
// The Cobra command tree maps put, get, and list onto transfer.Runner and adds
// check and config for setup. Configuration loading, logger construction, and
// device login settings are resolved once in commandContext so subcommands
// only translate flags and render results.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through flags and output formatting.
package main
