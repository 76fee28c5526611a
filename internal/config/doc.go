// Package config loads, normalizes, and validates cmd360 configuration data.
//
// Every command works without a configuration file: the defaults reproduce
// the command-line contract (the Instant Replay factory credentials, port 21,
// a ./dump download directory, and the .pk/.xmp exclusion list). A TOML file
// may override any of them, and command-line flags override the file.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
