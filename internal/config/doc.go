// Package config owns docmill's TOML configuration: loading, defaults,
// normalization, and validation.
//
// Load resolves the config file (explicit path, then the user config
// directory, then a project-local docmill.toml), decodes it over the
// defaults, expands and absolutizes every path field, and validates the
// result. Components receive an already-normalized *Config and never reparse
// or re-default values themselves.
package config
