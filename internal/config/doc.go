// SPDX-License-Identifier: MPL-2.0

// Package config handles quixbuild configuration using Viper with TOML as the file format.
//
// Settings come from built-in defaults, an optional .quixbuild.toml in the working
// directory (or the file named by --config), and QUIXBUILD_* environment variables,
// in increasing order of precedence. File contents are validated against an embedded
// CUE schema (config_schema.cue) before they are merged, so typos and wrong types are
// reported with their TOML key path.
package config
