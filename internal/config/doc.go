// Package config loads smashtrack's runtime configuration.
//
// # Sources
//
// Values are layered from lowest to highest precedence:
//
//  1. Built-in defaults (Default)
//  2. The config file, ~/.config/smashtrack/config.toml unless a path is given.
//     Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
//  3. Environment variables prefixed with SMASHTRACK_, e.g.
//     SMASHTRACK_API_BASE or SMASHTRACK_PROVIDER_API_KEY.
//
// A missing config file is not an error; the defaults are enough to talk to a
// backend on the local network.
//
// # TOML Format
//
//	api_base = "https://smash.example.com/api"
//	token_path = "~/.config/smashtrack/credential.toml"
//	request_timeout = "90s"
//	analysis_mode = "server"   # or "provider"
//	provider_model = "gemini-2.5-flash"
//	max_upload_mb = 50
//	max_clip_seconds = 10
//
// Empty or non-positive values fall back to the defaults. Paths support tilde
// expansion and are returned absolute.
package config
