// Package config loads stackpm settings.
//
// Settings are layered, each layer overriding the one before it:
//
//  1. Built-in defaults ([Default])
//  2. A TOML file, by default $XDG_CONFIG_HOME/stackpm/config.toml
//  3. STACKPM_* environment variables
//
// Command-line flags are applied on top by the CLI.
//
// # File Format
//
//	registry = "https://registry.npmjs.org"
//	concurrency = 16
//	retries = 5
//	timeout = "1m"
//	ignore_scripts = false
//
//	[cache]
//	backend = "redis"          # file, redis or none
//	dir = "/var/cache/stackpm"
//	redis_url = "redis://localhost:6379/0"
//	redis_prefix = "stackpm:archive:"
//
// Unknown keys are rejected so typos surface as errors instead of being
// silently ignored.
package config
