// Package config handles loading and validation of polypress configuration.
//
// Configuration is read from ~/.config/polypress/config.toml with
// environment variable overrides. A workspace may carry its own
// .polypress/config.toml that overrides tree, read and program settings
// for that root only.
//
// # Configuration Sources (highest priority first)
//
//   - POLYPRESS_HEADLESS, POLYPRESS_CHROME_PATH, POLYPRESS_ADDR env vars
//   - Workspace config (<root>/.polypress/config.toml)
//   - Global config file
//   - Default values
//
// # Programs
//
// The scripted update flow for a platform is described by selectors:
//
//	[programs.penana]
//	content_selector = "#content"
//	submit_selector = "#updatedraft"
//	confirm_selector = ".qtip-yes.qtip-yes-ok"
//	timeout = "100s"
//
// Platforms without a program table use the built-in one.
package config
