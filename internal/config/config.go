package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Default limits.
const (
	DefaultMaxDepth   = 50
	DefaultMaxEntries = 100_000
	DefaultMaxBytes   = 2 << 20
	DefaultAddr       = "127.0.0.1:7788"
	DefaultDebounce   = 200 * time.Millisecond
)

// Environment overrides.
const (
	EnvHeadless   = "POLYPRESS_HEADLESS"
	EnvChromePath = "POLYPRESS_CHROME_PATH"
	EnvAddr       = "POLYPRESS_ADDR"
)

// TreeConfig bounds workspace listings.
type TreeConfig struct {
	MaxDepth   int `toml:"max_depth"`
	MaxEntries int `toml:"max_entries"`
}

// ReadConfig bounds file previews.
type ReadConfig struct {
	MaxBytes int64 `toml:"max_bytes"`
}

// BrowserConfig describes the hidden update surface.
type BrowserConfig struct {
	Headless bool   `toml:"headless"`
	ExecPath string `toml:"exec_path"`
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
	X        int    `toml:"x"`
	Y        int    `toml:"y"`
	DevTools bool   `toml:"devtools"`
}

// ServerConfig holds the local API listener settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// BulkConfig tunes the bulk update sequencer.
type BulkConfig struct {
	Pause time.Duration `toml:"pause"`
}

// SessionConfig tunes the publication list session.
type SessionConfig struct {
	Debounce time.Duration `toml:"debounce"`
}

// Valid UI theme settings.
var (
	ValidThemeNames = []string{"default", "none"}
	ValidThemeModes = []string{"auto", "light", "dark"}
)

// UIConfig selects terminal colors and symbols.
type UIConfig struct {
	Theme    string `toml:"theme"`
	Mode     string `toml:"mode"`
	Nerdfont bool   `toml:"nerdfont"`
}

// Hook triggers.
const (
	HookTouch   = "touch"
	HookPushAll = "push-all"
	HookAll     = "all"
)

// ValidHookTriggers lists the values allowed in a hook's "on" list.
var ValidHookTriggers = []string{HookTouch, HookPushAll, HookAll}

// Hook is a shell command run after a platform's page was updated.
type Hook struct {
	Command     string   `toml:"command"`
	Description string   `toml:"description"`
	On          []string `toml:"on"`
}

// Program holds the selectors of one platform's scripted update flow.
type Program struct {
	ContentSelector string        `toml:"content_selector"`
	SubmitSelector  string        `toml:"submit_selector"`
	ConfirmSelector string        `toml:"confirm_selector"`
	Timeout         time.Duration `toml:"timeout"`
}

// Config holds the polypress configuration.
type Config struct {
	Tree         TreeConfig         `toml:"tree"`
	Read         ReadConfig         `toml:"read"`
	Browser      BrowserConfig      `toml:"browser"`
	Server       ServerConfig       `toml:"server"`
	Bulk         BulkConfig         `toml:"bulk"`
	Session      SessionConfig      `toml:"session"`
	UI           UIConfig           `toml:"ui"`
	Programs     map[string]Program `toml:"programs"`
	Hooks        map[string]Hook    `toml:"hooks"`
	RegistryPath string             `toml:"registry_path"`
	HistoryPath  string             `toml:"history_path"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Tree: TreeConfig{MaxDepth: DefaultMaxDepth, MaxEntries: DefaultMaxEntries},
		Read: ReadConfig{MaxBytes: DefaultMaxBytes},
		Browser: BrowserConfig{
			Width:  1200,
			Height: 900,
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Session:  SessionConfig{Debounce: DefaultDebounce},
		UI:       UIConfig{Theme: "default", Mode: "auto"},
		Programs: map[string]Program{},
		Hooks:    map[string]Hook{},
	}
}

// ValidatePath checks that the path is absolute or starts with ~
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil
	}
	if path[0] == '~' {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	return path, nil
}

// Path returns the path to the global config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "polypress", "config.toml"), nil
}

// Load reads config from ~/.config/polypress/config.toml and applies
// environment overrides.
// Returns Default() if file doesn't exist (no error).
// Returns error only if file exists but is invalid.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return withEnv(Default()), nil
	}
	return LoadFile(path)
}

// LoadFile reads config from path. See Load.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return withEnv(Default()), nil
		}
		return withEnv(Default()), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return withEnv(Default()), fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Programs == nil {
		cfg.Programs = map[string]Program{}
	}
	if cfg.Hooks == nil {
		cfg.Hooks = map[string]Hook{}
	}

	for field, p := range map[string]*string{
		"browser.exec_path": &cfg.Browser.ExecPath,
		"registry_path":     &cfg.RegistryPath,
		"history_path":      &cfg.HistoryPath,
	} {
		if err := ValidatePath(*p, field); err != nil {
			return withEnv(Default()), err
		}
		expanded, err := expandPath(*p)
		if err != nil {
			return withEnv(Default()), fmt.Errorf("expand %s: %w", field, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return withEnv(Default()), fmt.Errorf("%s: %w", path, err)
	}

	return withEnv(cfg), nil
}

// withEnv applies environment variable overrides.
func withEnv(cfg Config) Config {
	if v := os.Getenv(EnvHeadless); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv(EnvChromePath); v != "" {
		cfg.Browser.ExecPath = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	return cfg
}

// Program returns the configured program for a platform, if any.
func (c *Config) Program(platformID string) (Program, bool) {
	p, ok := c.Programs[platformID]
	return p, ok
}

const defaultConfig = `# polypress configuration

# Workspace listing limits
[tree]
max_depth = 50        # directories deeper than this are listed without children
max_entries = 100000  # total nodes emitted per listing

# File preview limit in bytes (values below 1024 are raised to 1024)
[read]
max_bytes = 2097152

# Hidden update surface (Chrome/Chromium)
[browser]
headless = false
# exec_path = "/usr/bin/chromium"   # default: auto-detect
width = 1200
height = 900
# x = 0
# y = 0
devtools = false

# Local API for a UI front end ("polypress serve")
[server]
addr = "127.0.0.1:7788"
allowed_origins = ["http://localhost:5173"]

# Bulk update: extra pause between platforms
[bulk]
pause = "0s"

# Publication list reload debounce while switching files
[session]
debounce = "200ms"

# Terminal output
[ui]
theme = "default"   # "default" or "none"
mode = "auto"       # "auto", "light" or "dark"
nerdfont = false

# Scripted update flows per platform. Platforms without a table use
# the built-in flow.
#
# [programs.penana]
# content_selector = "#content"
# submit_selector = "#updatedraft"
# confirm_selector = ".qtip-yes.qtip-yes-ok"
# timeout = "100s"
#
# Known platforms: "rezics", "kadokado", "penana", "popo"

# Hooks run after a platform's page was updated.
# Hooks with "on" run automatically for "touch", "push-all" or "all".
# Hooks without "on" only run with --hook=NAME.
#
# [hooks.notify]
# command = "notify-send 'Updated' {platform-name}"
# description = "Desktop notification"
# on = ["all"]
#
# Placeholders (shell-quoted): {root} {file} {name} {platform}
# {platform-name} {url} {trigger}, and {key} or {key:-default} for
# --arg key=value. Use {key:raw} to skip quoting.
`

// DefaultConfig returns the default configuration file content.
func DefaultConfig() string {
	return defaultConfig
}

// Init creates a default config file at ~/.config/polypress/config.toml
// If force is true, overwrites existing file
// Returns the path to the created file
func Init(force bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", errors.New("config file already exists: " + path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
