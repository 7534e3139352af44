package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/log"
)

// shellQuote wraps s in single quotes, escaping embedded single quotes.
// e.g., "it's" becomes 'it'\''s'
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// Trigger identifies the command that runs the hooks.
type Trigger string

const (
	TriggerTouch   Trigger = config.HookTouch
	TriggerPushAll Trigger = config.HookPushAll
)

// Context holds the values for placeholder substitution.
type Context struct {
	Root         string
	File         string
	Platform     string
	PlatformName string
	URL          string
	Trigger      Trigger
	Env          map[string]string // custom variables from --arg key=value
	DryRun       bool              // print the command instead of running it
}

// Match is a hook selected to run.
type Match struct {
	Name string
	Hook config.Hook
}

// Select determines which hooks to run. A named hook runs regardless of
// its "on" list; otherwise every hook whose "on" list matches trigger
// runs, in name order. An unknown name is an error.
func Select(hooks map[string]config.Hook, name string, skip bool, trigger Trigger) ([]Match, error) {
	if skip {
		return nil, nil
	}
	if name != "" {
		h, ok := hooks[name]
		if !ok {
			return nil, fmt.Errorf("unknown hook %q", name)
		}
		return []Match{{Name: name, Hook: h}}, nil
	}

	var matches []Match
	for n, h := range hooks {
		if matchesTrigger(h, trigger) {
			matches = append(matches, Match{Name: n, Hook: h})
		}
	}
	slices.SortFunc(matches, func(a, b Match) int { return strings.Compare(a.Name, b.Name) })
	return matches, nil
}

func matchesTrigger(h config.Hook, trigger Trigger) bool {
	for _, on := range h.On {
		if on == config.HookAll || on == string(trigger) {
			return true
		}
	}
	return false
}

// Runner executes hooks. Hook output goes to Stdout and Stderr.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// Run runs every match for one updated platform. Failures are logged
// and do not stop the remaining hooks; the number of failures is
// returned.
func (r Runner) Run(ctx context.Context, matches []Match, hc Context) int {
	failed := 0
	for _, m := range matches {
		if err := r.run(ctx, m, hc); err != nil {
			r.logger().Warn("hook failed", "hook", m.Name, "platform", hc.Platform, "error", err)
			failed++
		}
	}
	return failed
}

func (r Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Discard()
	}
	return r.Logger
}

func (r Runner) run(ctx context.Context, m Match, hc Context) error {
	command := SubstitutePlaceholders(m.Hook.Command, hc)
	out := r.Stdout
	if out == nil {
		out = io.Discard
	}

	if hc.DryRun {
		fmt.Fprintf(out, "[dry-run] %s: %s\n", m.Name, command)
		return nil
	}

	r.logger().Debug("running hook", "hook", m.Name, "command", command)
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = hc.Root
	cmd.Env = append(os.Environ(), environ(hc)...)
	cmd.Stdout = out
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}
	if err := cmd.Run(); err != nil {
		return err
	}

	if m.Hook.Description != "" {
		fmt.Fprintf(out, "  ✓ %s\n", m.Hook.Description)
	}
	return nil
}

func environ(hc Context) []string {
	return []string{
		"POLYPRESS_ROOT=" + hc.Root,
		"POLYPRESS_FILE=" + hc.File,
		"POLYPRESS_PLATFORM=" + hc.Platform,
		"POLYPRESS_PLATFORM_NAME=" + hc.PlatformName,
		"POLYPRESS_URL=" + hc.URL,
		"POLYPRESS_TRIGGER=" + string(hc.Trigger),
	}
}

// ParseArgs parses "key=value" pairs. Keys whose value is "-" receive
// stdin, which must be piped.
func ParseArgs(args []string) (map[string]string, error) {
	return parseArgs(args, readStdinIfPiped)
}

func parseArgs(args []string, stdin func() (string, error)) (map[string]string, error) {
	result := make(map[string]string, len(args))
	var stdinKeys []string
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid arg format %q: expected KEY=VALUE", a)
		}
		if key == "" {
			return nil, fmt.Errorf("invalid arg format %q: key cannot be empty", a)
		}
		if value == "-" {
			stdinKeys = append(stdinKeys, key)
			continue
		}
		result[key] = value
	}

	if len(stdinKeys) > 0 {
		content, err := stdin()
		if err != nil {
			return nil, err
		}
		if content == "" {
			return nil, fmt.Errorf("stdin not piped: KEY=- requires piped input")
		}
		for _, key := range stdinKeys {
			result[key] = content
		}
	}
	return result, nil
}

// readStdinIfPiped returns stdin's content, or "" when stdin is a terminal.
func readStdinIfPiped() (string, error) {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// envPlaceholderRegex matches {key}, {key:raw} and {key:-default}.
var envPlaceholderRegex = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(?:(:raw)|:-([^}]*))?\}`)

// SubstitutePlaceholders replaces the static placeholders with
// shell-quoted values of hc, then expands custom variables from hc.Env.
// Unknown variables expand to their default, or an empty quoted string.
func SubstitutePlaceholders(command string, hc Context) string {
	name := ""
	if hc.File != "" {
		name = filepath.Base(hc.File)
	}
	result := strings.NewReplacer(
		"{root}", shellQuote(hc.Root),
		"{file}", shellQuote(hc.File),
		"{name}", shellQuote(name),
		"{platform-name}", shellQuote(hc.PlatformName),
		"{platform}", shellQuote(hc.Platform),
		"{url}", shellQuote(hc.URL),
		"{trigger}", shellQuote(string(hc.Trigger)),
	).Replace(command)

	return envPlaceholderRegex.ReplaceAllStringFunc(result, func(match string) string {
		sub := envPlaceholderRegex.FindStringSubmatch(match)
		key, raw, def := sub[1], sub[2] == ":raw", sub[3]
		val, ok := hc.Env[key]
		if !ok {
			val = def
		}
		if raw {
			return val
		}
		return shellQuote(val)
	})
}
