// Package hooks runs user commands after a platform's page was updated.
//
// Hooks are shell commands defined in config. They run once per updated
// platform, after its page flow finished, with the workspace root as
// working directory.
//
// # Hook Selection
//
//   - Automatic: hooks whose "on" list names the command ("touch",
//     "push-all") or "all"
//   - Manual: --hook=NAME runs one hook regardless of "on"; --no-hook
//     skips all
//
// Example config:
//
//	[hooks.notify]
//	command = "notify-send 'Updated' {platform-name}"
//	on = ["all"]
//
//	[hooks.log]
//	command = "echo {url} >> ~/published.txt"
//	# no "on": only runs via --hook=log
//
// # Placeholder Substitution
//
// Static placeholders, shell-quoted:
//
//   - {root}: workspace root
//   - {file}: absolute manuscript path
//   - {name}: manuscript file name
//   - {platform}: platform id
//   - {platform-name}: platform display name
//   - {url}: remote URL that was updated
//   - {trigger}: command that ran the hook
//
// Custom variables via --arg key=value:
//
//   - {key}: shell-quoted value
//   - {key:raw}: value as is
//   - {key:-default}: value with fallback if not provided
//
// --arg key=- reads piped stdin into key.
//
// The same values are exported as POLYPRESS_* environment variables.
package hooks
