package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/REZICS/PolyPress/internal/config"
)

func TestSubstitutePlaceholders(t *testing.T) {
	t.Parallel()

	hc := Context{
		Root:         "/home/user/novels",
		File:         "/home/user/novels/ch1.txt",
		Platform:     "penana",
		PlatformName: "Penana",
		URL:          "https://www.penana.com/edit/1",
		Trigger:      TriggerTouch,
		Env:          map[string]string{"tag": "draft", "msg": "it's done"},
	}

	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"single placeholder", "open {url}", "open 'https://www.penana.com/edit/1'"},
		{"static names have no raw form", "cp {file} /tmp/{name:raw}", "cp '/home/user/novels/ch1.txt' /tmp/"},
		{"name", "echo {name}", "echo 'ch1.txt'"},
		{"platform and name", "{platform} {platform-name}", "'penana' 'Penana'"},
		{"all static", "{root} {trigger}", "'/home/user/novels' 'touch'"},
		{"no placeholders", "echo hello", "echo hello"},
		{"repeated", "{platform}/{platform}", "'penana'/'penana'"},
		{"env", "echo {tag}", "echo 'draft'"},
		{"env raw", "echo \"{tag:raw}\"", "echo \"draft\""},
		{"env quote escaping", "echo {msg}", `echo 'it'\''s done'`},
		{"env default used", "echo {missing:-none}", "echo 'none'"},
		{"env default ignored", "echo {tag:-none}", "echo 'draft'"},
		{"env missing", "echo {missing}", "echo ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SubstitutePlaceholders(tt.command, hc); got != tt.want {
				t.Errorf("SubstitutePlaceholders(%q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestSubstitutePlaceholders_ShellEscaping(t *testing.T) {
	t.Parallel()

	hc := Context{File: "/novels/it's; rm -rf ~.txt"}
	got := SubstitutePlaceholders("cat {file}", hc)
	want := `cat '/novels/it'\''s; rm -rf ~.txt'`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	hooks := map[string]config.Hook{
		"notify": {Command: "notify-send done", On: []string{config.HookAll}},
		"log":    {Command: "echo {url}", On: []string{config.HookPushAll}},
		"manual": {Command: "echo manual"},
		"backup": {Command: "cp {file} /tmp", On: []string{config.HookTouch, config.HookPushAll}},
	}

	tests := []struct {
		name    string
		hook    string
		skip    bool
		trigger Trigger
		want    []string
		wantErr bool
	}{
		{"touch", "", false, TriggerTouch, []string{"backup", "notify"}, false},
		{"push-all", "", false, TriggerPushAll, []string{"backup", "log", "notify"}, false},
		{"named ignores on", "manual", false, TriggerTouch, []string{"manual"}, false},
		{"skip", "notify", true, TriggerTouch, nil, false},
		{"unknown name", "nope", false, TriggerTouch, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			matches, err := Select(hooks, tt.hook, tt.skip, tt.trigger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select error = %v, wantErr %v", err, tt.wantErr)
			}
			var got []string
			for _, m := range matches {
				got = append(got, m.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Select = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelect_Empty(t *testing.T) {
	t.Parallel()

	matches, err := Select(nil, "", false, TriggerPushAll)
	if err != nil || len(matches) != 0 {
		t.Errorf("Select(nil) = %v, %v", matches, err)
	}
}

func TestRunner_DryRun(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := Runner{Stdout: &out}
	failed := r.Run(context.Background(), []Match{{Name: "notify", Hook: config.Hook{Command: "notify-send {platform-name}"}}},
		Context{PlatformName: "POPO", DryRun: true})
	if failed != 0 {
		t.Errorf("failed = %d", failed)
	}
	if got := out.String(); got != "[dry-run] notify: notify-send 'POPO'\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var out bytes.Buffer
	r := Runner{Stdout: &out}
	matches := []Match{
		{Name: "record", Hook: config.Hook{
			Command:     `printf '%s %s' {platform} "$POLYPRESS_URL" > published.txt`,
			Description: "recorded",
		}},
		{Name: "broken", Hook: config.Hook{Command: "exit 3"}},
		{Name: "after", Hook: config.Hook{Command: "echo {trigger}"}},
	}
	failed := r.Run(context.Background(), matches, Context{
		Root:     root,
		Platform: "popo",
		URL:      "https://www.popo.tw/edit/1",
		Trigger:  TriggerPushAll,
	})
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	data, err := os.ReadFile(filepath.Join(root, "published.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "popo https://www.popo.tw/edit/1" {
		t.Errorf("published.txt = %q", data)
	}
	if got := out.String(); !strings.Contains(got, "✓ recorded") || !strings.Contains(got, "push-all\n") {
		t.Errorf("output = %q", got)
	}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	stdin := func(content string, err error) func() (string, error) {
		return func() (string, error) { return content, err }
	}

	t.Run("pairs", func(t *testing.T) {
		t.Parallel()
		got, err := parseArgs([]string{"a=1", "b=x=y", "c="}, stdin("", nil))
		if err != nil {
			t.Fatal(err)
		}
		if got["a"] != "1" || got["b"] != "x=y" || got["c"] != "" || len(got) != 3 {
			t.Errorf("parseArgs = %v", got)
		}
	})

	t.Run("stdin", func(t *testing.T) {
		t.Parallel()
		got, err := parseArgs([]string{"note=-", "also=-"}, stdin("piped", nil))
		if err != nil {
			t.Fatal(err)
		}
		if got["note"] != "piped" || got["also"] != "piped" {
			t.Errorf("parseArgs = %v", got)
		}
	})

	errs := []struct {
		name  string
		args  []string
		stdin func() (string, error)
	}{
		{"no equals", []string{"novalue"}, stdin("", nil)},
		{"empty key", []string{"=v"}, stdin("", nil)},
		{"stdin not piped", []string{"k=-"}, stdin("", nil)},
		{"stdin error", []string{"k=-"}, stdin("", errors.New("read failed"))},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := parseArgs(tt.args, tt.stdin); err == nil {
				t.Error("expected error")
			}
		})
	}
}
