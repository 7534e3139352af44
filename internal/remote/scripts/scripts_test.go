package scripts

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBundles(t *testing.T) {
	t.Parallel()

	checks := []struct {
		name   string
		script string
		want   []string
	}{
		{"notice", Notice, []string{"__polypress_injected_banner__", "__polypress_banner_update__", "2147483647"}},
		{"update", Update, []string{"window." + EntryPoint, ReportBinding, "execCommand('insertText'", "Timeout waiting for "}},
	}
	for _, c := range checks {
		for _, want := range c.want {
			if !strings.Contains(c.script, want) {
				t.Errorf("%s bundle missing %q", c.name, want)
			}
		}
	}
}

func TestInvocation(t *testing.T) {
	t.Parallel()

	text := "line one\n</script><b>\u2028\"quoted\""
	got, err := Invocation("run-1", "Update: Penana", text, Penana)
	if err != nil {
		t.Fatalf("Invocation: %v", err)
	}

	prefix := "void window." + EntryPoint + "("
	if !strings.HasPrefix(got, prefix) || !strings.HasSuffix(got, ");") {
		t.Fatalf("Invocation = %q", got)
	}
	if strings.Contains(got, "</script>") || strings.Contains(got, "\u2028") {
		t.Errorf("Invocation leaks unescaped markup or line separators: %q", got)
	}

	var args struct {
		RunID     string `json:"runId"`
		Title     string `json:"title"`
		Text      string `json:"text"`
		TimeoutMs int64  `json:"timeoutMs"`
		Program   struct {
			ContentSelector string `json:"contentSelector"`
			SubmitSelector  string `json:"submitSelector"`
			ConfirmSelector string `json:"confirmSelector"`
		} `json:"program"`
	}
	payload := strings.TrimSuffix(strings.TrimPrefix(got, prefix), ");")
	if err := json.Unmarshal([]byte(payload), &args); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if args.Text != text {
		t.Errorf("text = %q, want %q", args.Text, text)
	}
	if args.RunID != "run-1" || args.Title != "Update: Penana" {
		t.Errorf("runId/title = %q/%q", args.RunID, args.Title)
	}
	if args.TimeoutMs != 100000 {
		t.Errorf("timeoutMs = %d, want 100000", args.TimeoutMs)
	}
	if args.Program.ContentSelector != "#content" ||
		args.Program.SubmitSelector != "#updatedraft" ||
		args.Program.ConfirmSelector != ".qtip-yes.qtip-yes-ok" {
		t.Errorf("program = %+v", args.Program)
	}
}

func TestInvocation_DefaultTimeout(t *testing.T) {
	t.Parallel()

	p := Penana
	p.Timeout = 0
	got, err := Invocation("r", "", "", p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `"timeoutMs":100000`) {
		t.Errorf("Invocation = %q, want default timeout", got)
	}

	p.Timeout = 5 * time.Second
	got, _ = Invocation("r", "", "", p)
	if !strings.Contains(got, `"timeoutMs":5000`) {
		t.Errorf("Invocation = %q, want 5000ms", got)
	}
}

func TestInvocation_InvalidProgram(t *testing.T) {
	t.Parallel()

	for _, p := range []Program{
		{SubmitSelector: "a", ConfirmSelector: "b"},
		{ContentSelector: "a", ConfirmSelector: "b"},
		{ContentSelector: "a", SubmitSelector: "b"},
	} {
		if _, err := Invocation("r", "", "x", p); err == nil {
			t.Errorf("Invocation(%+v) expected error", p)
		}
	}
}
