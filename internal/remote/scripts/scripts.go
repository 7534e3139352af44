// Package scripts holds the JavaScript injected into a platform's edit
// page and builds the call that starts the scripted update.
//
// The page side is a black box reachable through three things: the
// notice bundle, the update bundle that defines window.__polypressUpdate__,
// and the window.__polypressReport binding the page calls at every stage.
package scripts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"
)

// Notice installs the persistent progress banner. Evaluating it twice
// on one page is a no-op.
//
//go:embed notice.js
var Notice string

// Update defines the update entry point on window.
//
//go:embed update.js
var Update string

const (
	// EntryPoint is the window function defined by Update.
	EntryPoint = "__polypressUpdate__"

	// ReportBinding is the window function the page calls with a JSON
	// report at every stage.
	ReportBinding = "__polypressReport"

	// DefaultTimeout bounds each wait for an element.
	DefaultTimeout = 100 * time.Second
)

// Program is the selector set driving one platform's update flow.
type Program struct {
	Platform        string        `json:"platform"`
	ContentSelector string        `json:"contentSelector"`
	SubmitSelector  string        `json:"submitSelector"`
	ConfirmSelector string        `json:"confirmSelector"`
	Timeout         time.Duration `json:"-"`
}

// Penana is the built-in flow for Penana's chapter editor.
var Penana = Program{
	Platform:        "penana",
	ContentSelector: "#content",
	SubmitSelector:  "#updatedraft",
	ConfirmSelector: ".qtip-yes.qtip-yes-ok",
	Timeout:         DefaultTimeout,
}

// Validate reports a missing selector.
func (p Program) Validate() error {
	switch {
	case p.ContentSelector == "":
		return fmt.Errorf("program %q: content selector is empty", p.Platform)
	case p.SubmitSelector == "":
		return fmt.Errorf("program %q: submit selector is empty", p.Platform)
	case p.ConfirmSelector == "":
		return fmt.Errorf("program %q: confirm selector is empty", p.Platform)
	}
	return nil
}

type invocation struct {
	RunID     string  `json:"runId"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text"`
	TimeoutMs int64   `json:"timeoutMs"`
	Program   Program `json:"program"`
}

// Invocation returns the expression that starts the update flow with
// text. The expression evaluates to undefined; progress arrives through
// the report binding.
func Invocation(runID, title, text string, p Program) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	args, err := json.Marshal(invocation{
		RunID:     runID,
		Title:     title,
		Text:      text,
		TimeoutMs: timeout.Milliseconds(),
		Program:   p,
	})
	if err != nil {
		return "", fmt.Errorf("encode invocation: %w", err)
	}
	return fmt.Sprintf("void window.%s(%s);", EntryPoint, args), nil
}
