package remote

import "time"

// State is the orchestrator's surface state.
type State int

const (
	Closed State = iota
	Idle
	Loading
	Injecting
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Injecting:
		return "injecting"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stage names a step of a run.
type Stage string

// Host stages.
const (
	StageSurfaceOpen Stage = "surface-open"
	StageLoading     Stage = "loading"
	StageInjecting   Stage = "injecting"
	StageInjected    Stage = "injected"
	StageClosed      Stage = "closed"
)

// Page stages, reported by the update script.
const (
	StageInit          Stage = "init"
	StageAwaitContent  Stage = "await-content"
	StageInjectContent Stage = "inject-content"
	StageSubmit        Stage = "submit"
	StageAwaitConfirm  Stage = "await-confirm"
	StageConfirm       Stage = "confirm"
	StageDone          Stage = "done"
	StageStopped       Stage = "stopped"
	StageFailed        Stage = "failed"
)

// Terminal reports whether no further stage follows in the same run.
func (s Stage) Terminal() bool {
	switch s {
	case StageDone, StageStopped, StageFailed, StageClosed:
		return true
	}
	return false
}

// Event is one progress notification.
type Event struct {
	RunID string    `json:"runId,omitempty"`
	Stage Stage     `json:"stage"`
	Text  string    `json:"text,omitempty"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// Report is what the page sends through the report binding.
type Report struct {
	RunID string `json:"runId"`
	Stage Stage  `json:"stage"`
	Text  string `json:"text"`
	Error string `json:"error"`
}
