// Package remote drives the hidden update surface: a single browser tab
// that loads a platform's edit page and runs the scripted update flow
// against it.
//
// An Orchestrator owns at most one Surface at a time. The surface is
// created lazily on the first Open, reused by later calls, and forgotten
// when the user closes it. Every Open starts a new run that replaces the
// previous one:
//
//	Closed -> Loading -> Injecting -> Idle -> Loading -> ...
//
// Runs report progress as Events. Stages after "injected" come from the
// page itself through the report binding.
package remote
