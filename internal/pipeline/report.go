package pipeline

import "time"

// State is a step of a pipeline run.
type State string

const (
	StateIdle          State = "IDLE"
	StateDiscovering   State = "DISCOVERING"
	StateProcessing    State = "PROCESSING"
	StateConsolidating State = "CONSOLIDATING"
	StateLoading       State = "LOADING"
	StateSucceeded     State = "SUCCEEDED"
	StateFailed        State = "FAILED"
)

// FileResult is the outcome of extracting and transforming one file.
// Err is nil when the file contributed Rows rows.
type FileResult struct {
	Path string
	Rows int
	Err  error
}

// OK reports whether the file was processed.
func (r FileResult) OK() bool { return r.Err == nil }

// Report describes one run.
type Report struct {
	RunID        string
	States       []State
	Files        []FileResult
	Consolidated int
	Loaded       int
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// State returns the state the run ended in.
func (r *Report) State() State {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

// Succeeded reports whether the run reached SUCCEEDED.
func (r *Report) Succeeded() bool { return r.State() == StateSucceeded }

// Skipped returns the files excluded from the run.
func (r *Report) Skipped() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if !f.OK() {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) enter(s State) { r.States = append(r.States, s) }
