package model

// Event phases reported on the progress stream. Job-scoped phases carry the
// job's combination and iteration; run-scoped phases describe the whole run.
const (
	EventStarted       = "started"
	EventDone          = "done"
	EventError         = "error"
	EventPaused        = "paused"
	EventPausedOnError = "paused_on_error"
	EventStopped       = "stopped"
	EventCompleted     = "completed"
)

// ProgressEvent is one entry on the run's event stream.
type ProgressEvent struct {
	JobIndex        int    `json:"job_index"`
	TotalJobs       int    `json:"total_jobs"`
	CombinationText string `json:"combination_text,omitempty"`
	IterationIndex  int    `json:"iteration_index,omitempty"`
	Phase           string `json:"phase"`
	Attempt         int    `json:"attempt,omitempty"`
	Message         string `json:"message,omitempty"`
}
