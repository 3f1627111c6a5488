package model

import "fmt"

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusError      = "error"
)

var allowedJobTransitions = map[string]map[string]bool{
	"": {
		StatusPending: true,
	},
	StatusPending: {
		StatusPending:    true,
		StatusInProgress: true,
	},
	StatusInProgress: {
		StatusInProgress: true,
		StatusDone:       true,
		StatusError:      true,
	},
	StatusDone: {
		StatusDone:    true,
		StatusPending: true, // explicit regenerate request
	},
	StatusError: {
		StatusError:      true,
		StatusInProgress: true, // resume-after-error retries the same job
		StatusPending:    true,
	},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedJobTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedJobTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionJobStatus(job *Job, toStatus string) error {
	from := job.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid job status transition: %q -> %q (combination=%q iteration=%d)",
			from, toStatus, job.CombinationText, job.IterationIndex)
	}
	job.Status = toStatus
	return nil
}

// Run phases. Completed and Stopped are terminal for a run instance; a new
// plan is required to start again.
const (
	PhaseIdle          = "idle"
	PhaseRunning       = "running"
	PhasePaused        = "paused"
	PhasePausedOnError = "paused_on_error"
	PhaseStopped       = "stopped"
	PhaseCompleted     = "completed"
)

var allowedPhaseTransitions = map[string]map[string]bool{
	PhaseIdle: {
		PhaseRunning: true,
	},
	PhaseRunning: {
		PhaseRunning:       true,
		PhasePaused:        true,
		PhasePausedOnError: true,
		PhaseStopped:       true,
		PhaseCompleted:     true,
	},
	PhasePaused: {
		PhaseRunning: true,
		PhaseStopped: true,
	},
	PhasePausedOnError: {
		PhaseRunning: true,
		PhaseStopped: true,
	},
	PhaseStopped:   {},
	PhaseCompleted: {},
}

func CanTransitionPhase(from, to string) bool {
	next, ok := allowedPhaseTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}
