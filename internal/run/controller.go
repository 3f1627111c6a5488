package run

import (
	"context"
	"fmt"
	"time"

	"bulkgen/internal/model"
	"bulkgen/internal/output"
	"bulkgen/internal/provider"
	"bulkgen/internal/runstore"
)

type command int

const (
	cmdPause command = iota
	cmdStop
)

// Options configures a Controller. Zero values pick the real provider for
// the configured model, the filesystem writer, and the default retry
// policy.
type Options struct {
	Provider provider.Provider
	Writer   output.Writer
	Policy   RetryPolicy

	// OnEvent receives progress events from the worker goroutine. It must
	// not block.
	OnEvent func(model.ProgressEvent)
}

// Controller drives one run sequentially: a single worker walks the
// pending jobs in order, persisting the sidecar after every status
// change. Pause and stop requests take effect at job boundaries only; the
// in-flight job always finishes or errors first.
type Controller struct {
	state   *model.RunState
	exec    *Executor
	onEvent func(model.ProgressEvent)

	// commands is a single-slot mailbox; a later stop overrides a
	// pending pause.
	commands chan command
}

func NewController(state *model.RunState, opts Options) (*Controller, error) {
	p := opts.Provider
	if p == nil {
		var err error
		p, err = provider.ForModel(state.Config.ModelID)
		if err != nil {
			return nil, err
		}
	}
	w := opts.Writer
	if w == nil {
		w = output.FSWriter{}
	}
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	c := &Controller{
		state:    state,
		exec:     NewExecutor(p, w, policy),
		onEvent:  opts.OnEvent,
		commands: make(chan command, 1),
	}
	return c, nil
}

// Pause requests a pause at the next job boundary.
func (c *Controller) Pause() { c.post(cmdPause) }

// Stop requests a stop at the next job boundary. Stopped runs are
// terminal; a fresh plan is needed to continue.
func (c *Controller) Stop() { c.post(cmdStop) }

func (c *Controller) post(cmd command) {
	for {
		select {
		case c.commands <- cmd:
			return
		default:
		}
		select {
		case prev := <-c.commands:
			if prev == cmdStop {
				cmd = cmdStop
			}
		default:
		}
	}
}

// State returns the run state the controller mutates. Callers must not
// touch it while Run is in flight.
func (c *Controller) State() *model.RunState { return c.state }

// Run executes pending jobs until the run completes, pauses, stops, or
// errors out. It holds the run lock for the duration and persists the
// sidecar at every transition, so a killed process resumes cleanly.
func (c *Controller) Run(ctx context.Context) error {
	lock, err := runstore.AcquireRunLock(c.state.Config.CombinationsPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release()
	}()

	resetStaleInProgress(c.state)
	if c.state.Phase == model.PhasePausedOnError && c.state.Errored > 0 {
		return fmt.Errorf("run is paused on error with %d errored job(s); reset them to resume", c.state.Errored)
	}
	if err := c.setPhase(model.PhaseRunning); err != nil {
		return err
	}
	if err := c.persist(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return c.finish(model.PhaseStopped, model.EventStopped, "context cancelled")
		case cmd := <-c.commands:
			switch cmd {
			case cmdStop:
				return c.finish(model.PhaseStopped, model.EventStopped, "")
			case cmdPause:
				return c.finish(model.PhasePaused, model.EventPaused, "")
			}
		default:
		}

		idx := c.state.NextPending()
		if idx < 0 {
			// completed means every job is done; leftover errors keep
			// the run parked until they are reset
			if c.state.Errored > 0 {
				return c.finish(model.PhasePausedOnError, model.EventPausedOnError,
					fmt.Sprintf("%d errored job(s) remain", c.state.Errored))
			}
			return c.finish(model.PhaseCompleted, model.EventCompleted, "")
		}

		job := &c.state.Jobs[idx]
		if err := model.TransitionJobStatus(job, model.StatusInProgress); err != nil {
			return err
		}
		if err := c.persist(); err != nil {
			return err
		}
		c.emitJob(idx, model.EventStarted, job.AttemptCount+1, "")

		c.exec.OnRetry = func(attempt int, attemptErr error) {
			c.emitJob(idx, model.EventError, attempt, attemptErr.Error())
		}
		outcome, execErr := c.exec.Execute(ctx, c.state.Config, job)
		if execErr != nil {
			if ctx.Err() != nil {
				// cancellation mid-attempt: park the job for the next run
				job.Status = model.StatusPending
				return c.finish(model.PhaseStopped, model.EventStopped, "context cancelled")
			}
			return execErr
		}

		if outcome.Exhausted {
			c.state.RecomputeCounts()
			if err := c.persist(); err != nil {
				return err
			}
			c.emitJob(idx, model.EventError, job.AttemptCount, job.LastErrorMessage)
			return c.finish(model.PhasePausedOnError, model.EventPausedOnError,
				fmt.Sprintf("%s (iteration %d): %s", job.CombinationText, job.IterationIndex, job.LastErrorMessage))
		}

		c.state.RecomputeCounts()
		if err := c.persist(); err != nil {
			return err
		}
		c.emitJob(idx, model.EventDone, job.AttemptCount, job.Filename)
	}
}

// ResetErroredJobs puts every errored job back to pending with a fresh
// retry budget. Returns how many jobs were reset.
func ResetErroredJobs(st *model.RunState) int {
	reset := 0
	for i := range st.Jobs {
		if st.Jobs[i].Status != model.StatusError {
			continue
		}
		if err := model.TransitionJobStatus(&st.Jobs[i], model.StatusPending); err != nil {
			continue
		}
		st.Jobs[i].AttemptCount = 0
		reset++
	}
	st.RecomputeCounts()
	if reset > 0 && (st.Phase == model.PhaseCompleted || st.Phase == model.PhaseStopped) {
		st.Phase = model.PhaseIdle
	}
	return reset
}

// ResetJobs puts the selected jobs back to pending regardless of their
// current status, for explicit regeneration. A nil selector resets all.
func ResetJobs(st *model.RunState, selected func(model.Job) bool) int {
	reset := 0
	for i := range st.Jobs {
		if selected != nil && !selected(st.Jobs[i]) {
			continue
		}
		if st.Jobs[i].Status == model.StatusPending {
			continue
		}
		if err := model.TransitionJobStatus(&st.Jobs[i], model.StatusPending); err != nil {
			continue
		}
		st.Jobs[i].AttemptCount = 0
		st.Jobs[i].LastErrorMessage = ""
		st.Jobs[i].CompletedAt = ""
		reset++
	}
	st.RecomputeCounts()
	if st.Phase == model.PhaseCompleted || st.Phase == model.PhaseStopped || st.Phase == model.PhasePausedOnError {
		st.Phase = model.PhaseIdle
	}
	return reset
}

func (c *Controller) setPhase(to string) error {
	from := c.state.Phase
	if from == to {
		return nil
	}
	if !model.CanTransitionPhase(from, to) {
		return fmt.Errorf("phase transition %q -> %q not allowed", from, to)
	}
	c.state.Phase = to
	return nil
}

func (c *Controller) finish(phase, event, message string) error {
	if err := c.setPhase(phase); err != nil {
		return err
	}
	c.state.RecomputeCounts()
	if err := c.persist(); err != nil {
		return err
	}
	c.emit(model.ProgressEvent{
		JobIndex:  c.state.Cursor,
		TotalJobs: c.state.Total,
		Phase:     event,
		Message:   message,
	})
	return nil
}

func (c *Controller) persist() error {
	c.state.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return runstore.SaveState(c.state)
}

func (c *Controller) emitJob(idx int, phase string, attempt int, message string) {
	j := c.state.Jobs[idx]
	c.emit(model.ProgressEvent{
		JobIndex:        idx,
		TotalJobs:       c.state.Total,
		CombinationText: j.CombinationText,
		IterationIndex:  j.IterationIndex,
		Phase:           phase,
		Attempt:         attempt,
		Message:         message,
	})
}

func (c *Controller) emit(ev model.ProgressEvent) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

// resetStaleInProgress clears in_progress markers left behind by a killed
// process. The attempt that was interrupted is not re-counted.
func resetStaleInProgress(st *model.RunState) {
	for i := range st.Jobs {
		if st.Jobs[i].Status != model.StatusInProgress {
			continue
		}
		st.Jobs[i].Status = model.StatusPending
		if st.Jobs[i].AttemptCount > 0 {
			st.Jobs[i].AttemptCount--
		}
	}
	st.RecomputeCounts()
}
