package run

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bulkgen/internal/combos"
	"bulkgen/internal/model"
	"bulkgen/internal/output"
	"bulkgen/internal/planner"
	"bulkgen/internal/provider"
	"bulkgen/internal/runstore"
)

// scriptedProvider fails a fixed number of times per prompt before
// succeeding, and counts every call.
type scriptedProvider struct {
	mu        sync.Mutex
	failFirst map[string]int
	calls     int
	block     chan struct{}
}

func (p *scriptedProvider) Generate(_ context.Context, req provider.Request) (provider.Result, error) {
	p.mu.Lock()
	p.calls++
	if p.failFirst[req.Prompt] > 0 {
		p.failFirst[req.Prompt]--
		p.mu.Unlock()
		return provider.Result{}, errors.New("synthetic failure")
	}
	block := p.block
	p.mu.Unlock()
	if block != nil {
		<-block
	}
	return provider.Result{Bytes: []byte("img:" + req.Prompt), Format: "png"}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testState(t *testing.T, texts []string, iterations int) *model.RunState {
	t.Helper()
	dir := t.TempDir()
	combosPath := filepath.Join(dir, "combos.txt")
	if err := os.WriteFile(combosPath, []byte(""), 0o644); err != nil {
		t.Fatalf("write combos file: %v", err)
	}
	cfg := model.BulkConfig{
		CombinationsPath:     combosPath,
		ModelID:              "mock",
		ImagesPerCombination: iterations,
		OutputDir:            filepath.Join(dir, "out"),
	}
	set := combos.New(texts)
	plan := planner.Build(set, cfg, nil)
	return planner.NewState("testrun", cfg, set, plan, "2026-01-02T03:04:05Z")
}

func newTestController(t *testing.T, st *model.RunState, p provider.Provider, events *[]model.ProgressEvent) *Controller {
	t.Helper()
	var mu sync.Mutex
	c, err := NewController(st, Options{
		Provider: p,
		Writer:   output.Discard{},
		Policy:   RetryPolicy{MaxAttempts: 3, Backoff: 0},
		OnEvent: func(ev model.ProgressEvent) {
			if events == nil {
				return
			}
			mu.Lock()
			*events = append(*events, ev)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestRunCompletesAllJobs(t *testing.T) {
	st := testState(t, []string{"Elf_Ranger", "Dwarf_Warrior"}, 2)
	prov := &scriptedProvider{}
	var events []model.ProgressEvent
	c := newTestController(t, st, prov, &events)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != model.PhaseCompleted {
		t.Fatalf("Phase = %q, want completed", st.Phase)
	}
	if st.Done != 4 || st.Pending != 0 {
		t.Fatalf("Done = %d Pending = %d, want 4/0", st.Done, st.Pending)
	}
	if prov.callCount() != 4 {
		t.Fatalf("provider calls = %d, want 4", prov.callCount())
	}

	// durable state reflects completion
	loaded, err := runstore.LoadState(st.Config.CombinationsPath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.Phase != model.PhaseCompleted || loaded.Done != 4 {
		t.Fatalf("persisted Phase = %q Done = %d", loaded.Phase, loaded.Done)
	}

	last := events[len(events)-1]
	if last.Phase != model.EventCompleted {
		t.Fatalf("last event = %q, want completed", last.Phase)
	}
}

func TestResumeSkipsDoneJobs(t *testing.T) {
	st := testState(t, []string{"A", "B", "C"}, 1)
	prov := &scriptedProvider{}
	c := newTestController(t, st, prov, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if prov.callCount() != 3 {
		t.Fatalf("provider calls = %d, want 3", prov.callCount())
	}

	// replan against the unchanged file; every job carries over done
	set := combos.New([]string{"A", "B", "C"})
	plan := planner.Build(set, st.Config, st)
	st2 := planner.NewState(st.RunID, st.Config, set, plan, "2026-01-02T03:04:06Z")
	if st2.Pending != 0 {
		t.Fatalf("replan Pending = %d, want 0", st2.Pending)
	}

	c2 := newTestController(t, st2, prov, nil)
	if err := c2.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if prov.callCount() != 3 {
		t.Fatalf("resume made %d extra provider calls", prov.callCount()-3)
	}
	if st2.Phase != model.PhaseCompleted {
		t.Fatalf("Phase = %q, want completed", st2.Phase)
	}
}

func TestThreeStrikesPausesRun(t *testing.T) {
	st := testState(t, []string{"A", "B"}, 1)
	badPrompt := st.Jobs[0].ComposedPrompt
	prov := &scriptedProvider{failFirst: map[string]int{badPrompt: 99}}
	var events []model.ProgressEvent
	c := newTestController(t, st, prov, &events)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != model.PhasePausedOnError {
		t.Fatalf("Phase = %q, want paused_on_error", st.Phase)
	}
	if st.Jobs[0].Status != model.StatusError {
		t.Fatalf("job 0 status = %q, want error", st.Jobs[0].Status)
	}
	if st.Jobs[0].AttemptCount != 3 {
		t.Fatalf("AttemptCount = %d, want 3", st.Jobs[0].AttemptCount)
	}
	if st.Jobs[0].LastErrorMessage == "" {
		t.Fatal("LastErrorMessage empty after exhaustion")
	}
	// the run paused before touching job 1
	if st.Jobs[1].Status != model.StatusPending {
		t.Fatalf("job 1 status = %q, want pending", st.Jobs[1].Status)
	}
	if prov.callCount() != 3 {
		t.Fatalf("provider calls = %d, want 3", prov.callCount())
	}
	last := events[len(events)-1]
	if last.Phase != model.EventPausedOnError {
		t.Fatalf("last event = %q, want paused_on_error", last.Phase)
	}
}

func TestTransientFailureRecoversWithinBudget(t *testing.T) {
	st := testState(t, []string{"A"}, 1)
	prompt := st.Jobs[0].ComposedPrompt
	prov := &scriptedProvider{failFirst: map[string]int{prompt: 2}}
	c := newTestController(t, st, prov, nil)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != model.PhaseCompleted {
		t.Fatalf("Phase = %q, want completed", st.Phase)
	}
	if st.Jobs[0].Status != model.StatusDone {
		t.Fatalf("status = %q, want done", st.Jobs[0].Status)
	}
	if st.Jobs[0].AttemptCount != 3 {
		t.Fatalf("AttemptCount = %d, want 3", st.Jobs[0].AttemptCount)
	}
	if st.Jobs[0].LastErrorMessage != "" {
		t.Fatalf("LastErrorMessage = %q, want cleared", st.Jobs[0].LastErrorMessage)
	}
}

func TestResetErroredJobsAndResume(t *testing.T) {
	st := testState(t, []string{"A", "B"}, 1)
	badPrompt := st.Jobs[0].ComposedPrompt
	prov := &scriptedProvider{failFirst: map[string]int{badPrompt: 3}}
	c := newTestController(t, st, prov, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != model.PhasePausedOnError {
		t.Fatalf("Phase = %q, want paused_on_error", st.Phase)
	}

	if n := ResetErroredJobs(st); n != 1 {
		t.Fatalf("ResetErroredJobs = %d, want 1", n)
	}
	if st.Jobs[0].AttemptCount != 0 {
		t.Fatalf("AttemptCount = %d after reset, want 0", st.Jobs[0].AttemptCount)
	}

	c2 := newTestController(t, st, prov, nil)
	if err := c2.Run(context.Background()); err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if st.Phase != model.PhaseCompleted {
		t.Fatalf("Phase = %q, want completed", st.Phase)
	}
	if st.Done != 2 || st.Errored != 0 {
		t.Fatalf("Done = %d Errored = %d, want 2/0", st.Done, st.Errored)
	}
}

func TestPausedOnErrorBlocksPlainResume(t *testing.T) {
	st := testState(t, []string{"A", "B"}, 1)
	st.Jobs[0].Status = model.StatusError
	st.Jobs[0].AttemptCount = 3
	st.Jobs[0].LastErrorMessage = "synthetic failure"
	st.Phase = model.PhasePausedOnError
	st.RecomputeCounts()

	prov := &scriptedProvider{}
	c := newTestController(t, st, prov, nil)
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected error resuming a paused_on_error run without resetting")
	}
	if prov.callCount() != 0 {
		t.Fatalf("provider calls = %d, want 0", prov.callCount())
	}
	if st.Phase != model.PhasePausedOnError {
		t.Fatalf("Phase = %q, want paused_on_error", st.Phase)
	}
	if st.Jobs[0].Status != model.StatusError || st.Jobs[1].Status != model.StatusPending {
		t.Fatalf("jobs = %q/%q", st.Jobs[0].Status, st.Jobs[1].Status)
	}

	// explicit reset is the only way back in
	if n := ResetErroredJobs(st); n != 1 {
		t.Fatalf("ResetErroredJobs = %d, want 1", n)
	}
	c2 := newTestController(t, st, prov, nil)
	if err := c2.Run(context.Background()); err != nil {
		t.Fatalf("Run after reset: %v", err)
	}
	if st.Phase != model.PhaseCompleted || st.Done != 2 {
		t.Fatalf("Phase = %q Done = %d", st.Phase, st.Done)
	}
}

func TestErroredJobsBlockCompletion(t *testing.T) {
	st := testState(t, []string{"A", "B"}, 1)
	st.Jobs[0].Status = model.StatusError
	st.Jobs[0].AttemptCount = 3
	st.RecomputeCounts()

	prov := &scriptedProvider{}
	c := newTestController(t, st, prov, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Jobs[1].Status != model.StatusDone {
		t.Fatalf("job 1 status = %q, want done", st.Jobs[1].Status)
	}
	// the run parks instead of claiming completion around the error
	if st.Phase != model.PhasePausedOnError {
		t.Fatalf("Phase = %q, want paused_on_error", st.Phase)
	}
	if st.Errored != 1 || st.Done != 1 {
		t.Fatalf("Errored = %d Done = %d", st.Errored, st.Done)
	}
}

func TestResetJobsFollowsTransitionTable(t *testing.T) {
	st := testState(t, []string{"A", "B"}, 1)
	st.Jobs[0].Status = model.StatusDone
	st.Jobs[0].CompletedAt = "2026-01-02T03:04:05Z"
	st.Jobs[1].Status = model.StatusInProgress
	st.RecomputeCounts()

	if n := ResetJobs(st, nil); n != 1 {
		t.Fatalf("ResetJobs = %d, want 1", n)
	}
	if st.Jobs[0].Status != model.StatusPending || st.Jobs[0].CompletedAt != "" {
		t.Fatalf("job 0 = %q completed_at=%q", st.Jobs[0].Status, st.Jobs[0].CompletedAt)
	}
	// in_progress has no edge to pending; stale-run recovery owns it
	if st.Jobs[1].Status != model.StatusInProgress {
		t.Fatalf("job 1 status = %q, want in_progress untouched", st.Jobs[1].Status)
	}
}

func TestPauseTakesEffectAtJobBoundary(t *testing.T) {
	st := testState(t, []string{"A", "B", "C"}, 1)
	prov := &scriptedProvider{block: make(chan struct{})}
	c := newTestController(t, st, prov, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	// let the first job start, request the pause, then unblock it
	for prov.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	c.Pause()
	close(prov.block)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != model.PhasePaused {
		t.Fatalf("Phase = %q, want paused", st.Phase)
	}
	// the in-flight job finished; nothing after it started
	if st.Jobs[0].Status != model.StatusDone {
		t.Fatalf("job 0 status = %q, want done", st.Jobs[0].Status)
	}
	if st.Jobs[1].Status != model.StatusPending || st.Jobs[2].Status != model.StatusPending {
		t.Fatalf("jobs after boundary = %q/%q, want pending", st.Jobs[1].Status, st.Jobs[2].Status)
	}
}

func TestStopOverridesPause(t *testing.T) {
	st := testState(t, []string{"A", "B"}, 1)
	prov := &scriptedProvider{block: make(chan struct{})}
	c := newTestController(t, st, prov, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	for prov.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	c.Pause()
	c.Stop()
	close(prov.block)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != model.PhaseStopped {
		t.Fatalf("Phase = %q, want stopped", st.Phase)
	}
}

func TestStaleInProgressResetOnStart(t *testing.T) {
	st := testState(t, []string{"A"}, 1)
	st.Jobs[0].Status = model.StatusInProgress
	st.Jobs[0].AttemptCount = 1
	st.RecomputeCounts()

	prov := &scriptedProvider{}
	c := newTestController(t, st, prov, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Jobs[0].Status != model.StatusDone {
		t.Fatalf("status = %q, want done", st.Jobs[0].Status)
	}
	// the interrupted attempt was not double counted
	if st.Jobs[0].AttemptCount != 1 {
		t.Fatalf("AttemptCount = %d, want 1", st.Jobs[0].AttemptCount)
	}
}

func TestRunRefusesConcurrentLock(t *testing.T) {
	st := testState(t, []string{"A"}, 1)
	lock, err := runstore.AcquireRunLock(st.Config.CombinationsPath)
	if err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	defer lock.Release()

	c := newTestController(t, st, &scriptedProvider{}, nil)
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected lock error for concurrent run")
	}
}

func TestWriteFailureCountsAsAttempt(t *testing.T) {
	st := testState(t, []string{"A"}, 1)
	c, err := NewController(st, Options{
		Provider: &scriptedProvider{},
		Writer:   failingWriter{},
		Policy:   RetryPolicy{MaxAttempts: 3, Backoff: 0},
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Phase != model.PhasePausedOnError {
		t.Fatalf("Phase = %q, want paused_on_error", st.Phase)
	}
	if st.Jobs[0].AttemptCount != 3 {
		t.Fatalf("AttemptCount = %d, want 3", st.Jobs[0].AttemptCount)
	}
}

type failingWriter struct{}

func (failingWriter) Write(string, []byte) error { return errors.New("disk full") }
