package run

import (
	"context"
	"errors"
	"testing"
	"time"

	"bulkgen/internal/model"
	"bulkgen/internal/output"
	"bulkgen/internal/provider"
)

type fixedFormatProvider struct{ format string }

func (p fixedFormatProvider) Generate(context.Context, provider.Request) (provider.Result, error) {
	return provider.Result{Bytes: []byte("x"), Format: p.format}, nil
}

func TestExecuteSwapsExtensionForProviderFormat(t *testing.T) {
	job := model.Job{
		CombinationText: "A",
		ComposedPrompt:  "A",
		Filename:        "1_A.png",
		OutputPath:      "/tmp/out/1_A.png",
		Status:          model.StatusInProgress,
	}
	e := NewExecutor(fixedFormatProvider{format: "jpeg"}, output.Discard{}, RetryPolicy{MaxAttempts: 3})
	if _, err := e.Execute(context.Background(), model.BulkConfig{}, &job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.Filename != "1_A.jpeg" {
		t.Fatalf("Filename = %q, want 1_A.jpeg", job.Filename)
	}
	if job.OutputPath != "/tmp/out/1_A.jpeg" {
		t.Fatalf("OutputPath = %q", job.OutputPath)
	}
	if job.Status != model.StatusDone || job.CompletedAt == "" {
		t.Fatalf("status = %q completed_at = %q", job.Status, job.CompletedAt)
	}
}

type alwaysFailProvider struct{}

func (alwaysFailProvider) Generate(context.Context, provider.Request) (provider.Result, error) {
	return provider.Result{}, errors.New("boom")
}

func TestExecuteSleepsBetweenRetriesOnly(t *testing.T) {
	job := model.Job{ComposedPrompt: "A", Status: model.StatusInProgress}
	e := NewExecutor(alwaysFailProvider{}, output.Discard{}, RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Second})
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	var retries []int
	e.OnRetry = func(attempt int, _ error) { retries = append(retries, attempt) }

	outcome, err := e.Execute(context.Background(), model.BulkConfig{}, &job)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !outcome.Exhausted {
		t.Fatal("expected exhausted outcome")
	}
	// two sleeps for three attempts: never after the final failure
	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(slept))
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Fatalf("retry callbacks = %v, want [1 2]", retries)
	}
	if job.Status != model.StatusError {
		t.Fatalf("status = %q, want error", job.Status)
	}
}

func TestExecuteHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := model.Job{ComposedPrompt: "A", Status: model.StatusInProgress}
	e := NewExecutor(alwaysFailProvider{}, output.Discard{}, RetryPolicy{MaxAttempts: 3})
	if _, err := e.Execute(ctx, model.BulkConfig{}, &job); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if job.AttemptCount != 0 {
		t.Fatalf("AttemptCount = %d, want 0", job.AttemptCount)
	}
}
