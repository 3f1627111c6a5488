package run

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"bulkgen/internal/model"
	"bulkgen/internal/output"
	"bulkgen/internal/provider"
)

// RetryPolicy bounds consecutive failed attempts on a single job. Once
// MaxAttempts is reached the job is marked errored and the run pauses.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Second}
}

// Executor runs one job end to end: generate the image, then persist the
// bytes. A write failure counts as a failed attempt exactly like a
// provider failure.
type Executor struct {
	Provider provider.Provider
	Writer   output.Writer
	Policy   RetryPolicy

	// OnRetry is called after each failed attempt that has retries left.
	OnRetry func(attempt int, err error)

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewExecutor(p provider.Provider, w output.Writer, policy RetryPolicy) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	return &Executor{Provider: p, Writer: w, Policy: policy, sleep: time.Sleep}
}

// Outcome reports how a job ended.
type Outcome struct {
	// Exhausted is set when the retry budget ran out; the job is errored
	// and the caller should pause the run.
	Exhausted bool
	LastErr   error
}

// Execute attempts the job until it succeeds, the retry budget runs out,
// or the context is cancelled. The job's attempt bookkeeping and terminal
// status are updated in place; the caller persists.
func (e *Executor) Execute(ctx context.Context, cfg model.BulkConfig, job *model.Job) (Outcome, error) {
	req := provider.Request{
		Prompt:         job.ComposedPrompt,
		NegativePrompt: cfg.NegativePrompt,
		AspectRatio:    cfg.AspectRatio,
		ModelID:        cfg.ModelID,
	}

	var lastErr error
	for job.AttemptCount < e.Policy.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		job.AttemptCount++
		job.LastAttemptAt = time.Now().UTC().Format(time.RFC3339)

		res, err := e.Provider.Generate(ctx, req)
		if err == nil {
			applyFormat(job, res.Format)
			err = e.Writer.Write(job.OutputPath, res.Bytes)
			if err == nil {
				if trErr := model.TransitionJobStatus(job, model.StatusDone); trErr != nil {
					return Outcome{}, trErr
				}
				job.LastErrorMessage = ""
				job.CompletedAt = time.Now().UTC().Format(time.RFC3339)
				return Outcome{}, nil
			}
		}

		lastErr = err
		job.LastErrorMessage = truncate(err.Error(), 1200)
		if job.AttemptCount < e.Policy.MaxAttempts {
			if e.OnRetry != nil {
				e.OnRetry(job.AttemptCount, err)
			}
			if e.Policy.Backoff > 0 {
				e.sleep(e.Policy.Backoff)
			}
		}
	}

	if err := model.TransitionJobStatus(job, model.StatusError); err != nil {
		return Outcome{}, err
	}
	job.CompletedAt = ""
	return Outcome{Exhausted: true, LastErr: lastErr}, nil
}

// applyFormat swaps the planned file extension for the one the provider
// actually returned. Paths planned as .png stay .png for png results.
func applyFormat(job *model.Job, format string) {
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		return
	}
	ext := "." + format
	if filepath.Ext(job.Filename) == ext {
		return
	}
	job.Filename = strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename)) + ext
	job.OutputPath = strings.TrimSuffix(job.OutputPath, filepath.Ext(job.OutputPath)) + ext
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
