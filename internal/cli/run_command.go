package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bulkgen/internal/combos"
	"bulkgen/internal/config"
	"bulkgen/internal/model"
	"bulkgen/internal/run"
	"bulkgen/internal/runstore"
)

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	resumeErrors := fs.Bool("resume-errors", false, "reset errored jobs to pending with a fresh retry budget")
	backoff := fs.Float64("backoff", -1, "seconds between retry attempts (-1 = default)")
	maxAttempts := fs.Int("max-attempts", 0, "consecutive failures before a job errors and the run pauses (0 = default)")
	progress := fs.Bool("progress", true, "show live progress line")
	jsonOut := fs.Bool("json", false, "print JSON summary")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	if err := config.Validate(doc.Bulk); err != nil {
		return err
	}

	st, err := runstore.LoadState(doc.Bulk.CombinationsPath)
	if err != nil {
		if errors.Is(err, runstore.ErrNoState) {
			return errors.New("no job plan found: run `bulkgen plan` first")
		}
		return err
	}

	switch st.Phase {
	case model.PhaseCompleted:
		if st.Pending == 0 {
			fmt.Println("run already completed; `bulkgen plan` to pick up file changes or `bulkgen reset` to regenerate")
			return nil
		}
	case model.PhaseStopped:
		return errors.New("run was stopped; `bulkgen plan` to start a fresh plan")
	case model.PhasePausedOnError:
		if !*resumeErrors {
			return fmt.Errorf("run is paused on error (%d errored job(s)); rerun with --resume-errors to retry them", st.Errored)
		}
	}

	warnOnFileDrift(st)

	if *resumeErrors {
		if n := run.ResetErroredJobs(st); n > 0 {
			fmt.Printf("reset %d errored job(s) to pending\n", n)
		}
	}
	if st.Pending == 0 {
		if st.Errored > 0 {
			return fmt.Errorf("%d errored job(s) and nothing pending; rerun with --resume-errors", st.Errored)
		}
		fmt.Println("nothing pending")
		return nil
	}

	policy := run.DefaultRetryPolicy()
	if *maxAttempts > 0 {
		policy.MaxAttempts = *maxAttempts
	}
	if *backoff >= 0 {
		policy.Backoff = time.Duration(*backoff * float64(time.Second))
	}

	live := liveProgress{enabled: *progress && stdinIsTTY()}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctrl, err := run.NewController(st, run.Options{
		Policy: policy,
		OnEvent: func(ev model.ProgressEvent) {
			if live.enabled {
				live.Handle(ev)
				return
			}
			logEvent(logger, ev)
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()
	go func() {
		interrupts := 0
		for range sigCh {
			interrupts++
			switch interrupts {
			case 1:
				fmt.Fprintln(os.Stderr, "\npausing at next job boundary (Ctrl+C again to stop)")
				ctrl.Pause()
			case 2:
				fmt.Fprintln(os.Stderr, "stopping at next job boundary (Ctrl+C again to abort)")
				ctrl.Stop()
			default:
				cancel()
			}
		}
	}()

	if err := ctrl.Run(ctx); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"run_id":  st.RunID,
			"phase":   st.Phase,
			"total":   st.Total,
			"pending": st.Pending,
			"done":    st.Done,
			"errored": st.Errored,
		})
	}
	fmt.Println("run summary")
	fmt.Printf("run_id: %s\n", st.RunID)
	fmt.Printf("phase: %s\n", st.Phase)
	fmt.Printf("done: %d/%d\n", st.Done, st.Total)
	fmt.Printf("pending: %d\n", st.Pending)
	fmt.Printf("errored: %d\n", st.Errored)
	switch st.Phase {
	case model.PhasePaused:
		fmt.Println("next: rerun `bulkgen run` to continue")
	case model.PhasePausedOnError:
		fmt.Println("next: fix the cause, then `bulkgen run --resume-errors`")
	}
	return nil
}

func logEvent(logger *slog.Logger, ev model.ProgressEvent) {
	attrs := []any{
		"job", fmt.Sprintf("%d/%d", ev.JobIndex+1, ev.TotalJobs),
		"combination", ev.CombinationText,
	}
	if ev.IterationIndex > 1 {
		attrs = append(attrs, "iteration", ev.IterationIndex)
	}
	switch ev.Phase {
	case model.EventStarted:
		logger.Info("job started", attrs...)
	case model.EventDone:
		logger.Info("job done", append(attrs, "file", ev.Message)...)
	case model.EventError:
		logger.Warn("attempt failed", append(attrs, "attempt", ev.Attempt, "error", ev.Message)...)
	case model.EventPaused:
		logger.Info("run paused")
	case model.EventPausedOnError:
		logger.Error("run paused on error", "detail", ev.Message)
	case model.EventStopped:
		logger.Info("run stopped")
	case model.EventCompleted:
		logger.Info("run completed", "jobs", ev.TotalJobs)
	}
}

// warnOnFileDrift tells the user when the combinations file no longer
// matches the planned snapshot. The run keeps executing the planned jobs;
// a replan folds the edits in.
func warnOnFileDrift(st *model.RunState) {
	set, err := combos.Load(st.Config.CombinationsPath)
	if err != nil {
		return
	}
	report := set.Diff(st.CombinationSnapshot)
	if report.Clean() {
		return
	}
	fmt.Fprintf(os.Stderr, "note: combinations file changed since plan (%d new, %d removed); `bulkgen plan` to reconcile\n",
		len(report.NewTexts), len(report.MissingTexts))
}
