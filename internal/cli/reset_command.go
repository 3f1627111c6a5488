package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"bulkgen/internal/config"
	"bulkgen/internal/model"
	"bulkgen/internal/run"
	"bulkgen/internal/runstore"
)

func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	onlyErrors := fs.Bool("errors", false, "reset only errored jobs")
	all := fs.Bool("all", false, "reset every job for full regeneration")
	combination := fs.String("combination", "", "reset jobs for one combination text")
	yes := fs.Bool("yes", false, "skip confirmation")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	selected := 0
	if *onlyErrors {
		selected++
	}
	if *all {
		selected++
	}
	if strings.TrimSpace(*combination) != "" {
		selected++
	}
	if selected != 1 {
		return errors.New("pick exactly one of --errors, --all, or --combination <text>")
	}

	doc, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	st, err := runstore.LoadState(doc.Bulk.CombinationsPath)
	if err != nil {
		if errors.Is(err, runstore.ErrNoState) {
			return errors.New("no job plan found: run `bulkgen plan` first")
		}
		return err
	}

	lock, err := runstore.AcquireRunLock(doc.Bulk.CombinationsPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release()
	}()

	var reset int
	switch {
	case *onlyErrors:
		reset = run.ResetErroredJobs(st)
	case *all:
		if !*yes {
			ok, err := promptConfirm(fmt.Sprintf("reset all %d jobs and regenerate everything? [y/N] ", st.Total))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("aborted")
				return nil
			}
		}
		reset = run.ResetJobs(st, nil)
	default:
		text := strings.TrimSpace(*combination)
		reset = run.ResetJobs(st, func(j model.Job) bool {
			return j.CombinationText == text
		})
		if reset == 0 {
			return fmt.Errorf("no jobs found for combination %q", text)
		}
	}

	if err := runstore.SaveState(st); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"reset":   reset,
			"pending": st.Pending,
			"phase":   st.Phase,
		})
	}
	fmt.Printf("reset: %d\n", reset)
	fmt.Printf("pending: %d\n", st.Pending)
	if st.Pending > 0 {
		fmt.Println("next: `bulkgen run` to regenerate")
	}
	return nil
}
