package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"bulkgen/internal/config"
	"bulkgen/internal/model"
	"bulkgen/internal/runstore"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	statusFilter := fs.String("status", "", "only list jobs with this status: pending|in_progress|done|error")
	showJobs := fs.Bool("jobs", false, "list individual jobs")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := strings.TrimSpace(*statusFilter)
	if filter != "" && !model.IsKnownStatus(filter) {
		return fmt.Errorf("unknown status %q", filter)
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

	jobs := filterJobs(st.Jobs, filter)
	if *jsonOut {
		out := map[string]any{
			"run_id":  st.RunID,
			"phase":   st.Phase,
			"total":   st.Total,
			"pending": st.Pending,
			"done":    st.Done,
			"errored": st.Errored,
			"model":   st.Config.ModelID,
		}
		if *showJobs || filter != "" {
			out["jobs"] = jobs
		}
		return printJSON(out)
	}

	fmt.Printf("run_id: %s\n", st.RunID)
	fmt.Printf("phase: %s\n", st.Phase)
	fmt.Printf("model: %s\n", st.Config.ModelID)
	fmt.Printf("combinations: %d\n", len(st.CombinationSnapshot))
	fmt.Printf("jobs_total: %d\n", st.Total)
	fmt.Printf("pending: %d\n", st.Pending)
	fmt.Printf("done: %d\n", st.Done)
	fmt.Printf("errored: %d\n", st.Errored)

	if !*showJobs && filter == "" {
		if st.Errored > 0 {
			fmt.Println("hint: `bulkgen status --status error` to inspect failures")
		}
		return nil
	}
	if len(jobs) == 0 {
		fmt.Println("no matching jobs")
		return nil
	}
	fmt.Println()
	for _, j := range jobs {
		line := fmt.Sprintf("%-11s %s", j.Status, j.Filename)
		if j.New {
			line += "  (new)"
		}
		if j.Status == model.StatusError && j.LastErrorMessage != "" {
			line += "\n            " + j.LastErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

func filterJobs(jobs []model.Job, status string) []model.Job {
	if status == "" {
		return jobs
	}
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out
}
