package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"bulkgen/internal/combos"
	"bulkgen/internal/config"
	"bulkgen/internal/model"
	"bulkgen/internal/planner"
	"bulkgen/internal/runstore"
)

func runPlan(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	combinations := fs.String("combinations", "", "combinations file (overrides config)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	if strings.TrimSpace(*combinations) != "" {
		doc.Bulk.CombinationsPath = strings.TrimSpace(*combinations)
	}
	if err := config.Validate(doc.Bulk); err != nil {
		return err
	}

	lock, err := runstore.AcquireRunLock(doc.Bulk.CombinationsPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release()
	}()

	set, err := combos.Load(doc.Bulk.CombinationsPath)
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		return fmt.Errorf("combinations file %s has no usable entries", doc.Bulk.CombinationsPath)
	}

	prior, err := runstore.LoadState(doc.Bulk.CombinationsPath)
	if err != nil && !errors.Is(err, runstore.ErrNoState) {
		return err
	}

	plan := planner.Build(set, doc.Bulk, prior)
	runID := config.NewID()
	if prior != nil && strings.TrimSpace(prior.RunID) != "" {
		runID = prior.RunID
	}
	st := planner.NewState(runID, doc.Bulk, set, plan, time.Now().UTC().Format(time.RFC3339))
	if err := runstore.SaveState(st); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"run_id":       st.RunID,
			"sidecar":      runstore.SidecarPath(doc.Bulk.CombinationsPath),
			"total":        st.Total,
			"pending":      st.Pending,
			"done":         st.Done,
			"errored":      st.Errored,
			"combinations": set.Len(),
			"reconcile":    plan.Report,
		})
	}

	fmt.Printf("run_id: %s\n", st.RunID)
	fmt.Printf("sidecar: %s\n", runstore.SidecarPath(doc.Bulk.CombinationsPath))
	fmt.Printf("combinations: %d\n", set.Len())
	fmt.Printf("jobs_total: %d\n", st.Total)
	fmt.Printf("pending: %d\n", st.Pending)
	fmt.Printf("done: %d\n", st.Done)
	fmt.Printf("errored: %d\n", st.Errored)
	printReconcile(plan.Report)
	if st.Pending > 0 {
		fmt.Println("next: `bulkgen run` to start generating")
	}
	return nil
}

func printReconcile(r model.ReconcileReport) {
	if r.Clean() {
		if r.Carried > 0 {
			fmt.Printf("carried_from_previous: %d\n", r.Carried)
		}
		return
	}
	if len(r.NewTexts) > 0 {
		fmt.Printf("new_combinations: %d\n", len(r.NewTexts))
		for _, t := range r.NewTexts {
			fmt.Printf("  + %s\n", t)
		}
	}
	if len(r.MissingTexts) > 0 {
		fmt.Printf("removed_combinations: %d\n", len(r.MissingTexts))
		for _, t := range r.MissingTexts {
			fmt.Printf("  - %s\n", t)
		}
	}
	fmt.Printf("carried_from_previous: %d\n", r.Carried)
}
