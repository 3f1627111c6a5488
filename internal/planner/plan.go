package planner

import (
	"path/filepath"

	"bulkgen/internal/combos"
	"bulkgen/internal/model"
	"bulkgen/internal/prompt"
)

// DefaultExtension is used at plan time; the executor may swap it for the
// provider-reported format when the image is written.
const DefaultExtension = ".png"

// Plan is an ordered job list plus the reconciliation diagnostics produced
// while merging a prior run state.
type Plan struct {
	Jobs   []model.Job
	Report model.ReconcileReport
}

// Build expands the combination set into the full cross product of
// entries x 1..ImagesPerCombination, in combination-then-iteration order.
// When prior is non-nil, each planned job inherits status, attempt count
// and last error from the prior job with the same (text, iteration)
// identity; combinations present only in prior are dropped and reported
// missing; combinations absent from prior are flagged new.
func Build(set *combos.Set, cfg model.BulkConfig, prior *model.RunState) Plan {
	iterations := cfg.ImagesPerCombination
	if iterations <= 0 {
		iterations = 1
	}

	priorJobs := make(map[model.JobKey]model.Job)
	var report model.ReconcileReport
	if prior != nil {
		for _, j := range prior.Jobs {
			priorJobs[j.Key()] = j
		}
		report = set.Diff(prior.CombinationSnapshot)
	}
	newTexts := make(map[string]bool, len(report.NewTexts))
	for _, text := range report.NewTexts {
		newTexts[text] = true
	}

	jobs := make([]model.Job, 0, set.Len()*iterations)
	for _, entry := range set.Entries() {
		composed := prompt.Compose(entry.Text, cfg.Sections, cfg.Layers, cfg.GlobalPrompt)
		for iter := 1; iter <= iterations; iter++ {
			filename := prompt.BuildFilename(iter, cfg.FilenamePrefix, entry.Text, composed.MatchedSuffixes, DefaultExtension)
			job := model.Job{
				CombinationText: entry.Text,
				IterationIndex:  iter,
				ComposedPrompt:  composed.Prompt,
				Filename:        filename,
				OutputPath:      outputPath(cfg, entry.Text, filename),
				Status:          model.StatusPending,
				New:             prior != nil && newTexts[entry.Text],
			}
			if old, ok := priorJobs[job.Key()]; ok {
				job.Status = carriedStatus(old.Status)
				job.AttemptCount = old.AttemptCount
				job.LastErrorMessage = old.LastErrorMessage
				job.LastAttemptAt = old.LastAttemptAt
				job.CompletedAt = old.CompletedAt
				if job.Status == model.StatusDone && old.OutputPath != "" {
					job.OutputPath = old.OutputPath
					job.Filename = old.Filename
				}
			}
			jobs = append(jobs, job)
		}
	}

	return Plan{Jobs: jobs, Report: report}
}

// outputPath joins the output directory, the optional subfolder, and the
// filename.
func outputPath(cfg model.BulkConfig, combinationText, filename string) string {
	dir := cfg.OutputDir
	if cfg.UseSubfolders {
		dir = filepath.Join(dir, prompt.SubfolderName(combinationText, cfg.SubfolderExclusions))
	}
	return filepath.Join(dir, filename)
}

// carriedStatus maps a persisted status onto a schedulable one. A job that
// was mid-flight when the process died is re-planned as pending; done and
// error are carried as-is.
func carriedStatus(status string) string {
	switch status {
	case model.StatusDone, model.StatusError:
		return status
	default:
		return model.StatusPending
	}
}

// NewState wraps a plan into a fresh RunState ready to persist.
func NewState(runID string, cfg model.BulkConfig, set *combos.Set, p Plan, now string) *model.RunState {
	st := &model.RunState{
		SchemaVersion:       1,
		RunID:               runID,
		GeneratedAt:         now,
		Phase:               model.PhaseIdle,
		Config:              cfg,
		CombinationSnapshot: set.Texts(),
		Jobs:                p.Jobs,
	}
	st.RecomputeCounts()
	return st
}
