package model

// Section binds a prompt fragment to an explicit set of combination texts.
// Membership is captured once at definition time and stored as exact
// strings, never as line indices, so reordering the source file cannot
// detach a section from its members.
type Section struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MemberTexts []string `json:"member_texts"`
	PromptText  string   `json:"prompt_text"`
}

// CommonalityLayer binds a prompt snippet and an optional filename suffix
// to a substring filter over combination texts.
type CommonalityLayer struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FilterText     string `json:"filter_text"`
	CaseSensitive  bool   `json:"case_sensitive,omitempty"`
	FilenameSuffix string `json:"filename_suffix,omitempty"`
	PromptSnippet  string `json:"prompt_snippet"`
}

// BulkConfig is the full run configuration snapshotted into the sidecar.
type BulkConfig struct {
	CombinationsPath     string             `json:"combinations_path"`
	Sections             []Section          `json:"sections,omitempty"`
	Layers               []CommonalityLayer `json:"layers,omitempty"`
	GlobalPrompt         string             `json:"global_prompt,omitempty"`
	NegativePrompt       string             `json:"negative_prompt,omitempty"`
	ModelID              string             `json:"model_id"`
	AspectRatio          string             `json:"aspect_ratio,omitempty"`
	ImagesPerCombination int                `json:"images_per_combination"`
	FilenamePrefix       string             `json:"filename_prefix,omitempty"`
	OutputDir            string             `json:"output_dir"`
	UseSubfolders        bool               `json:"use_subfolders,omitempty"`
	SubfolderExclusions  []string           `json:"subfolder_exclusions,omitempty"`
}

// Job is one image to generate for one (combination, iteration) pair.
type Job struct {
	CombinationText  string `json:"combination_text"`
	IterationIndex   int    `json:"iteration_index"`
	ComposedPrompt   string `json:"composed_prompt"`
	Filename         string `json:"filename"`
	OutputPath       string `json:"output_path"`
	Status           string `json:"status"`
	AttemptCount     int    `json:"attempt_count,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
	LastAttemptAt    string `json:"last_attempt_at,omitempty"`
	CompletedAt      string `json:"completed_at,omitempty"`

	// New marks a job whose combination was absent from the prior run
	// state. Display-only; it never affects scheduling.
	New bool `json:"new,omitempty"`
}

// JobKey is the stable identity of a job across replans. List position is
// deliberately not part of it.
type JobKey struct {
	CombinationText string
	IterationIndex  int
}

func (j Job) Key() JobKey {
	return JobKey{CombinationText: j.CombinationText, IterationIndex: j.IterationIndex}
}

// RunState is the canonical durable state of a run, persisted as a sidecar
// document next to the combinations file.
type RunState struct {
	SchemaVersion       int        `json:"schema_version"`
	RunID               string     `json:"run_id"`
	GeneratedAt         string     `json:"generated_at"`
	UpdatedAt           string     `json:"updated_at,omitempty"`
	Phase               string     `json:"phase"`
	Config              BulkConfig `json:"config"`
	CombinationSnapshot []string   `json:"combination_snapshot"`
	Cursor              int        `json:"cursor"`
	Total               int        `json:"total"`
	Pending             int        `json:"pending"`
	Done                int        `json:"done"`
	Errored             int        `json:"errored"`
	Jobs                []Job      `json:"jobs"`
}

// RecomputeCounts refreshes the aggregate counters and cursor from the job
// list. Cursor points at the first pending job, or len(Jobs) when none.
func (s *RunState) RecomputeCounts() {
	s.Total = len(s.Jobs)
	s.Pending = 0
	s.Done = 0
	s.Errored = 0
	s.Cursor = len(s.Jobs)
	for i, j := range s.Jobs {
		switch j.Status {
		case StatusPending:
			if s.Pending == 0 {
				s.Cursor = i
			}
			s.Pending++
		case StatusDone:
			s.Done++
		case StatusError:
			s.Errored++
		}
	}
}

// NextPending returns the index of the next pending job at or after the
// cursor, or -1 when none remain.
func (s *RunState) NextPending() int {
	for i := s.Cursor; i < len(s.Jobs); i++ {
		if s.Jobs[i].Status == StatusPending {
			return i
		}
	}
	return -1
}

// ReconcileReport describes how the current combinations file differs from
// the snapshot saved in a prior run state.
type ReconcileReport struct {
	NewTexts     []string `json:"new_texts,omitempty"`
	MissingTexts []string `json:"missing_texts,omitempty"`
	Carried      int      `json:"carried"`
}

func (r ReconcileReport) Clean() bool {
	return len(r.NewTexts) == 0 && len(r.MissingTexts) == 0
}
