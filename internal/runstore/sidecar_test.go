package runstore

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"bulkgen/internal/model"
)

func sampleState(combosPath string) *model.RunState {
	st := &model.RunState{
		SchemaVersion: 1,
		RunID:         "01JTESTRUN",
		GeneratedAt:   "2026-01-02T03:04:05Z",
		Phase:         model.PhaseIdle,
		Config: model.BulkConfig{
			CombinationsPath:     combosPath,
			ModelID:              "mock",
			AspectRatio:          "1:1",
			ImagesPerCombination: 2,
			GlobalPrompt:         "pixel art",
			OutputDir:            "out",
			Sections: []model.Section{
				{ID: "s1", Name: "Elves", MemberTexts: []string{"Elf_Ranger_Female"}, PromptText: "Elves are tall"},
			},
			Layers: []model.CommonalityLayer{
				{ID: "l1", Name: "Female", FilterText: "Female", FilenameSuffix: "_fem", PromptSnippet: "Feminine"},
			},
		},
		CombinationSnapshot: []string{"Elf_Ranger_Female"},
		Jobs: []model.Job{
			{CombinationText: "Elf_Ranger_Female", IterationIndex: 1, Status: model.StatusDone, CompletedAt: "2026-01-02T03:05:00Z"},
			{CombinationText: "Elf_Ranger_Female", IterationIndex: 2, Status: model.StatusError, AttemptCount: 3, LastErrorMessage: "rate limited"},
		},
	}
	st.RecomputeCounts()
	return st
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	combosPath := filepath.Join(t.TempDir(), "combos.txt")
	st := sampleState(combosPath)

	if err := SaveState(st); err != nil {
		t.Fatalf("save state: %v", err)
	}

	loaded, err := LoadState(combosPath)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if !reflect.DeepEqual(st, loaded) {
		t.Fatalf("round trip mismatch:\nsaved  %+v\nloaded %+v", st, loaded)
	}
}

func TestLoadStateMissingSidecar(t *testing.T) {
	combosPath := filepath.Join(t.TempDir(), "combos.txt")
	if _, err := LoadState(combosPath); !errors.Is(err, ErrNoState) {
		t.Fatalf("expected ErrNoState, got %v", err)
	}
}

func TestLoadStateRejectsUnknownStatus(t *testing.T) {
	combosPath := filepath.Join(t.TempDir(), "combos.txt")
	st := sampleState(combosPath)
	st.Jobs[0].Status = "exploded"

	if err := WriteJSON(SidecarPath(combosPath), st); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadState(combosPath); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestCrashBetweenStageAndPromoteLeavesStateIntact(t *testing.T) {
	combosPath := filepath.Join(t.TempDir(), "combos.txt")
	st := sampleState(combosPath)
	if err := SaveState(st); err != nil {
		t.Fatalf("save state: %v", err)
	}

	// Simulate a crash after staging but before promotion: a stray temp
	// file is left behind and the promoted artifact was never replaced.
	stray := filepath.Join(filepath.Dir(combosPath), ".bulkgen-tmp-crash")
	if err := os.WriteFile(stray, []byte("{half-written"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadState(combosPath)
	if err != nil {
		t.Fatalf("load after simulated crash: %v", err)
	}
	if loaded.RunID != st.RunID || len(loaded.Jobs) != len(st.Jobs) {
		t.Fatalf("promoted state corrupted: %+v", loaded)
	}
}

func TestWriteBytesOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := WriteBytes(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteBytes(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Fatalf("expected overwritten content, got %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files must not survive a successful write: %d entries", len(entries))
	}
}
