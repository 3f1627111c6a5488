package runstore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bulkgen/internal/model"
)

// SidecarSuffix is appended to the combinations file path to name its run
// state artifact, keeping the association 1:1 and discoverable.
const SidecarSuffix = ".bulkrun.json"

// ErrNoState indicates the combinations file has no saved run state yet.
var ErrNoState = errors.New("no run state saved for combinations file")

// SidecarPath returns the run state path for a combinations file.
func SidecarPath(combinationsPath string) string {
	return combinationsPath + SidecarSuffix
}

// SaveState persists the full run state next to its combinations file.
func SaveState(st *model.RunState) error {
	path := strings.TrimSpace(st.Config.CombinationsPath)
	if path == "" {
		return fmt.Errorf("run state has no combinations path to key the sidecar on")
	}
	return WriteJSON(SidecarPath(path), st)
}

// LoadState loads the previously saved run state for a combinations file.
// Returns ErrNoState when no sidecar exists.
func LoadState(combinationsPath string) (*model.RunState, error) {
	path := SidecarPath(combinationsPath)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoState, combinationsPath)
		}
		return nil, fmt.Errorf("stat run state %s: %w", path, err)
	}

	var st model.RunState
	if err := ReadJSON(path, &st); err != nil {
		return nil, err
	}
	for _, j := range st.Jobs {
		if !model.IsKnownStatus(j.Status) {
			return nil, fmt.Errorf("run state %s has unknown job status %q", path, j.Status)
		}
	}
	st.RecomputeCounts()
	return &st, nil
}
