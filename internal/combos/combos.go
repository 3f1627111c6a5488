package combos

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"bulkgen/internal/model"
)

// Entry is one combination line from the source file. Identity is the
// trimmed text; OriginalIndex records the position in the file for display
// only.
type Entry struct {
	Text          string
	OriginalIndex int
}

// Set is the ordered collection of combination entries loaded from a file.
// Duplicate lines collapse onto their first occurrence, since entries are
// keyed by text.
type Set struct {
	entries []Entry
	index   map[string]int
}

func New(lines []string) *Set {
	s := &Set{index: make(map[string]int, len(lines))}
	for i, raw := range lines {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		if _, seen := s.index[text]; seen {
			continue
		}
		s.index[text] = len(s.entries)
		s.entries = append(s.entries, Entry{Text: text, OriginalIndex: i})
	}
	return s
}

// Load reads a combinations file: UTF-8, one entry per non-empty line,
// surrounding whitespace trimmed.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open combinations file %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read combinations file %s: %w", path, err)
	}
	return New(lines), nil
}

func (s *Set) Len() int { return len(s.entries) }

func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Set) Texts() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Text
	}
	return out
}

func (s *Set) Contains(text string) bool {
	_, ok := s.index[text]
	return ok
}

// Filter returns the entries whose text contains the filter string, with
// optional case folding. An empty filter matches everything.
func (s *Set) Filter(filter string, caseSensitive bool) []Entry {
	if strings.TrimSpace(filter) == "" {
		return s.Entries()
	}
	needle := filter
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}
	var out []Entry
	for _, e := range s.entries {
		haystack := e.Text
		if !caseSensitive {
			haystack = strings.ToLower(haystack)
		}
		if strings.Contains(haystack, needle) {
			out = append(out, e)
		}
	}
	return out
}

// Diff compares the set against a previously saved snapshot of combination
// texts. New texts are reported in file order, missing texts in snapshot
// order.
func (s *Set) Diff(snapshot []string) model.ReconcileReport {
	prev := make(map[string]bool, len(snapshot))
	for _, text := range snapshot {
		prev[strings.TrimSpace(text)] = true
	}

	var report model.ReconcileReport
	for _, e := range s.entries {
		if prev[e.Text] {
			report.Carried++
		} else {
			report.NewTexts = append(report.NewTexts, e.Text)
		}
	}
	for _, text := range snapshot {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if !s.Contains(text) {
			report.MissingTexts = append(report.MissingTexts, text)
		}
	}
	return report
}
