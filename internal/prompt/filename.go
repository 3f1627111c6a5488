package prompt

import (
	"strconv"
	"strings"
)

// DefaultSubfolder is used when exclusion keywords strip a combination text
// down to nothing.
const DefaultSubfolder = "Uncategorized"

// BuildFilename produces the output filename for one job:
// {iteration}_{prefix}{combination}{suffixes}{ext}. The prefix is omitted
// when empty; layer suffixes are appended verbatim in layer list order.
// Path-illegal characters are replaced without altering letter case.
func BuildFilename(iteration int, prefix, combinationText string, suffixes []string, ext string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(iteration))
	b.WriteString("_")
	b.WriteString(prefix)
	b.WriteString(combinationText)
	for _, s := range suffixes {
		b.WriteString(s)
	}
	name := sanitizeFilename(b.String())
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return name + ext
}

// SubfolderName derives a subfolder from the combination text by removing
// every exclusion keyword as a whole underscore-delimited token,
// case-insensitively, then trimming residual separators.
func SubfolderName(combinationText string, exclusions []string) string {
	excluded := make(map[string]bool, len(exclusions))
	for _, kw := range exclusions {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			excluded[kw] = true
		}
	}

	var kept []string
	for _, token := range strings.Split(combinationText, "_") {
		if token == "" {
			continue
		}
		if excluded[strings.ToLower(token)] {
			continue
		}
		kept = append(kept, token)
	}

	name := sanitizeSubfolder(strings.Join(kept, "_"))
	name = strings.Trim(name, "_-")
	if name == "" {
		return DefaultSubfolder
	}
	return name
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20:
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sanitizeSubfolder(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
