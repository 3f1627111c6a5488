package prompt

import (
	"strings"

	"bulkgen/internal/model"
)

// promptSeparator joins prompt parts into the final string.
const promptSeparator = ", "

// SectionMatches reports whether the section's member set contains the
// combination text. Membership is exact string equality.
func SectionMatches(sec model.Section, combinationText string) bool {
	for _, member := range sec.MemberTexts {
		if member == combinationText {
			return true
		}
	}
	return false
}

// LayerMatches reports whether the layer's filter text occurs as a
// substring of the combination text, folding case unless the layer is
// case sensitive. An empty filter never matches.
func LayerMatches(layer model.CommonalityLayer, combinationText string) bool {
	filter := layer.FilterText
	haystack := combinationText
	if !layer.CaseSensitive {
		filter = strings.ToLower(filter)
		haystack = strings.ToLower(haystack)
	}
	if filter == "" {
		return false
	}
	return strings.Contains(haystack, filter)
}

// Composed is the result of composing one combination's prompt.
type Composed struct {
	Prompt          string
	MatchedSuffixes []string
}

// Compose builds the final prompt for one combination by concatenating, in
// order: the combination text, each matching section's prompt (section list
// order), each matching layer's snippet (layer list order), and the global
// prompt. Empty parts are skipped. Pure: identical inputs always produce
// identical output.
func Compose(combinationText string, sections []model.Section, layers []model.CommonalityLayer, globalPrompt string) Composed {
	parts := make([]string, 0, 2+len(sections)+len(layers))
	appendPart := func(p string) {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}

	appendPart(combinationText)
	for _, sec := range sections {
		if SectionMatches(sec, combinationText) {
			appendPart(sec.PromptText)
		}
	}

	var suffixes []string
	for _, layer := range layers {
		if !LayerMatches(layer, combinationText) {
			continue
		}
		appendPart(layer.PromptSnippet)
		if layer.FilenameSuffix != "" {
			suffixes = append(suffixes, layer.FilenameSuffix)
		}
	}
	appendPart(globalPrompt)

	return Composed{
		Prompt:          strings.Join(parts, promptSeparator),
		MatchedSuffixes: suffixes,
	}
}
