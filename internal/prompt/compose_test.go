package prompt

import (
	"testing"

	"bulkgen/internal/model"
)

func TestComposeOrderAndFilename(t *testing.T) {
	sections := []model.Section{
		{
			ID:          "s1",
			Name:        "Elves",
			MemberTexts: []string{"Elf_Ranger_Female", "Elf_Mage_Male"},
			PromptText:  "Elves are tall, slender...",
		},
	}
	layers := []model.CommonalityLayer{
		{ID: "l1", Name: "Ranger", FilterText: "Ranger", PromptSnippet: "Skilled archer..."},
		{ID: "l2", Name: "Female", FilterText: "Female", FilenameSuffix: "_fem", PromptSnippet: "Feminine facial features..."},
	}
	global := "detailed pixel art character..."

	got := Compose("Elf_Ranger_Female", sections, layers, global)

	wantPrompt := "Elf_Ranger_Female, Elves are tall, slender..., Skilled archer..., Feminine facial features..., detailed pixel art character..."
	if got.Prompt != wantPrompt {
		t.Fatalf("composed prompt mismatch:\nwant %q\ngot  %q", wantPrompt, got.Prompt)
	}
	if len(got.MatchedSuffixes) != 1 || got.MatchedSuffixes[0] != "_fem" {
		t.Fatalf("expected suffixes [_fem], got %v", got.MatchedSuffixes)
	}

	filename := BuildFilename(1, "", "Elf_Ranger_Female", got.MatchedSuffixes, ".png")
	if filename != "1_Elf_Ranger_Female_fem.png" {
		t.Fatalf("expected filename 1_Elf_Ranger_Female_fem.png, got %q", filename)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	sections := []model.Section{
		{ID: "s1", MemberTexts: []string{"a"}, PromptText: "section prompt"},
	}
	layers := []model.CommonalityLayer{
		{ID: "l1", FilterText: "a", PromptSnippet: "layer prompt", FilenameSuffix: "_x"},
	}

	first := Compose("a", sections, layers, "global")
	for i := 0; i < 50; i++ {
		again := Compose("a", sections, layers, "global")
		if again.Prompt != first.Prompt {
			t.Fatalf("iteration %d: prompt diverged: %q vs %q", i, again.Prompt, first.Prompt)
		}
		if len(again.MatchedSuffixes) != len(first.MatchedSuffixes) {
			t.Fatalf("iteration %d: suffixes diverged", i)
		}
	}
}

func TestComposeSkipsEmptyParts(t *testing.T) {
	got := Compose("combo", nil, nil, "")
	if got.Prompt != "combo" {
		t.Fatalf("expected bare combination text, got %q", got.Prompt)
	}

	sections := []model.Section{
		{ID: "s1", MemberTexts: []string{"combo"}, PromptText: "   "},
	}
	got = Compose("combo", sections, nil, "global")
	if got.Prompt != "combo, global" {
		t.Fatalf("blank section prompt must be skipped, got %q", got.Prompt)
	}
}

func TestComposeOverlappingSectionsAllContribute(t *testing.T) {
	sections := []model.Section{
		{ID: "s1", MemberTexts: []string{"combo"}, PromptText: "first"},
		{ID: "s2", MemberTexts: []string{"combo", "other"}, PromptText: "second"},
	}
	got := Compose("combo", sections, nil, "")
	if got.Prompt != "combo, first, second" {
		t.Fatalf("overlapping sections must concatenate in list order, got %q", got.Prompt)
	}
}

func TestLayerMatchesCaseSensitivity(t *testing.T) {
	insensitive := model.CommonalityLayer{FilterText: "ranger"}
	if !LayerMatches(insensitive, "Elf_Ranger_Female") {
		t.Fatalf("case-insensitive layer should match")
	}

	sensitive := model.CommonalityLayer{FilterText: "ranger", CaseSensitive: true}
	if LayerMatches(sensitive, "Elf_Ranger_Female") {
		t.Fatalf("case-sensitive layer must not match different case")
	}

	empty := model.CommonalityLayer{FilterText: ""}
	if LayerMatches(empty, "anything") {
		t.Fatalf("empty filter must never match")
	}
}

func TestSectionMatchesExactOnly(t *testing.T) {
	sec := model.Section{MemberTexts: []string{"Elf_Ranger_Female"}}
	if !SectionMatches(sec, "Elf_Ranger_Female") {
		t.Fatalf("exact member should match")
	}
	if SectionMatches(sec, "Elf_Ranger") {
		t.Fatalf("substring must not match section membership")
	}
}
