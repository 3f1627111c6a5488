package prompt

import "testing"

func TestBuildFilenameWithPrefix(t *testing.T) {
	got := BuildFilename(3, "MyProject_", "Dwarf_Warrior", []string{"_male"}, "png")
	if got != "3_MyProject_Dwarf_Warrior_male.png" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestBuildFilenameSanitizesIllegalCharacters(t *testing.T) {
	got := BuildFilename(1, "", `Orc/Shaman:v2?`, nil, ".png")
	if got != "1_Orc_Shaman_v2_.png" {
		t.Fatalf("unexpected sanitized filename %q", got)
	}
}

func TestBuildFilenamePreservesCase(t *testing.T) {
	got := BuildFilename(1, "", "ElF_RaNgEr", nil, ".png")
	if got != "1_ElF_RaNgEr.png" {
		t.Fatalf("case must be preserved, got %q", got)
	}
}

func TestSubfolderName(t *testing.T) {
	cases := []struct {
		text       string
		exclusions []string
		want       string
	}{
		{"Elf_Ranger_Female", []string{"female", "male"}, "Elf_Ranger"},
		{"Elf_Ranger_Female", nil, "Elf_Ranger_Female"},
		{"Female_Male", []string{"female", "male"}, DefaultSubfolder},
		{"Elf__Ranger", nil, "Elf_Ranger"},
		{"Elf_Ranger!", nil, "Elf_Ranger"},
	}
	for _, tc := range cases {
		if got := SubfolderName(tc.text, tc.exclusions); got != tc.want {
			t.Fatalf("SubfolderName(%q, %v) = %q, want %q", tc.text, tc.exclusions, got, tc.want)
		}
	}
}
