package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"bulkgen/internal/combos"
	"bulkgen/internal/config"
	"bulkgen/internal/model"
)

func runSections(args []string) error {
	if len(args) == 0 {
		printSectionsUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runSectionsList(args[1:])
	case "add":
		return runSectionsAdd(args[1:])
	case "remove":
		return runSectionsRemove(args[1:])
	case "help", "-h", "--help":
		printSectionsUsage()
		return nil
	default:
		printSectionsUsage()
		return fmt.Errorf("unknown sections subcommand %q", args[0])
	}
}

func runSectionsList(args []string) error {
	fs := flag.NewFlagSet("sections list", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(doc.Bulk.Sections)
	}
	if len(doc.Bulk.Sections) == 0 {
		fmt.Println("no sections configured")
		return nil
	}
	for _, s := range doc.Bulk.Sections {
		fmt.Printf("%s  %s\n", s.ID, s.Name)
		fmt.Printf("  prompt: %s\n", s.PromptText)
		fmt.Printf("  members: %d\n", len(s.MemberTexts))
		for _, m := range s.MemberTexts {
			fmt.Printf("    - %s\n", m)
		}
	}
	return nil
}

func runSectionsAdd(args []string) error {
	fs := flag.NewFlagSet("sections add", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	name := fs.String("name", "", "section name")
	promptText := fs.String("prompt", "", "prompt text contributed by this section")
	members := fs.String("members", "", "comma-separated combination texts")
	memberFilter := fs.String("filter", "", "capture members by substring match against the combinations file")
	caseSensitive := fs.Bool("case-sensitive", false, "match --filter case sensitively")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("--name is required")
	}
	if strings.TrimSpace(*promptText) == "" {
		return errors.New("--prompt is required")
	}
	if strings.TrimSpace(*members) == "" && strings.TrimSpace(*memberFilter) == "" {
		return errors.New("set --members or --filter to define section membership")
	}

	path := strings.TrimSpace(*configPath)
	doc, err := config.Load(path)
	if err != nil {
		return err
	}
	if config.FindSection(doc.Bulk, strings.TrimSpace(*name)) >= 0 {
		return fmt.Errorf("section %q already exists", strings.TrimSpace(*name))
	}

	memberTexts := splitCSV(*members)
	if strings.TrimSpace(*memberFilter) != "" {
		if strings.TrimSpace(doc.Bulk.CombinationsPath) == "" {
			return errors.New("--filter needs a combinations file (config set --combinations)")
		}
		set, err := combos.Load(doc.Bulk.CombinationsPath)
		if err != nil {
			return err
		}
		for _, e := range set.Filter(strings.TrimSpace(*memberFilter), *caseSensitive) {
			memberTexts = append(memberTexts, e.Text)
		}
	}
	if len(memberTexts) == 0 {
		return errors.New("section would have no members")
	}

	section := model.Section{
		ID:          config.NewID(),
		Name:        strings.TrimSpace(*name),
		MemberTexts: dedupeStrings(memberTexts),
		PromptText:  strings.TrimSpace(*promptText),
	}
	doc.Bulk.Sections = append(doc.Bulk.Sections, section)
	if err := config.Save(path, doc); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(section)
	}
	fmt.Printf("added section %s (%s) with %d member(s)\n", section.Name, section.ID, len(section.MemberTexts))
	return nil
}

func runSectionsRemove(args []string) error {
	fs := flag.NewFlagSet("sections remove", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	ref := fs.String("name", "", "section name or id")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*ref) == "" {
		return errors.New("--name is required")
	}

	path := strings.TrimSpace(*configPath)
	doc, err := config.Load(path)
	if err != nil {
		return err
	}
	idx := config.FindSection(doc.Bulk, strings.TrimSpace(*ref))
	if idx < 0 {
		return fmt.Errorf("section %q not found", strings.TrimSpace(*ref))
	}
	removed := doc.Bulk.Sections[idx]
	doc.Bulk.Sections = append(doc.Bulk.Sections[:idx], doc.Bulk.Sections[idx+1:]...)
	if err := config.Save(path, doc); err != nil {
		return err
	}
	fmt.Printf("removed section %s (%s)\n", removed.Name, removed.ID)
	return nil
}

func printSectionsUsage() {
	fmt.Println("sections commands:")
	fmt.Println("  sections list")
	fmt.Println("  sections add --name <name> --prompt <text> (--members a,b,c | --filter <substring>)")
	fmt.Println("  sections remove --name <name-or-id>")
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
