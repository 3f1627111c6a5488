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

func runLayers(args []string) error {
	if len(args) == 0 {
		printLayersUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runLayersList(args[1:])
	case "add":
		return runLayersAdd(args[1:])
	case "remove":
		return runLayersRemove(args[1:])
	case "preview":
		return runLayersPreview(args[1:])
	case "help", "-h", "--help":
		printLayersUsage()
		return nil
	default:
		printLayersUsage()
		return fmt.Errorf("unknown layers subcommand %q", args[0])
	}
}

func runLayersList(args []string) error {
	fs := flag.NewFlagSet("layers list", flag.ContinueOnError)
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
		return printJSON(doc.Bulk.Layers)
	}
	if len(doc.Bulk.Layers) == 0 {
		fmt.Println("no layers configured")
		return nil
	}
	for _, l := range doc.Bulk.Layers {
		fmt.Printf("%s  %s\n", l.ID, l.Name)
		fmt.Printf("  filter: %q", l.FilterText)
		if l.CaseSensitive {
			fmt.Print(" (case sensitive)")
		}
		fmt.Println()
		fmt.Printf("  snippet: %s\n", l.PromptSnippet)
		if l.FilenameSuffix != "" {
			fmt.Printf("  suffix: %s\n", l.FilenameSuffix)
		}
	}
	return nil
}

func runLayersAdd(args []string) error {
	fs := flag.NewFlagSet("layers add", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	name := fs.String("name", "", "layer name")
	filter := fs.String("filter", "", "substring matched against combination texts")
	snippet := fs.String("snippet", "", "prompt snippet contributed on match")
	suffix := fs.String("suffix", "", "filename suffix appended on match")
	caseSensitive := fs.Bool("case-sensitive", false, "match case sensitively")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("--name is required")
	}
	if strings.TrimSpace(*filter) == "" {
		return errors.New("--filter is required")
	}
	if strings.TrimSpace(*snippet) == "" && strings.TrimSpace(*suffix) == "" {
		return errors.New("layer needs --snippet and/or --suffix to have any effect")
	}

	path := strings.TrimSpace(*configPath)
	doc, err := config.Load(path)
	if err != nil {
		return err
	}
	if config.FindLayer(doc.Bulk, strings.TrimSpace(*name)) >= 0 {
		return fmt.Errorf("layer %q already exists", strings.TrimSpace(*name))
	}

	layer := model.CommonalityLayer{
		ID:             config.NewID(),
		Name:           strings.TrimSpace(*name),
		FilterText:     strings.TrimSpace(*filter),
		CaseSensitive:  *caseSensitive,
		FilenameSuffix: strings.TrimSpace(*suffix),
		PromptSnippet:  strings.TrimSpace(*snippet),
	}
	doc.Bulk.Layers = append(doc.Bulk.Layers, layer)
	if err := config.Save(path, doc); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(layer)
	}
	fmt.Printf("added layer %s (%s)\n", layer.Name, layer.ID)
	return nil
}

func runLayersRemove(args []string) error {
	fs := flag.NewFlagSet("layers remove", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	ref := fs.String("name", "", "layer name or id")
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
	idx := config.FindLayer(doc.Bulk, strings.TrimSpace(*ref))
	if idx < 0 {
		return fmt.Errorf("layer %q not found", strings.TrimSpace(*ref))
	}
	removed := doc.Bulk.Layers[idx]
	doc.Bulk.Layers = append(doc.Bulk.Layers[:idx], doc.Bulk.Layers[idx+1:]...)
	if err := config.Save(path, doc); err != nil {
		return err
	}
	fmt.Printf("removed layer %s (%s)\n", removed.Name, removed.ID)
	return nil
}

// runLayersPreview shows which combinations a layer (or ad-hoc filter)
// would touch, without planning anything.
func runLayersPreview(args []string) error {
	fs := flag.NewFlagSet("layers preview", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	ref := fs.String("name", "", "layer name or id")
	filter := fs.String("filter", "", "ad-hoc substring filter instead of a saved layer")
	caseSensitive := fs.Bool("case-sensitive", false, "match --filter case sensitively")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	filterText := strings.TrimSpace(*filter)
	sensitive := *caseSensitive
	if strings.TrimSpace(*ref) != "" {
		idx := config.FindLayer(doc.Bulk, strings.TrimSpace(*ref))
		if idx < 0 {
			return fmt.Errorf("layer %q not found", strings.TrimSpace(*ref))
		}
		filterText = doc.Bulk.Layers[idx].FilterText
		sensitive = doc.Bulk.Layers[idx].CaseSensitive
	}
	if filterText == "" {
		return errors.New("set --name or --filter")
	}
	if strings.TrimSpace(doc.Bulk.CombinationsPath) == "" {
		return errors.New("combinations file not set (config set --combinations <path>)")
	}

	set, err := combos.Load(doc.Bulk.CombinationsPath)
	if err != nil {
		return err
	}
	matched := set.Filter(filterText, sensitive)
	if *jsonOut {
		texts := make([]string, 0, len(matched))
		for _, e := range matched {
			texts = append(texts, e.Text)
		}
		return printJSON(map[string]any{
			"filter":  filterText,
			"matched": texts,
			"total":   set.Len(),
		})
	}
	fmt.Printf("filter %q matches %d of %d combinations\n", filterText, len(matched), set.Len())
	for _, e := range matched {
		fmt.Printf("  %s\n", e.Text)
	}
	return nil
}

func printLayersUsage() {
	fmt.Println("layers commands:")
	fmt.Println("  layers list")
	fmt.Println("  layers add --name <name> --filter <substring> [--snippet <text>] [--suffix _tag] [--case-sensitive]")
	fmt.Println("  layers remove --name <name-or-id>")
	fmt.Println("  layers preview (--name <name-or-id> | --filter <substring>)")
}
