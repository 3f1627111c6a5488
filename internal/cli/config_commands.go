package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"bulkgen/internal/config"
)

func runConfig(args []string) error {
	if len(args) == 0 {
		printConfigUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runConfigShow(args[1:])
	case "set":
		return runConfigSet(args[1:])
	case "help", "-h", "--help":
		printConfigUsage()
		return nil
	default:
		printConfigUsage()
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func runConfigShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*configPath)
	doc, err := config.Load(path)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": path,
			"bulk":        doc.Bulk,
		})
	}

	b := doc.Bulk
	fmt.Printf("config: %s\n", path)
	fmt.Printf("combinations: %s\n", orNone(b.CombinationsPath))
	fmt.Printf("model: %s\n", b.ModelID)
	fmt.Printf("aspect_ratio: %s\n", orNone(b.AspectRatio))
	fmt.Printf("images_per_combination: %d\n", b.ImagesPerCombination)
	fmt.Printf("global_prompt: %s\n", orNone(b.GlobalPrompt))
	fmt.Printf("negative_prompt: %s\n", orNone(b.NegativePrompt))
	fmt.Printf("filename_prefix: %s\n", orNone(b.FilenamePrefix))
	fmt.Printf("output_dir: %s\n", b.OutputDir)
	fmt.Printf("use_subfolders: %t\n", b.UseSubfolders)
	if len(b.SubfolderExclusions) > 0 {
		fmt.Printf("subfolder_exclusions: %s\n", strings.Join(b.SubfolderExclusions, ", "))
	}
	fmt.Printf("sections: %d\n", len(b.Sections))
	fmt.Printf("layers: %d\n", len(b.Layers))
	return nil
}

func runConfigSet(args []string) error {
	fs := flag.NewFlagSet("config set", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	combinations := fs.String("combinations", "", "combinations file path (empty keeps current)")
	modelID := fs.String("model", "", "model id: deepai|gemini-*|imagen-*|dall-e-*|gpt-image-*|mock (empty keeps current)")
	aspectRatio := fs.String("aspect-ratio", "", "aspect ratio like 1:1 or 16:9 (empty keeps current)")
	images := fs.Int("images", -1, "images per combination (>=1, -1 keeps current)")
	globalPrompt := fs.String("global-prompt", "\x00", "prompt appended to every composition")
	negativePrompt := fs.String("negative-prompt", "\x00", "negative prompt passed to the provider")
	prefix := fs.String("prefix", "\x00", "filename prefix")
	outputDir := fs.String("output-dir", "", "output directory (empty keeps current)")
	subfolders := fs.String("subfolders", "", "per-combination subfolders: on|off (empty keeps current)")
	exclusions := fs.String("subfolder-exclusions", "\x00", "comma-separated tokens dropped from subfolder names")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*configPath)
	doc, err := config.Load(path)
	if err != nil {
		return err
	}

	if strings.TrimSpace(*combinations) != "" {
		doc.Bulk.CombinationsPath = strings.TrimSpace(*combinations)
	}
	if strings.TrimSpace(*modelID) != "" {
		doc.Bulk.ModelID = strings.TrimSpace(*modelID)
	}
	if strings.TrimSpace(*aspectRatio) != "" {
		doc.Bulk.AspectRatio = strings.TrimSpace(*aspectRatio)
	}
	if *images != -1 {
		if *images < 1 {
			return errors.New("--images must be >= 1")
		}
		doc.Bulk.ImagesPerCombination = *images
	}
	if *globalPrompt != "\x00" {
		doc.Bulk.GlobalPrompt = *globalPrompt
	}
	if *negativePrompt != "\x00" {
		doc.Bulk.NegativePrompt = *negativePrompt
	}
	if *prefix != "\x00" {
		doc.Bulk.FilenamePrefix = *prefix
	}
	if strings.TrimSpace(*outputDir) != "" {
		doc.Bulk.OutputDir = strings.TrimSpace(*outputDir)
	}
	if strings.TrimSpace(*subfolders) != "" {
		switch strings.ToLower(strings.TrimSpace(*subfolders)) {
		case "on", "true", "yes":
			doc.Bulk.UseSubfolders = true
		case "off", "false", "no":
			doc.Bulk.UseSubfolders = false
		default:
			return errors.New("--subfolders must be on or off")
		}
	}
	if *exclusions != "\x00" {
		doc.Bulk.SubfolderExclusions = splitCSV(*exclusions)
	}

	if err := config.Save(path, doc); err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": path,
			"bulk":        doc.Bulk,
		})
	}
	fmt.Printf("updated %s\n", path)
	return nil
}

func printConfigUsage() {
	fmt.Println("config commands:")
	fmt.Println("  config show")
	fmt.Println("  config set [--combinations <path>] [--model <id>] [--images N]")
	fmt.Println("             [--global-prompt <text>] [--negative-prompt <text>]")
	fmt.Println("             [--aspect-ratio 1:1] [--prefix <text>] [--output-dir <path>]")
	fmt.Println("             [--subfolders on|off] [--subfolder-exclusions a,b]")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
