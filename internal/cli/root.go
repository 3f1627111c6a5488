package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "plan":
		return runPlan(args[1:])
	case "run":
		return runGenerate(args[1:])
	case "status":
		return runStatus(args[1:])
	case "reset":
		return runReset(args[1:])
	case "sections":
		return runSections(args[1:])
	case "layers":
		return runLayers(args[1:])
	case "config":
		return runConfig(args[1:])
	case "manage":
		return runManage(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("bulkgen: bulk image generation orchestrator")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  bulkgen config set --combinations combos.txt --model deepai")
	fmt.Println("  bulkgen plan")
	fmt.Println("  bulkgen run")
	fmt.Println("  bulkgen status")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  plan      build/reconcile the job list from the combinations file")
	fmt.Println("  run       execute pending jobs sequentially, checkpointing each one")
	fmt.Println("  status    show run phase, counts, and per-job detail")
	fmt.Println("  reset     put errored (or selected) jobs back to pending")
	fmt.Println("  sections  manage prompt sections bound to exact combination sets")
	fmt.Println("  layers    manage commonality layers bound to substring filters")
	fmt.Println("  config    show/update the bulk configuration file")
	fmt.Println("  manage    interactive section/layer editor")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - During `run`, Ctrl+C pauses at the next job boundary; twice stops")
}
