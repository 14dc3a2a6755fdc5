package main

import (
	"fmt"
	"os"

	"screamplot/src/logging"
	"screamplot/src/pipeline"
)

// configPath is the optional override file next to the working directory;
// the tool itself takes no arguments.
const configPath = "screamplot.yaml"

func main() {
	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.LogLevel)

	res, err := pipeline.New(cfg).Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, pipeline.Describe(err))
		os.Exit(1)
	}

	fmt.Printf("Chart saved to %s (%d samples over %s, %d panels, %d loss events)\n",
		res.ArtifactPath, res.Samples, res.Span, res.Panels, res.LossEvents)
	if res.CleanedUp {
		fmt.Printf("Consumed log %s deleted.\n", cfg.InputPath)
	}
}
