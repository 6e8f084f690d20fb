package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cortexgeom/pkg/config"
	"cortexgeom/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	jobFile := flag.String("jobs", "", "YAML job document with meshes and tasks")
	configPath := flag.String("config", "config.yaml", "Configuration file (defaults are used if it does not exist)")
	outputPath := flag.String("output", "results.yaml", "Output results file")
	numCores := flag.Int("cores", 0, "Number of tasks to run in parallel (default: value from config)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *jobFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}

	fmt.Println("================================")
	fmt.Println("CORTICAL SURFACE GEOMETRY")
	fmt.Println("Geodesic paths, point sequencing and patch bridging")
	fmt.Println("================================")

	params := &pipeline.Params{
		JobFile:       *jobFile,
		OutputFile:    *outputPath,
		StlDir:        cfg.Output.StlDir,
		NumCores:      cfg.Processing.NumCores,
		Weights:       cfg.Weights(),
		SearchOptions: cfg.SearchOptions(),
		BridgeOptions: cfg.BridgeOptions(),
		Verbose:       cfg.Output.Verbose,
	}

	runner := pipeline.NewRunner(params)

	startTime := time.Now()
	if err := runner.Process(); err != nil {
		log.Fatalf("Processing failed: %v", err)
	}
	processingTime := time.Since(startTime)

	results := runner.Results()
	fmt.Printf("\nCompleted in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("Results saved to: %s\n\n", *outputPath)

	fmt.Printf("Paths:     %d\n", len(results.Paths))
	fmt.Printf("Curves:    %d\n", len(results.Curves))
	fmt.Printf("Sequences: %d\n", len(results.Sequences))
	fmt.Printf("Bridges:   %d\n", len(results.Bridges))

	if failed := results.Failed(); failed > 0 {
		fmt.Printf("\n%d tasks failed; see the error fields in %s\n", failed, *outputPath)
		os.Exit(2)
	}
}
