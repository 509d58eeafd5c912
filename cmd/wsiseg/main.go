package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"wsiseg/pkg/config"
	"wsiseg/pkg/logging"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "wsiseg.yaml", "YAML configuration file (defaults are used if missing)")
	slidePath := flag.String("slide", "", "Full resolution slide image (TIFF, PNG or JPEG)")
	thumbPath := flag.String("thumb", "", "Reduced resolution slide image used for the overlay")
	tissuePath := flag.String("tissue", "", "Tissue detection map at model resolution (0 = tissue, 1 = background)")
	outputDir := flag.String("output", "wsiseg_output", "Directory for mosaics, images and metrics")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *slidePath == "" || *thumbPath == "" || *tissuePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := logging.Level(*verbose || cfg.Output.Verbose)
	var logger zerolog.Logger
	if cfg.Output.JSONLogs {
		logger = logging.New(os.Stderr, level)
	} else {
		logger = logging.NewConsole(level)
	}

	inputs := runInputs{
		SlidePath:  *slidePath,
		ThumbPath:  *thumbPath,
		TissuePath: *tissuePath,
		OutputDir:  *outputDir,
	}

	startTime := time.Now()
	summary, err := run(cfg, inputs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("segmentation failed")
	}

	fmt.Printf("\nSegmentation completed in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("Grid: %d x %d patches (%d classified, %d skipped as background)\n",
		summary.Grid.Columns, summary.Grid.Rows, summary.Metrics.Inferred, summary.Metrics.Gated)
	fmt.Printf("Skip rate: %.1f%% (%d edge windows)\n", 100*summary.Metrics.SkipRate(), summary.Metrics.Truncated)
	for i, n := range summary.Metrics.StageRuns {
		fmt.Printf("- stage %s ran on %d patches\n", summary.Variants[i], n)
	}
	fmt.Println("\nOutputs:")
	for _, f := range summary.Files {
		fmt.Printf("- %s\n", f)
	}
}
