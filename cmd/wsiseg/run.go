package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"wsiseg/pkg/chain"
	"wsiseg/pkg/config"
	"wsiseg/pkg/inference"
	"wsiseg/pkg/logging"
	"wsiseg/pkg/segmentation"
	"wsiseg/pkg/slide"
	"wsiseg/pkg/tissue"
	"wsiseg/pkg/visualization"
)

type runInputs struct {
	SlidePath  string
	ThumbPath  string
	TissuePath string
	OutputDir  string
}

type runSummary struct {
	Grid     slide.Grid
	Variants []string
	Metrics  segmentation.Metrics
	Files    []string
}

// run executes one slide end to end and writes every output file
func run(cfg *config.Config, in runInputs, logger zerolog.Logger) (*runSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s, err := slide.OpenImageSlide(in.SlidePath, in.ThumbPath)
	if err != nil {
		return nil, err
	}
	tissueMap, err := tissue.Load(in.TissuePath)
	if err != nil {
		return nil, err
	}

	grid, err := buildGrid(cfg, s)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("width", s.Dimensions().X).
		Int("height", s.Dimensions().Y).
		Int("columns", grid.Columns).
		Int("rows", grid.Rows).
		Str("device", cfg.Device).
		Msg("slide loaded")

	c, err := buildChain(cfg)
	if err != nil {
		return nil, err
	}

	var extractor slide.Extractor
	if cfg.Grid.Extractor == "array" {
		extractor, err = slide.NewArrayExtractor(s, grid)
		if err != nil {
			return nil, err
		}
	} else {
		extractor = slide.NewRegionExtractor(s, grid)
	}

	edge, err := tissue.ParseEdgePolicy(cfg.Gate.EdgePolicy)
	if err != nil {
		return nil, err
	}
	params := &segmentation.Params{
		Grid:            grid,
		ModelPatchSize:  cfg.Grid.ModelPatchSize,
		BackgroundClass: uint8(cfg.Classes.Background),
		Gate:            tissue.Gate{Threshold: cfg.Gate.Threshold},
		EdgePolicy:      edge,
	}
	processor, err := segmentation.NewProcessor(params, tissueMap, extractor, c)
	if err != nil {
		return nil, err
	}
	processor.SetLogger(logging.ForComponent(logger, "processor"))

	result, err := processor.Process()
	if err != nil {
		return nil, err
	}

	files, err := writeOutputs(cfg, s, result, in.OutputDir, logging.ForComponent(logger, "output"))
	if err != nil {
		return nil, err
	}

	return &runSummary{
		Grid:     grid,
		Variants: result.Variants,
		Metrics:  result.Metrics,
		Files:    files,
	}, nil
}

func buildGrid(cfg *config.Config, s slide.Slide) (slide.Grid, error) {
	origin, err := slide.ParseOriginPolicy(cfg.Grid.Origin)
	if err != nil {
		return slide.Grid{}, err
	}
	if cfg.Grid.Columns > 0 && cfg.Grid.Rows > 0 {
		g := slide.Grid{
			Columns:   cfg.Grid.Columns,
			Rows:      cfg.Grid.Rows,
			PatchSize: cfg.Grid.PatchSize,
			Origin:    origin,
		}
		return g, g.Validate()
	}
	return slide.GridFor(s.Dimensions(), cfg.Grid.PatchSize, origin)
}

// buildChain wires the built-in luminance model behind each configured
// classifier. Deployments with a model runtime substitute their own
// inference.Model here.
func buildChain(cfg *config.Config) (*chain.Chain, error) {
	normalizers := inference.NewNormalizers()

	primary, err := buildClassifier("primary", cfg.Models.Primary, cfg.Grid.ModelPatchSize, normalizers)
	if err != nil {
		return nil, err
	}
	back := uint8(cfg.Classes.Background)
	if !cfg.DualModel() {
		return chain.Single(primary, back)
	}

	secondary, err := buildClassifier("secondary", cfg.Models.Secondary, cfg.Grid.ModelPatchSize, normalizers)
	if err != nil {
		return nil, err
	}
	return chain.Dual(primary, secondary, back, uint8(cfg.Classes.Tumor), uint8(cfg.Classes.Shift))
}

func buildClassifier(name string, mc config.ModelConfig, size int, normalizers *inference.Normalizers) (*inference.Classifier, error) {
	normalize, err := normalizers.Lookup(mc.Encoder, mc.Weights)
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", name, err)
	}
	return inference.NewClassifier(name, inference.NewLuminanceModel(mc.Classes), normalize, size), nil
}

// writeOutputs saves, per mosaic variant, the raw labels and the colorized
// display image, then the overlay of the final mosaic and the metrics
func writeOutputs(cfg *config.Config, s slide.Slide, result *segmentation.Result, dir string, logger zerolog.Logger) ([]string, error) {
	table, err := visualization.ParseColorTable(cfg.Colors)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string
	var final image.Image
	for i, m := range result.Mosaics {
		name := result.Variants[i]

		labelsPath := filepath.Join(dir, fmt.Sprintf("labels_%s.tif", name))
		if err := visualization.SaveLabels(m, labelsPath); err != nil {
			return nil, err
		}
		files = append(files, labelsPath)

		colorized := visualization.Colorize(m, table)
		display, err := visualization.DisplayImage(colorized, result.Grid.Columns, result.Grid.Rows, cfg.Output.DisplayPatchSize)
		if err != nil {
			return nil, err
		}
		displayPath := filepath.Join(dir, fmt.Sprintf("classes_%s.png", name))
		if err := visualization.SaveImage(display, displayPath); err != nil {
			return nil, err
		}
		files = append(files, displayPath)
		logger.Debug().Str("variant", name).Str("file", displayPath).Msg("mosaic written")

		final = colorized
	}

	if cfg.Overlay.Enabled && final != nil {
		thumb, err := s.Thumbnail()
		if err != nil {
			return nil, err
		}
		overlay, err := visualization.Overlay(thumb, s.Dimensions(), result.Grid.Covered(), final, cfg.Overlay.Factor)
		if err != nil {
			return nil, fmt.Errorf("failed to build overlay: %w", err)
		}
		overlayPath := filepath.Join(dir, fmt.Sprintf("overlay_%s.png", result.Variants[len(result.Variants)-1]))
		if err := visualization.SaveImage(overlay, overlayPath); err != nil {
			return nil, err
		}
		files = append(files, overlayPath)
	}

	data, err := yaml.Marshal(result.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}
	metricsPath := filepath.Join(dir, "metrics.yaml")
	if err := os.WriteFile(metricsPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metrics: %w", err)
	}
	files = append(files, metricsPath)

	return files, nil
}
