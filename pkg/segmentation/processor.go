// Package segmentation drives the patch grid: it gates every cell on the
// tissue map, runs the classifier chain on the cells that pass and
// stitches the results into label mosaics.
package segmentation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"wsiseg/internal/models"
	"wsiseg/pkg/chain"
	"wsiseg/pkg/mosaic"
	"wsiseg/pkg/slide"
	"wsiseg/pkg/tissue"
)

// Params holds the grid and class settings of a run
type Params struct {
	// Grid is the level 0 patch grid
	Grid slide.Grid

	// ModelPatchSize is the side of each mosaic cell and of the tissue
	// window read for it
	ModelPatchSize int

	// BackgroundClass fills gated-out cells and masked background pixels
	BackgroundClass uint8

	// Gate decides which cells are classified
	Gate tissue.Gate

	// EdgePolicy handles tissue windows cut off by the map edge
	EdgePolicy tissue.EdgePolicy
}

// Result holds the assembled mosaics of a run
type Result struct {
	// Mosaics has one label mosaic per chain stage: index 0 is the
	// primary-only mosaic, the last one includes every stage
	Mosaics []*models.LabelMap

	// Variants names each mosaic after its stage
	Variants []string

	Grid    slide.Grid
	Metrics Metrics
}

// Final returns the mosaic that includes every stage
func (r *Result) Final() *models.LabelMap {
	return r.Mosaics[len(r.Mosaics)-1]
}

// Processor runs one slide through the grid.
//
// The traversal is strictly sequential: rows top to bottom, columns left
// to right inside each row. Any error aborts the run and the partial
// mosaics are dropped.
type Processor struct {
	params    *Params
	tissue    *tissue.Map
	extractor slide.Extractor
	chain     *chain.Chain
	logger    zerolog.Logger

	metrics Metrics
}

// NewProcessor wires the collaborators of a run
func NewProcessor(params *Params, tissueMap *tissue.Map, extractor slide.Extractor, c *chain.Chain) (*Processor, error) {
	if err := params.Grid.Validate(); err != nil {
		return nil, err
	}
	if params.ModelPatchSize <= 0 {
		return nil, fmt.Errorf("model patch size must be positive, got %d", params.ModelPatchSize)
	}
	if tissueMap == nil || extractor == nil || c == nil {
		return nil, fmt.Errorf("processor needs a tissue map, an extractor and a classifier chain")
	}
	return &Processor{
		params:    params,
		tissue:    tissueMap,
		extractor: extractor,
		chain:     c,
		logger:    zerolog.Nop(),
	}, nil
}

// SetLogger replaces the default no-op logger
func (p *Processor) SetLogger(l zerolog.Logger) {
	p.logger = l
}

// Process runs the full grid and returns the mosaics
func (p *Processor) Process() (*Result, error) {
	grid := p.params.Grid
	size := p.params.ModelPatchSize
	edge := p.params.EdgePolicy.Resolve(p.chain.Len())

	stitcher, err := mosaic.New(grid.Columns, grid.Rows, size, p.chain.Len())
	if err != nil {
		return nil, err
	}

	background := p.chain.Background(size, p.params.BackgroundClass)
	p.metrics = newMetrics(grid.Cells(), p.chain.Len())
	tissueCounts := make([]float64, 0, grid.Cells())
	start := time.Now()

	p.logger.Info().
		Int("columns", grid.Columns).
		Int("rows", grid.Rows).
		Int("patchSize", grid.PatchSize).
		Int("modelPatchSize", size).
		Int("stages", p.chain.Len()).
		Str("edgePolicy", edge.String()).
		Str("origin", grid.Origin.String()).
		Msg("starting grid traversal")

	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Columns; col++ {
			win, err := p.tissue.Window(row, col, size, edge)
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}
			if win.Truncated() {
				p.metrics.Truncated++
				p.logger.Debug().
					Int("row", row).
					Int("col", col).
					Int("coveredX", win.Covered.X).
					Int("coveredY", win.Covered.Y).
					Msg("tissue window cut off by map edge")
			}

			if !p.params.Gate.Pass(win) {
				if err := stitcher.Place(row, col, background); err != nil {
					return nil, err
				}
				p.metrics.Gated++
				continue
			}
			if err := win.CheckEdge(edge); err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}

			patch, err := p.extractor.Extract(row, col)
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}
			outputs, trace, err := p.chain.Run(patch, win)
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}
			if err := stitcher.Place(row, col, outputs); err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}

			p.metrics.Inferred++
			for i := range p.metrics.StageRuns {
				if trace.Triggered(i) {
					p.metrics.StageRuns[i]++
				}
			}
			tissueCounts = append(tissueCounts, float64(win.TissueCount()))
		}

		p.logger.Debug().
			Int("row", row+1).
			Int("of", grid.Rows).
			Int("inferred", p.metrics.Inferred).
			Int("gated", p.metrics.Gated).
			Msg("row done")
	}

	if !stitcher.Complete() {
		return nil, fmt.Errorf("grid traversal left cells of the %dx%d mosaic unwritten", grid.Columns, grid.Rows)
	}

	p.metrics.Elapsed = time.Since(start)
	p.metrics.SkipFraction = p.metrics.SkipRate()
	p.metrics.summarizeTissue(tissueCounts)

	variants := make([]string, p.chain.Len())
	for i, s := range p.chain.Stages {
		variants[i] = s.Name
	}
	for i, m := range stitcher.Mosaics() {
		p.metrics.Variants = append(p.metrics.Variants, summarizeClasses(variants[i], m))
	}

	p.logger.Info().
		Int("inferred", p.metrics.Inferred).
		Int("gated", p.metrics.Gated).
		Int("truncated", p.metrics.Truncated).
		Float64("skipRate", p.metrics.SkipFraction).
		Dur("elapsed", p.metrics.Elapsed).
		Msg("grid traversal complete")

	return &Result{
		Mosaics:  stitcher.Mosaics(),
		Variants: variants,
		Grid:     grid,
		Metrics:  p.metrics,
	}, nil
}

// GetMetrics returns the metrics of the last Process call
func (p *Processor) GetMetrics() Metrics {
	return p.metrics
}
