package segmentation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"wsiseg/internal/models"
)

// Metrics summarizes a run
type Metrics struct {
	// Patches is the number of grid cells visited
	Patches int `yaml:"patches"`

	// Gated counts cells filled with background without inference
	Gated int `yaml:"gated"`

	// Inferred counts cells sent through the chain
	Inferred int `yaml:"inferred"`

	// SkipFraction is Gated/Patches, filled in at the end of a run
	SkipFraction float64 `yaml:"skipRate"`

	// Truncated counts cells whose tissue window was cut off by the map edge
	Truncated int `yaml:"truncated"`

	// StageRuns counts, per stage, the cells on which that stage ran
	StageRuns []int `yaml:"stageRuns"`

	// TissueMean and TissueStdDev describe the tissue cell counts of the
	// inferred windows
	TissueMean   float64 `yaml:"tissueMean"`
	TissueStdDev float64 `yaml:"tissueStdDev"`

	// Variants has the class distribution of each mosaic
	Variants []ClassSummary `yaml:"variants"`

	Elapsed time.Duration `yaml:"elapsed"`
}

// ClassSummary is the class distribution of one mosaic
type ClassSummary struct {
	Name string `yaml:"name"`

	Classes []ClassCount `yaml:"classes"`

	// Entropy of the class distribution in nats
	Entropy float64 `yaml:"entropy"`
}

// ClassCount is the area of one class in a mosaic
type ClassCount struct {
	ID       int     `yaml:"id"`
	Pixels   int     `yaml:"pixels"`
	Fraction float64 `yaml:"fraction"`
}

func newMetrics(patches, stages int) Metrics {
	return Metrics{Patches: patches, StageRuns: make([]int, stages)}
}

// SkipRate is the share of cells that never reached a classifier
func (m Metrics) SkipRate() float64 {
	if m.Patches == 0 {
		return 0
	}
	return float64(m.Gated) / float64(m.Patches)
}

func (m *Metrics) summarizeTissue(counts []float64) {
	switch len(counts) {
	case 0:
		return
	case 1:
		m.TissueMean = counts[0]
		return
	}
	m.TissueMean, m.TissueStdDev = stat.MeanStdDev(counts, nil)
}

func summarizeClasses(name string, labels *models.LabelMap) ClassSummary {
	hist := labels.Histogram()
	total := float64(len(labels.Pix))

	s := ClassSummary{Name: name}
	var p []float64
	for id, n := range hist {
		if n == 0 {
			continue
		}
		f := float64(n) / total
		s.Classes = append(s.Classes, ClassCount{ID: id, Pixels: n, Fraction: f})
		p = append(p, f)
	}
	if len(p) > 0 {
		s.Entropy = math.Abs(stat.Entropy(p))
	}
	return s
}
