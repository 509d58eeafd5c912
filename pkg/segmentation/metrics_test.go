package segmentation

import (
	"math"
	"testing"

	"wsiseg/internal/models"
)

func TestSummarizeClasses(t *testing.T) {
	labels := models.NewLabelMap(2, 2)
	copy(labels.Pix, []uint8{0, 0, 3, 3})

	s := summarizeClasses("primary", labels)
	if len(s.Classes) != 2 {
		t.Fatalf("Expected 2 classes, got %d", len(s.Classes))
	}
	if s.Classes[0].ID != 0 || s.Classes[1].ID != 3 || s.Classes[1].Pixels != 2 {
		t.Errorf("Unexpected classes %+v", s.Classes)
	}
	if math.Abs(s.Entropy-math.Ln2) > 1e-9 {
		t.Errorf("Expected entropy ln 2, got %f", s.Entropy)
	}

	uniform := summarizeClasses("bg", models.NewLabelMap(3, 3))
	if uniform.Entropy != 0 {
		t.Errorf("Expected zero entropy for a single class, got %f", uniform.Entropy)
	}
}

func TestSummarizeTissue(t *testing.T) {
	var m Metrics
	m.summarizeTissue([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if m.TissueMean != 5 {
		t.Errorf("Expected mean 5, got %f", m.TissueMean)
	}
	// gonum returns the sample standard deviation
	if math.Abs(m.TissueStdDev-2.138089935) > 1e-6 {
		t.Errorf("Unexpected standard deviation %f", m.TissueStdDev)
	}

	m = Metrics{Patches: 4, Gated: 1}
	m.summarizeTissue([]float64{12})
	if m.TissueMean != 12 || m.TissueStdDev != 0 {
		t.Errorf("Unexpected single sample summary %+v", m)
	}
	if m.SkipRate() != 0.25 {
		t.Errorf("Expected skip rate 0.25, got %f", m.SkipRate())
	}
}
