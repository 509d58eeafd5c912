// Package chain runs an ordered sequence of classifiers on a patch. Each
// stage may be gated on the previous stage's labels and remaps its own
// output into the shared label namespace.
package chain

import (
	"fmt"
	"image"

	"wsiseg/internal/models"
	"wsiseg/pkg/inference"
	"wsiseg/pkg/tissue"
)

// Trigger decides from the previous stage's labels whether a stage runs
type Trigger func(prev *models.LabelMap) bool

// Remap combines a stage's raw labels with the previous stage's output.
// prev is nil for the first stage.
type Remap func(prev, out *models.LabelMap, win *tissue.Window) (*models.LabelMap, error)

// Stage is one classifier in a chain
type Stage struct {
	Name       string
	Classifier inference.Labeler

	// Trigger is nil for stages that always run
	Trigger Trigger

	// Remap is nil for stages whose raw labels are used as is
	Remap Remap
}

// Chain is an ordered list of stages. A chain of length one is the
// single-classifier flow.
type Chain struct {
	Stages []Stage
}

// New builds a chain; the first stage must not have a trigger
func New(stages ...Stage) (*Chain, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("chain needs at least one stage")
	}
	if stages[0].Trigger != nil {
		return nil, fmt.Errorf("first stage %q cannot have a trigger", stages[0].Name)
	}
	for i, s := range stages {
		if s.Classifier == nil {
			return nil, fmt.Errorf("stage %d (%s) has no classifier", i, s.Name)
		}
	}
	return &Chain{Stages: stages}, nil
}

// Len returns the number of stages, which is also the number of outputs
// per patch
func (c *Chain) Len() int {
	return len(c.Stages)
}

// Trace records which stages ran on a patch
type Trace struct {
	Ran []bool
}

// Triggered reports whether stage i ran
func (t Trace) Triggered(i int) bool {
	return i < len(t.Ran) && t.Ran[i]
}

// Run classifies patch through every stage. Output i is the label map
// after stage i; a stage whose trigger does not fire passes the previous
// output through unchanged.
func (c *Chain) Run(patch image.Image, win *tissue.Window) ([]*models.LabelMap, Trace, error) {
	outputs := make([]*models.LabelMap, len(c.Stages))
	trace := Trace{Ran: make([]bool, len(c.Stages))}

	var prev *models.LabelMap
	for i, s := range c.Stages {
		if s.Trigger != nil && !s.Trigger(prev) {
			outputs[i] = prev.Clone()
			prev = outputs[i]
			continue
		}

		raw, err := s.Classifier.Classify(patch)
		if err != nil {
			return nil, trace, fmt.Errorf("stage %s: %w", s.Name, err)
		}
		if prev != nil {
			if err := raw.CheckSize(prev.Width, prev.Height); err != nil {
				return nil, trace, fmt.Errorf("stage %s: %w", s.Name, err)
			}
		}

		out := raw
		if s.Remap != nil {
			out, err = s.Remap(prev, raw, win)
			if err != nil {
				return nil, trace, fmt.Errorf("stage %s: %w", s.Name, err)
			}
		}
		trace.Ran[i] = true
		outputs[i] = out
		prev = out
	}
	return outputs, trace, nil
}

// Background returns the outputs of a gated-out patch: every stage yields
// a uniform size x size map of class
func (c *Chain) Background(size int, class uint8) []*models.LabelMap {
	outputs := make([]*models.LabelMap, len(c.Stages))
	for i := range outputs {
		outputs[i] = models.UniformLabelMap(size, size, class)
	}
	return outputs
}
