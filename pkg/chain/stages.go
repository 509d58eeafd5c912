package chain

import (
	"fmt"

	"wsiseg/internal/models"
	"wsiseg/pkg/inference"
	"wsiseg/pkg/tissue"
)

// MaskBackground forces every pixel the tissue window flags as background
// to backClass
func MaskBackground(backClass uint8) Remap {
	return func(_, out *models.LabelMap, win *tissue.Window) (*models.LabelMap, error) {
		if win == nil {
			return out, nil
		}
		if err := out.CheckSize(win.Size, win.Size); err != nil {
			return nil, fmt.Errorf("tissue window: %w", err)
		}
		masked := out.Clone()
		for y := 0; y < win.Size; y++ {
			for x := 0; x < win.Size; x++ {
				if win.IsBackground(x, y) {
					masked.Set(x, y, backClass)
				}
			}
		}
		return masked, nil
	}
}

// ContainsClass fires when any pixel of the previous output equals class
func ContainsClass(class uint8) Trigger {
	return func(prev *models.LabelMap) bool {
		return prev != nil && prev.Contains(class)
	}
}

// ShiftInto replaces every pixel of prev labelled target with the stage's
// own label plus shift and leaves all other pixels untouched
func ShiftInto(target, shift uint8) Remap {
	return func(prev, out *models.LabelMap, _ *tissue.Window) (*models.LabelMap, error) {
		if prev == nil {
			return nil, fmt.Errorf("shift remap needs a previous stage")
		}
		merged := prev.Clone()
		for i, v := range prev.Pix {
			if v != target {
				continue
			}
			shifted := int(out.Pix[i]) + int(shift)
			if shifted > 255 {
				return nil, fmt.Errorf("label %d shifted by %d overflows a label byte", out.Pix[i], shift)
			}
			merged.Pix[i] = uint8(shifted)
		}
		return merged, nil
	}
}

// Single builds the one-classifier chain: classify, then force background
func Single(primary inference.Labeler, backClass uint8) (*Chain, error) {
	return New(Stage{
		Name:       "primary",
		Classifier: primary,
		Remap:      MaskBackground(backClass),
	})
}

// Dual builds the two-classifier chain. The secondary classifier only runs
// on patches whose primary labels contain tumorClass, and its labels are
// shifted by classShift into the tumor pixels.
func Dual(primary, secondary inference.Labeler, backClass, tumorClass, classShift uint8) (*Chain, error) {
	return New(
		Stage{
			Name:       "primary",
			Classifier: primary,
			Remap:      MaskBackground(backClass),
		},
		Stage{
			Name:       "secondary",
			Classifier: secondary,
			Trigger:    ContainsClass(tumorClass),
			Remap:      ShiftInto(tumorClass, classShift),
		},
	)
}
