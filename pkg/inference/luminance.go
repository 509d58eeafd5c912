package inference

import (
	"fmt"
	"math"

	"wsiseg/internal/models"
)

// LuminanceModel is a deterministic stand-in for a learned network. It
// splits the input value range into Classes equal bins and scores each
// class by how close a pixel's mean channel value is to the bin centre.
// Useful for checking a run end to end without a model runtime.
type LuminanceModel struct {
	Classes int

	// Min and Max bound the expected input values after normalization
	Min float32
	Max float32
}

// NewLuminanceModel covers the ImageNet-normalized value range
func NewLuminanceModel(classes int) *LuminanceModel {
	return &LuminanceModel{Classes: classes, Min: -2.2, Max: 2.7}
}

// Predict implements Model
func (m *LuminanceModel) Predict(input *models.Tensor) (*models.Tensor, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if m.Classes <= 0 {
		return nil, fmt.Errorf("luminance model needs at least one class, got %d", m.Classes)
	}

	out := models.NewTensor(input.N, m.Classes, input.H, input.W)
	step := (m.Max - m.Min) / float32(m.Classes)
	for n := 0; n < input.N; n++ {
		for i := 0; i < input.H*input.W; i++ {
			var sum float32
			for c := 0; c < input.C; c++ {
				sum += input.Plane(n, c)[i]
			}
			lum := sum / float32(input.C)
			for k := 0; k < m.Classes; k++ {
				centre := m.Min + step*(float32(k)+0.5)
				out.Plane(n, k)[i] = -float32(math.Abs(float64(lum - centre)))
			}
		}
	}
	return out, nil
}
