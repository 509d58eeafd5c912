package inference

import (
	"fmt"
	"image"

	"wsiseg/internal/models"
)

// Model maps a 1xCxHxW input tensor to a 1xKxHxW tensor of per-class scores
type Model interface {
	Predict(input *models.Tensor) (*models.Tensor, error)
}

// Labeler produces a label map for an RGB patch
type Labeler interface {
	Classify(img image.Image) (*models.LabelMap, error)
}

// Argmax reduces a score tensor to the index of the best class per pixel.
// Ties resolve to the lowest class index.
func Argmax(scores *models.Tensor) (*models.LabelMap, error) {
	if err := scores.Validate(); err != nil {
		return nil, err
	}
	if scores.N != 1 {
		return nil, fmt.Errorf("%w: expected a batch of one, got %d", models.ErrShapeMismatch, scores.N)
	}
	if scores.C > 256 {
		return nil, fmt.Errorf("%w: %d classes do not fit a label byte", models.ErrShapeMismatch, scores.C)
	}

	labels := models.NewLabelMap(scores.W, scores.H)
	best := make([]float32, scores.H*scores.W)
	copy(best, scores.Plane(0, 0))
	for c := 1; c < scores.C; c++ {
		plane := scores.Plane(0, c)
		for i, v := range plane {
			if v > best[i] {
				best[i] = v
				labels.Pix[i] = uint8(c)
			}
		}
	}
	return labels, nil
}

// Classifier runs one model on a patch: preprocess, predict, argmax.
// It is a blocking call without retries.
type Classifier struct {
	Name      string
	Model     Model
	Normalize Normalizer

	// InputSize is the square side the model expects
	InputSize int
}

// NewClassifier builds a classifier
func NewClassifier(name string, model Model, normalize Normalizer, inputSize int) *Classifier {
	return &Classifier{Name: name, Model: model, Normalize: normalize, InputSize: inputSize}
}

// Classify returns the label map of img at model resolution
func (c *Classifier) Classify(img image.Image) (*models.LabelMap, error) {
	input, err := Preprocess(img, c.InputSize, c.Normalize)
	if err != nil {
		return nil, fmt.Errorf("%s: preprocessing failed: %w", c.Name, err)
	}
	scores, err := c.Model.Predict(input)
	if err != nil {
		return nil, fmt.Errorf("%s: prediction failed: %w", c.Name, err)
	}
	labels, err := Argmax(scores)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	return labels, nil
}
