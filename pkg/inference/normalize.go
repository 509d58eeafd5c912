package inference

import (
	"fmt"
	"sync"

	"wsiseg/internal/models"
)

// Normalizer rewrites a raw 0..255 input tensor into the value range a
// model was trained on. Its numerics belong to the model, not to this
// package.
type Normalizer func(t *models.Tensor)

// Identity leaves the tensor untouched
func Identity(*models.Tensor) {}

// MeanStd scales values to 0..1 and standardizes each channel
func MeanStd(mean, std [3]float32) Normalizer {
	return func(t *models.Tensor) {
		for n := 0; n < t.N; n++ {
			for c := 0; c < t.C && c < 3; c++ {
				plane := t.Plane(n, c)
				for i, v := range plane {
					plane[i] = (v/255 - mean[c]) / std[c]
				}
			}
		}
	}
}

// ImageNet is the normalization used by encoders pretrained on ImageNet
var ImageNet = MeanStd(
	[3]float32{0.485, 0.456, 0.406},
	[3]float32{0.229, 0.224, 0.225},
)

// Normalizers maps encoder and weight identities to normalizers.
// A lookup tries "encoder/weights" first, then any encoder with those
// weights.
type Normalizers struct {
	mu    sync.RWMutex
	byKey map[string]Normalizer
}

// NewNormalizers returns a registry preloaded with the imagenet and none
// weight families
func NewNormalizers() *Normalizers {
	r := &Normalizers{byKey: make(map[string]Normalizer)}
	r.Register("*", "imagenet", ImageNet)
	r.Register("*", "none", Identity)
	return r
}

// Register binds fn to an encoder/weights pair; encoder "*" matches any
func (r *Normalizers) Register(encoder, weights string, fn Normalizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[encoder+"/"+weights] = fn
}

// Lookup finds the normalizer for an encoder/weights pair
func (r *Normalizers) Lookup(encoder, weights string) (Normalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.byKey[encoder+"/"+weights]; ok {
		return fn, nil
	}
	if fn, ok := r.byKey["*/"+weights]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("no normalizer registered for encoder %q with weights %q", encoder, weights)
}
