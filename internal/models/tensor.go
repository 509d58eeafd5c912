package models

import "fmt"

// Tensor is a dense float32 buffer in NCHW layout.
// The pipeline only ever builds batches of one, so N is always 1.
type Tensor struct {
	N, C, H, W int
	Data       []float32
}

// NewTensor allocates a zero-filled tensor
func NewTensor(n, c, h, w int) *Tensor {
	return &Tensor{N: n, C: c, H: h, W: w, Data: make([]float32, n*c*h*w)}
}

// Index returns the flat offset of element (n, c, y, x)
func (t *Tensor) Index(n, c, y, x int) int {
	return ((n*t.C+c)*t.H+y)*t.W + x
}

// At returns element (n, c, y, x)
func (t *Tensor) At(n, c, y, x int) float32 {
	return t.Data[t.Index(n, c, y, x)]
}

// Set stores element (n, c, y, x)
func (t *Tensor) Set(n, c, y, x int, v float32) {
	t.Data[t.Index(n, c, y, x)] = v
}

// Plane returns the H*W slice of channel c in batch item n
func (t *Tensor) Plane(n, c int) []float32 {
	start := t.Index(n, c, 0, 0)
	return t.Data[start : start+t.H*t.W]
}

// Validate checks that Data matches the declared shape
func (t *Tensor) Validate() error {
	if t.N <= 0 || t.C <= 0 || t.H <= 0 || t.W <= 0 {
		return fmt.Errorf("%w: tensor shape %dx%dx%dx%d", ErrShapeMismatch, t.N, t.C, t.H, t.W)
	}
	if len(t.Data) != t.N*t.C*t.H*t.W {
		return fmt.Errorf("%w: tensor holds %d values, shape %dx%dx%dx%d needs %d",
			ErrShapeMismatch, len(t.Data), t.N, t.C, t.H, t.W, t.N*t.C*t.H*t.W)
	}
	return nil
}
