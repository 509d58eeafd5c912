package models

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch reports a patch, window or label map whose size
	// differs from the grid cell it was meant to fill.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidResizeTarget reports a non-positive output size.
	ErrInvalidResizeTarget = errors.New("invalid resize target")
)

// LabelMap is a 2D matrix of class ids stored in row-major order
type LabelMap struct {
	// Width and Height are the dimensions of the map in pixels
	Width  int
	Height int

	// Pix holds Width*Height class ids; the id at (x, y) is Pix[y*Width+x]
	Pix []uint8
}

// NewLabelMap allocates a zero-filled label map
func NewLabelMap(width, height int) *LabelMap {
	return &LabelMap{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// UniformLabelMap allocates a label map with every pixel set to class
func UniformLabelMap(width, height int, class uint8) *LabelMap {
	m := NewLabelMap(width, height)
	m.Fill(class)
	return m
}

// At returns the class id at (x, y)
func (m *LabelMap) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Set stores a class id at (x, y)
func (m *LabelMap) Set(x, y int, class uint8) {
	m.Pix[y*m.Width+x] = class
}

// Fill sets every pixel to class
func (m *LabelMap) Fill(class uint8) {
	for i := range m.Pix {
		m.Pix[i] = class
	}
}

// Count returns how many pixels carry class
func (m *LabelMap) Count(class uint8) int {
	n := 0
	for _, v := range m.Pix {
		if v == class {
			n++
		}
	}
	return n
}

// Contains reports whether any pixel carries class
func (m *LabelMap) Contains(class uint8) bool {
	for _, v := range m.Pix {
		if v == class {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the map
func (m *LabelMap) Clone() *LabelMap {
	c := &LabelMap{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Equal reports whether both maps have the same size and contents
func (m *LabelMap) Equal(o *LabelMap) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.Pix {
		if m.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// CheckSize returns ErrShapeMismatch unless the map is width x height
func (m *LabelMap) CheckSize(width, height int) error {
	if m.Width != width || m.Height != height {
		return fmt.Errorf("%w: label map is %dx%d, expected %dx%d",
			ErrShapeMismatch, m.Width, m.Height, width, height)
	}
	return nil
}

// Histogram counts pixels per class id
func (m *LabelMap) Histogram() [256]int {
	var h [256]int
	for _, v := range m.Pix {
		h[v]++
	}
	return h
}
