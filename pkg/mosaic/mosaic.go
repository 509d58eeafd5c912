// Package mosaic assembles per-patch label maps into full-slide label
// mosaics. All buffers are allocated once from the grid size and every
// patch is copied straight into its addressed block.
package mosaic

import (
	"fmt"

	"wsiseg/internal/models"
)

// Stitcher holds one mosaic per chain output ("variant") and fills them in
// lockstep
type Stitcher struct {
	Columns   int
	Rows      int
	PatchSize int

	mosaics []*models.LabelMap
	placed  []bool
}

// New allocates variants mosaics of (columns*patchSize) x (rows*patchSize)
func New(columns, rows, patchSize, variants int) (*Stitcher, error) {
	if columns <= 0 || rows <= 0 {
		return nil, fmt.Errorf("grid must have positive dimensions, got %dx%d", columns, rows)
	}
	if patchSize <= 0 {
		return nil, fmt.Errorf("%w: model patch size %d", models.ErrShapeMismatch, patchSize)
	}
	if variants <= 0 {
		return nil, fmt.Errorf("need at least one mosaic variant, got %d", variants)
	}

	s := &Stitcher{
		Columns:   columns,
		Rows:      rows,
		PatchSize: patchSize,
		mosaics:   make([]*models.LabelMap, variants),
		placed:    make([]bool, columns*rows),
	}
	for i := range s.mosaics {
		s.mosaics[i] = models.NewLabelMap(columns*patchSize, rows*patchSize)
	}
	return s, nil
}

// Variants returns the number of mosaics being filled
func (s *Stitcher) Variants() int {
	return len(s.mosaics)
}

// Place copies patches[i] into cell (row, col) of mosaic i
func (s *Stitcher) Place(row, col int, patches []*models.LabelMap) error {
	if err := s.checkCell(row, col); err != nil {
		return err
	}
	if len(patches) != len(s.mosaics) {
		return fmt.Errorf("got %d patches for %d mosaic variants", len(patches), len(s.mosaics))
	}
	for i, p := range patches {
		if err := p.CheckSize(s.PatchSize, s.PatchSize); err != nil {
			return fmt.Errorf("cell (%d,%d) variant %d: %w", row, col, i, err)
		}
	}

	for i, p := range patches {
		dst := s.mosaics[i]
		x0, y0 := col*s.PatchSize, row*s.PatchSize
		for y := 0; y < s.PatchSize; y++ {
			start := (y0+y)*dst.Width + x0
			copy(dst.Pix[start:start+s.PatchSize], p.Pix[y*s.PatchSize:(y+1)*s.PatchSize])
		}
	}
	s.placed[row*s.Columns+col] = true
	return nil
}

func (s *Stitcher) checkCell(row, col int) error {
	if row < 0 || row >= s.Rows || col < 0 || col >= s.Columns {
		return fmt.Errorf("cell (%d,%d) outside %dx%d grid", row, col, s.Columns, s.Rows)
	}
	return nil
}

// Complete reports whether every cell has been written
func (s *Stitcher) Complete() bool {
	for _, p := range s.placed {
		if !p {
			return false
		}
	}
	return true
}

// Mosaics returns the assembled mosaics, one per variant
func (s *Stitcher) Mosaics() []*models.LabelMap {
	return s.mosaics
}
