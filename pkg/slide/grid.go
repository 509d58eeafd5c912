package slide

import (
	"fmt"
	"image"
)

// OriginPolicy decides where a grid cell starts at full resolution
type OriginPolicy int

const (
	// OriginOffsetByOne starts the first row and column at 0 and every
	// later one at index*patchSize + 1. Consecutive patches therefore
	// leave a one pixel gap between them, and the last row and column
	// reach one pixel further into the slide than an aligned grid.
	OriginOffsetByOne OriginPolicy = iota

	// OriginAligned starts every cell at index*patchSize
	OriginAligned
)

func (p OriginPolicy) String() string {
	if p == OriginAligned {
		return "aligned"
	}
	return "offset-by-one"
}

// ParseOriginPolicy maps a config string to an OriginPolicy
func ParseOriginPolicy(s string) (OriginPolicy, error) {
	switch s {
	case "", "offset-by-one":
		return OriginOffsetByOne, nil
	case "aligned":
		return OriginAligned, nil
	}
	return OriginOffsetByOne, fmt.Errorf("unknown origin policy %q (must be offset-by-one or aligned)", s)
}

// Grid is the logical patch grid laid over a slide at level 0
type Grid struct {
	Columns   int
	Rows      int
	PatchSize int
	Origin    OriginPolicy
}

// GridFor covers as many whole patches as fit into dims under the given
// origin policy, so that no cell reads past the slide edge
func GridFor(dims image.Point, patchSize int, origin OriginPolicy) (Grid, error) {
	if patchSize <= 0 {
		return Grid{}, fmt.Errorf("patch size must be positive, got %d", patchSize)
	}
	g := Grid{
		Columns:   fitting(dims.X, patchSize, origin),
		Rows:      fitting(dims.Y, patchSize, origin),
		PatchSize: patchSize,
		Origin:    origin,
	}
	if g.Columns == 0 || g.Rows == 0 {
		return Grid{}, fmt.Errorf("slide of %dx%d is smaller than one %dpx patch", dims.X, dims.Y, patchSize)
	}
	return g, nil
}

func fitting(extent, patchSize int, origin OriginPolicy) int {
	n := extent / patchSize
	if origin == OriginOffsetByOne && n > 1 && (n-1)*patchSize+1+patchSize > extent {
		n--
	}
	return n
}

// Validate checks that the grid has at least one cell of positive size
func (g Grid) Validate() error {
	if g.Columns <= 0 || g.Rows <= 0 {
		return fmt.Errorf("grid must have positive dimensions, got %dx%d", g.Columns, g.Rows)
	}
	if g.PatchSize <= 0 {
		return fmt.Errorf("patch size must be positive, got %d", g.PatchSize)
	}
	return nil
}

// Cells returns the number of grid cells
func (g Grid) Cells() int {
	return g.Columns * g.Rows
}

// OriginOf returns the level 0 top-left corner of cell (row, col)
func (g Grid) OriginOf(row, col int) image.Point {
	return image.Pt(g.offset(col), g.offset(row))
}

func (g Grid) offset(index int) int {
	if index == 0 || g.Origin == OriginAligned {
		return index * g.PatchSize
	}
	return index*g.PatchSize + 1
}

// Bounds returns the level 0 rectangle read for cell (row, col)
func (g Grid) Bounds(row, col int) image.Rectangle {
	o := g.OriginOf(row, col)
	return image.Rect(o.X, o.Y, o.X+g.PatchSize, o.Y+g.PatchSize)
}

// Covered returns the level 0 area spanned by whole patches, ignoring the
// origin offset
func (g Grid) Covered() image.Point {
	return image.Pt(g.Columns*g.PatchSize, g.Rows*g.PatchSize)
}
