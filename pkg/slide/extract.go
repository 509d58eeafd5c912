package slide

import (
	"fmt"
	"image"
	"image/draw"

	"wsiseg/internal/models"
)

// Extractor returns the RGB pixels of grid cell (row, col) at native
// patch size
type Extractor interface {
	Extract(row, col int) (image.Image, error)
}

// ArrayExtractor slices patches out of a channel-first level 0 array
type ArrayExtractor struct {
	Array *Array
	Grid  Grid
}

// NewArrayExtractor builds an extractor over src's level 0 array
func NewArrayExtractor(src ArraySource, grid Grid) (*ArrayExtractor, error) {
	arr, err := src.Array()
	if err != nil {
		return nil, fmt.Errorf("failed to read slide array: %w", err)
	}
	return &ArrayExtractor{Array: arr, Grid: grid}, nil
}

// Extract slices cell (row, col). A patch clipped by the slide edge is an
// error rather than being padded.
func (e *ArrayExtractor) Extract(row, col int) (image.Image, error) {
	patch := e.Array.Slice(e.Grid.Bounds(row, col))
	if err := checkPatch(patch, e.Grid.PatchSize, row, col); err != nil {
		return nil, err
	}
	return patch, nil
}

// RegionExtractor reads patches through a RegionReader at level 0
type RegionExtractor struct {
	Reader RegionReader
	Grid   Grid
}

// NewRegionExtractor builds an extractor over reader
func NewRegionExtractor(reader RegionReader, grid Grid) *RegionExtractor {
	return &RegionExtractor{Reader: reader, Grid: grid}
}

// Extract reads cell (row, col) and converts it to RGB
func (e *RegionExtractor) Extract(row, col int) (image.Image, error) {
	size := image.Pt(e.Grid.PatchSize, e.Grid.PatchSize)
	region, err := e.Reader.ReadRegion(e.Grid.OriginOf(row, col), 0, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read region of cell (%d,%d): %w", row, col, err)
	}
	if err := checkPatch(region, e.Grid.PatchSize, row, col); err != nil {
		return nil, err
	}
	return toRGB(region), nil
}

func checkPatch(img image.Image, size, row, col int) error {
	if got := img.Bounds().Size(); got.X != size || got.Y != size {
		return fmt.Errorf("%w: patch of cell (%d,%d) is %dx%d, expected %dx%d",
			models.ErrShapeMismatch, row, col, got.X, got.Y, size, size)
	}
	return nil
}

// toRGB drops any alpha by compositing onto black
func toRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
