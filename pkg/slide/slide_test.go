package slide

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"wsiseg/internal/models"
)

// createTestImage fills an image so that every pixel encodes its position:
// R = x, G = y, B = 7
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	return img
}

// TestGridOrigin pins the offset-by-one addressing rule and the aligned
// alternative
func TestGridOrigin(t *testing.T) {
	offset := Grid{Columns: 3, Rows: 3, PatchSize: 10, Origin: OriginOffsetByOne}
	aligned := Grid{Columns: 3, Rows: 3, PatchSize: 10, Origin: OriginAligned}

	tests := []struct {
		row, col    int
		wantOffset  image.Point
		wantAligned image.Point
	}{
		{0, 0, image.Pt(0, 0), image.Pt(0, 0)},
		{0, 1, image.Pt(11, 0), image.Pt(10, 0)},
		{1, 0, image.Pt(0, 11), image.Pt(0, 10)},
		{2, 2, image.Pt(21, 21), image.Pt(20, 20)},
	}

	for _, tc := range tests {
		if got := offset.OriginOf(tc.row, tc.col); got != tc.wantOffset {
			t.Errorf("offset-by-one origin of (%d,%d) = %v, want %v", tc.row, tc.col, got, tc.wantOffset)
		}
		if got := aligned.OriginOf(tc.row, tc.col); got != tc.wantAligned {
			t.Errorf("aligned origin of (%d,%d) = %v, want %v", tc.row, tc.col, got, tc.wantAligned)
		}
	}

	// Every cell keeps the full patch size; only the origin moves
	if b := offset.Bounds(1, 1); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("Expected 10x10 bounds, got %v", b)
	}
}

// TestGridFor checks that derived grids never read past the slide edge
func TestGridFor(t *testing.T) {
	g, err := GridFor(image.Pt(30, 25), 10, OriginAligned)
	if err != nil {
		t.Fatalf("GridFor failed: %v", err)
	}
	if g.Columns != 3 || g.Rows != 2 {
		t.Errorf("Expected aligned 3x2 grid, got %dx%d", g.Columns, g.Rows)
	}

	// 30 pixels fit three aligned patches but only two offset ones
	g, err = GridFor(image.Pt(30, 31), 10, OriginOffsetByOne)
	if err != nil {
		t.Fatalf("GridFor failed: %v", err)
	}
	if g.Columns != 2 || g.Rows != 3 {
		t.Errorf("Expected offset 2x3 grid, got %dx%d", g.Columns, g.Rows)
	}
	last := g.Bounds(g.Rows-1, g.Columns-1)
	if last.Max.X > 30 || last.Max.Y > 31 {
		t.Errorf("Last cell %v leaves the slide", last)
	}

	if _, err := GridFor(image.Pt(5, 5), 10, OriginAligned); err == nil {
		t.Error("Expected error for slide smaller than a patch")
	}
	if _, err := GridFor(image.Pt(5, 5), 0, OriginAligned); err == nil {
		t.Error("Expected error for zero patch size")
	}
}

// TestArrayExtractor verifies that array slicing honours the origin rule
func TestArrayExtractor(t *testing.T) {
	s := NewImageSlide(createTestImage(40, 40), createTestImage(10, 10))
	grid := Grid{Columns: 3, Rows: 3, PatchSize: 10, Origin: OriginOffsetByOne}

	ex, err := NewArrayExtractor(s, grid)
	if err != nil {
		t.Fatalf("NewArrayExtractor failed: %v", err)
	}

	patch, err := ex.Extract(1, 2)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if patch.Bounds().Dx() != 10 || patch.Bounds().Dy() != 10 {
		t.Fatalf("Expected 10x10 patch, got %v", patch.Bounds())
	}
	r, g, b, _ := patch.At(0, 0).RGBA()
	if uint8(r>>8) != 21 || uint8(g>>8) != 11 || uint8(b>>8) != 7 {
		t.Errorf("Expected top-left pixel from (21,11), got R=%d G=%d", r>>8, g>>8)
	}
}

// TestArrayExtractorEdge verifies that clipped patches fail fast
func TestArrayExtractorEdge(t *testing.T) {
	s := NewImageSlide(createTestImage(30, 30), createTestImage(10, 10))
	grid := Grid{Columns: 3, Rows: 3, PatchSize: 10, Origin: OriginOffsetByOne}

	ex, err := NewArrayExtractor(s, grid)
	if err != nil {
		t.Fatalf("NewArrayExtractor failed: %v", err)
	}
	if _, err := ex.Extract(2, 0); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for clipped patch, got %v", err)
	}
	if _, err := ex.Extract(1, 1); err != nil {
		t.Errorf("Expected interior patch to succeed, got %v", err)
	}
}

// TestRegionExtractor checks that both extractors agree on pixel content
func TestRegionExtractor(t *testing.T) {
	s := NewImageSlide(createTestImage(40, 40), createTestImage(10, 10))
	grid := Grid{Columns: 3, Rows: 3, PatchSize: 10, Origin: OriginOffsetByOne}

	arrayEx, err := NewArrayExtractor(s, grid)
	if err != nil {
		t.Fatalf("NewArrayExtractor failed: %v", err)
	}
	regionEx := NewRegionExtractor(s, grid)

	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Columns; col++ {
			a, err := arrayEx.Extract(row, col)
			if err != nil {
				t.Fatalf("array Extract(%d,%d) failed: %v", row, col, err)
			}
			r, err := regionEx.Extract(row, col)
			if err != nil {
				t.Fatalf("region Extract(%d,%d) failed: %v", row, col, err)
			}
			for y := 0; y < 10; y++ {
				for x := 0; x < 10; x++ {
					if a.At(x, y) != r.At(x, y) {
						t.Fatalf("cell (%d,%d) pixel (%d,%d) differs: %v vs %v",
							row, col, x, y, a.At(x, y), r.At(x, y))
					}
				}
			}
		}
	}

	if _, err := s.ReadRegion(image.Pt(35, 0), 0, image.Pt(10, 10)); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for out of bounds region, got %v", err)
	}
	if _, err := s.ReadRegion(image.Pt(0, 0), 2, image.Pt(1, 1)); err == nil {
		t.Error("Expected error for missing level")
	}
}

// TestArraySliceGray checks single channel arrays are expanded to gray RGB
func TestArraySliceGray(t *testing.T) {
	a := NewArray(1, 2, 2)
	a.Set(0, 1, 1, 200)

	img := a.Slice(image.Rect(0, 0, 2, 2))
	if got := img.RGBAAt(1, 1); got != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("Expected gray 200, got %v", got)
	}
}
