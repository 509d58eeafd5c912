package mosaic

import (
	"errors"
	"testing"

	"wsiseg/internal/models"
)

// TestNewDimensions verifies that mosaics are exact multiples of the patch size
func TestNewDimensions(t *testing.T) {
	tests := []struct {
		columns, rows, patch, variants int
	}{
		{1, 1, 4, 1},
		{3, 2, 8, 1},
		{2, 5, 3, 2},
	}

	for _, tc := range tests {
		s, err := New(tc.columns, tc.rows, tc.patch, tc.variants)
		if err != nil {
			t.Fatalf("New(%d,%d,%d,%d) failed: %v", tc.columns, tc.rows, tc.patch, tc.variants, err)
		}
		if s.Variants() != tc.variants {
			t.Errorf("Expected %d variants, got %d", tc.variants, s.Variants())
		}
		for _, m := range s.Mosaics() {
			if m.Width != tc.columns*tc.patch || m.Height != tc.rows*tc.patch {
				t.Errorf("Expected %dx%d mosaic, got %dx%d",
					tc.columns*tc.patch, tc.rows*tc.patch, m.Width, m.Height)
			}
		}
	}

	if _, err := New(0, 1, 4, 1); err == nil {
		t.Error("Expected error for zero columns")
	}
	if _, err := New(1, 1, 0, 1); err == nil {
		t.Error("Expected error for zero patch size")
	}
	if _, err := New(1, 1, 4, 0); err == nil {
		t.Error("Expected error for zero variants")
	}
}

// TestPlaceAddressing writes a distinct class into each cell and reads the
// mosaic back pixel by pixel
func TestPlaceAddressing(t *testing.T) {
	columns, rows, patch := 3, 2, 4
	s, err := New(columns, rows, patch, 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			class := uint8(row*columns + col + 1)
			p := models.UniformLabelMap(patch, patch, class)
			q := models.UniformLabelMap(patch, patch, class+100)
			if err := s.Place(row, col, []*models.LabelMap{p, q}); err != nil {
				t.Fatalf("Place(%d,%d) failed: %v", row, col, err)
			}
		}
	}
	if !s.Complete() {
		t.Error("Expected stitcher to be complete")
	}

	m := s.Mosaics()
	for y := 0; y < rows*patch; y++ {
		for x := 0; x < columns*patch; x++ {
			want := uint8((y/patch)*columns + x/patch + 1)
			if got := m[0].At(x, y); got != want {
				t.Fatalf("variant 0 pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
			if got := m[1].At(x, y); got != want+100 {
				t.Fatalf("variant 1 pixel (%d,%d) = %d, want %d", x, y, got, want+100)
			}
		}
	}
}

// TestPlaceKeepsPatchLayout checks that rows inside a patch are not mixed up
func TestPlaceKeepsPatchLayout(t *testing.T) {
	s, err := New(2, 1, 2, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p := models.NewLabelMap(2, 2)
	copy(p.Pix, []uint8{1, 2, 3, 4})
	if err := s.Place(0, 1, []*models.LabelMap{p}); err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	m := s.Mosaics()[0]
	want := []uint8{0, 0, 1, 2, 0, 0, 3, 4}
	for i, v := range want {
		if m.Pix[i] != v {
			t.Errorf("Pix[%d] = %d, want %d", i, m.Pix[i], v)
		}
	}
	if s.Complete() {
		t.Error("Expected stitcher with an unwritten cell to be incomplete")
	}
}

// TestPlaceErrors covers invalid cells and mismatched shapes
func TestPlaceErrors(t *testing.T) {
	s, err := New(2, 2, 4, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	good := []*models.LabelMap{models.NewLabelMap(4, 4)}

	if err := s.Place(2, 0, good); err == nil {
		t.Error("Expected error for row outside grid")
	}
	if err := s.Place(0, -1, good); err == nil {
		t.Error("Expected error for negative column")
	}
	if err := s.Place(0, 0, []*models.LabelMap{models.NewLabelMap(3, 4)}); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
	if err := s.Place(0, 0, append(good, good[0])); err == nil {
		t.Error("Expected error for wrong variant count")
	}
}
