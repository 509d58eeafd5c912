package visualization

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"wsiseg/internal/models"
)

// ColorTable maps class id l (1..K) to entry l-1. Class 0 and any id above
// K have no entry and render black.
type ColorTable []color.RGBA

// defaultColors is the tissue palette used when a config names none
var defaultColors = []string{
	"#ff0000", // tumor
	"#00c800", // stroma
	"#0000ff", // necrosis
	"#ffff00", // inflammation
	"#ff00ff", // mucosa
	"#00ffff", // fat
	"#ff8000", // muscle
	"#8000ff", // vessel
	"#804000", // nerve
	"#808080", // other
	"#ff8080", // secondary classes start here with the default shift of 10
	"#80ff80",
	"#8080ff",
	"#ffff80",
	"#ff80ff",
}

// DefaultColorTable returns the built-in palette
func DefaultColorTable() ColorTable {
	t, err := ParseColorTable(defaultColors)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultColors returns the hex strings behind DefaultColorTable
func DefaultColors() []string {
	out := make([]string, len(defaultColors))
	copy(out, defaultColors)
	return out
}

// ParseColorTable parses "#rrggbb" strings in class order
func ParseColorTable(hex []string) (ColorTable, error) {
	t := make(ColorTable, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("color for class %d: %w", i+1, err)
		}
		r, g, b := c.RGB255()
		t[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return t, nil
}

// Covers reports whether every id up to maxClass has a color
func (t ColorTable) Covers(maxClass int) bool {
	return maxClass <= len(t)
}

// Colorize renders a label map as RGB. Each class id is painted in its own
// pass over the three channel planes, which are then stacked.
func Colorize(labels *models.LabelMap, table ColorTable) *image.RGBA {
	n := len(labels.Pix)
	r := make([]uint8, n)
	g := make([]uint8, n)
	b := make([]uint8, n)

	for l := 1; l <= len(table) && l < 256; l++ {
		c := table[l-1]
		id := uint8(l)
		for i, v := range labels.Pix {
			if v == id {
				r[i] = c.R
				g[i] = c.G
				b[i] = c.B
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, labels.Width, labels.Height))
	for i := 0; i < n; i++ {
		img.Pix[i*4] = r[i]
		img.Pix[i*4+1] = g[i]
		img.Pix[i*4+2] = b[i]
		img.Pix[i*4+3] = 255
	}
	return img
}
