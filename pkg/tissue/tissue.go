// Package tissue holds the tissue detection map and the gate that decides,
// per grid cell, whether a patch needs inference at all.
package tissue

import (
	"fmt"
	"image"
	"image/color"
	"os"

	_ "image/png"

	_ "golang.org/x/image/tiff"

	"wsiseg/internal/models"
)

const (
	// Tissue marks a map cell that contains tissue
	Tissue uint8 = 0

	// Background marks a map cell that contains only slide background
	Background uint8 = 1

	// DefaultThreshold is the number of tissue cells a window must exceed
	// before its patch is sent to the classifiers
	DefaultThreshold = 50
)

// EdgePolicy controls what happens to a window truncated by the map edge
type EdgePolicy int

const (
	// EdgeAuto pads for single-classifier chains and rejects otherwise
	EdgeAuto EdgePolicy = iota

	// EdgePad zero-pads a truncated window up to the full cell size.
	// Zero is the tissue flag, so the padded margin counts as tissue: an
	// edge cell with little real tissue can still pass the gate, and its
	// padded pixels are never forced to background after classification.
	EdgePad

	// EdgeReject fills the missing margin with background, so only real
	// map cells count toward the gate, and fails the window with
	// models.ErrShapeMismatch in CheckEdge once it passes the gate
	EdgeReject
)

func (p EdgePolicy) String() string {
	switch p {
	case EdgePad:
		return "pad"
	case EdgeReject:
		return "reject"
	default:
		return "auto"
	}
}

// ParseEdgePolicy maps a config string to an EdgePolicy
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch s {
	case "", "auto":
		return EdgeAuto, nil
	case "pad":
		return EdgePad, nil
	case "reject":
		return EdgeReject, nil
	}
	return EdgeAuto, fmt.Errorf("unknown edge policy %q (must be auto, pad or reject)", s)
}

// Resolve turns EdgeAuto into a concrete policy for a chain of the given length
func (p EdgePolicy) Resolve(stages int) EdgePolicy {
	if p != EdgeAuto {
		return p
	}
	if stages <= 1 {
		return EdgePad
	}
	return EdgeReject
}

// Map is a tissue detection map at model resolution.
// Each grid cell covers a size x size block of the map.
type Map struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMap wraps a row-major buffer of tissue flags
func NewMap(width, height int, pix []uint8) (*Map, error) {
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: tissue map buffer holds %d cells, expected %dx%d",
			models.ErrShapeMismatch, len(pix), width, height)
	}
	return &Map{Width: width, Height: height, Pix: pix}, nil
}

// FromImage converts a grayscale image into a tissue map.
// Any non-zero gray value is read as background.
func FromImage(img image.Image) *Map {
	b := img.Bounds()
	m := &Map{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y != 0 {
				m.Pix[y*m.Width+x] = Background
			}
		}
	}
	return m
}

// Load decodes a tissue map from a PNG or TIFF file
func Load(path string) (*Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tissue map: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tissue map: %w", err)
	}
	return FromImage(img), nil
}

// Window returns the size x size block of cell (row, col).
// The margin of a block cut off by the map edge is filled according to
// policy, which must already be resolved (EdgePad or EdgeReject).
func (m *Map) Window(row, col, size int, policy EdgePolicy) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: window size %d", models.ErrShapeMismatch, size)
	}
	x0, y0 := col*size, row*size
	w := clamp(m.Width-x0, 0, size)
	h := clamp(m.Height-y0, 0, size)

	win := &Window{Size: size, Pix: make([]uint8, size*size), Covered: image.Pt(w, h)}
	if win.Truncated() && policy == EdgeReject {
		for i := range win.Pix {
			win.Pix[i] = Background
		}
	}
	for y := 0; y < h && w > 0; y++ {
		copy(win.Pix[y*size:y*size+w], m.Pix[(y0+y)*m.Width+x0:(y0+y)*m.Width+x0+w])
	}
	return win, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Window is the tissue block of a single grid cell, always Size x Size
type Window struct {
	Size int
	Pix  []uint8

	// Covered is the part of the window that came from the map; the rest
	// is padding
	Covered image.Point
}

// Truncated reports whether part of the window is padding
func (w *Window) Truncated() bool {
	return w.Covered.X != w.Size || w.Covered.Y != w.Size
}

// CheckEdge fails a truncated window under EdgeReject. Full windows and
// padded windows always pass.
func (w *Window) CheckEdge(policy EdgePolicy) error {
	if policy == EdgeReject && w.Truncated() {
		return fmt.Errorf("%w: tissue window is %dx%d, expected %dx%d",
			models.ErrShapeMismatch, w.Covered.X, w.Covered.Y, w.Size, w.Size)
	}
	return nil
}

// TissueCount returns how many cells carry the tissue flag
func (w *Window) TissueCount() int {
	n := 0
	for _, v := range w.Pix {
		if v == Tissue {
			n++
		}
	}
	return n
}

// IsBackground reports whether (x, y) is flagged as background
func (w *Window) IsBackground(x, y int) bool {
	return w.Pix[y*w.Size+x] == Background
}

// Gate decides whether a cell has enough tissue to be classified
type Gate struct {
	Threshold int
}

// NewGate returns a gate using DefaultThreshold
func NewGate() Gate {
	return Gate{Threshold: DefaultThreshold}
}

// Pass reports whether the tissue count strictly exceeds the threshold
func (g Gate) Pass(w *Window) bool {
	return w.TissueCount() > g.Threshold
}
