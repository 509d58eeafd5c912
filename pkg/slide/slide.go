// Package slide provides access to whole-slide pixel data and the patch
// extractors that cut grid cells out of it.
package slide

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"wsiseg/internal/models"
)

// Slide is a read-only multi-resolution pixel source
type Slide interface {
	// Dimensions returns the level 0 size in pixels
	Dimensions() image.Point

	// Thumbnail returns a reduced-resolution rendering of the whole slide
	Thumbnail() (image.Image, error)
}

// ArraySource exposes the level 0 pixels as a channel-first array
type ArraySource interface {
	Array() (*Array, error)
}

// RegionReader reads a size.X x size.Y region whose top-left corner is
// origin, given in level 0 coordinates
type RegionReader interface {
	ReadRegion(origin image.Point, level int, size image.Point) (image.Image, error)
}

// Array is a channel-first 8-bit pixel buffer: value (c, y, x) lives at
// Data[(c*Height+y)*Width+x]
type Array struct {
	Channels int
	Height   int
	Width    int
	Data     []uint8
}

// NewArray allocates a zero-filled array
func NewArray(channels, height, width int) *Array {
	return &Array{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]uint8, channels*height*width),
	}
}

// At returns the value of channel c at (x, y)
func (a *Array) At(c, y, x int) uint8 {
	return a.Data[(c*a.Height+y)*a.Width+x]
}

// Set stores the value of channel c at (x, y)
func (a *Array) Set(c, y, x int, v uint8) {
	a.Data[(c*a.Height+y)*a.Width+x] = v
}

// ArrayFromImage converts any image into a 3 channel array
func ArrayFromImage(img image.Image) *Array {
	b := img.Bounds()
	a := NewArray(3, b.Dy(), b.Dx())
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			a.Set(0, y, x, c.R)
			a.Set(1, y, x, c.G)
			a.Set(2, y, x, c.B)
		}
	}
	return a
}

// Slice copies the rectangle r into an opaque RGB image.
// The rectangle is clipped to the array like a numpy slice would be, so
// the result can be smaller than r near the edges.
func (a *Array) Slice(r image.Rectangle) *image.RGBA {
	r = r.Intersect(image.Rect(0, 0, a.Width, a.Height))
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			var px color.RGBA
			px.A = 255
			switch {
			case a.Channels >= 3:
				px.R = a.At(0, r.Min.Y+y, r.Min.X+x)
				px.G = a.At(1, r.Min.Y+y, r.Min.X+x)
				px.B = a.At(2, r.Min.Y+y, r.Min.X+x)
			case a.Channels >= 1:
				v := a.At(0, r.Min.Y+y, r.Min.X+x)
				px.R, px.G, px.B = v, v, v
			}
			img.SetRGBA(x, y, px)
		}
	}
	return img
}

// ImageSlide is an in-memory slide made of a decoded level 0 image and a
// separately decoded thumbnail level
type ImageSlide struct {
	Level0 image.Image
	Thumb  image.Image

	array *Array
}

// NewImageSlide wraps two already decoded levels
func NewImageSlide(level0, thumb image.Image) *ImageSlide {
	return &ImageSlide{Level0: level0, Thumb: thumb}
}

// OpenImageSlide decodes the level 0 image and the thumbnail from disk.
// TIFF, PNG and JPEG files are supported.
func OpenImageSlide(level0Path, thumbPath string) (*ImageSlide, error) {
	level0, err := loadImage(level0Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load slide level 0: %w", err)
	}
	thumb, err := loadImage(thumbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load slide thumbnail: %w", err)
	}
	return NewImageSlide(level0, thumb), nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// Dimensions returns the level 0 size
func (s *ImageSlide) Dimensions() image.Point {
	return s.Level0.Bounds().Size()
}

// Thumbnail returns the reduced-resolution level
func (s *ImageSlide) Thumbnail() (image.Image, error) {
	if s.Thumb == nil {
		return nil, fmt.Errorf("slide has no thumbnail level")
	}
	return s.Thumb, nil
}

// Array converts level 0 to a channel-first array on first use
func (s *ImageSlide) Array() (*Array, error) {
	if s.array == nil {
		s.array = ArrayFromImage(s.Level0)
	}
	return s.array, nil
}

// ReadRegion reads from level 0 or, for level 1, from the thumbnail.
// Regions that leave the level are a models.ErrShapeMismatch.
func (s *ImageSlide) ReadRegion(origin image.Point, level int, size image.Point) (image.Image, error) {
	var src image.Image
	switch level {
	case 0:
		src = s.Level0
	case 1:
		src = s.Thumb
	default:
		return nil, fmt.Errorf("slide has no level %d", level)
	}
	if src == nil {
		return nil, fmt.Errorf("slide level %d is not loaded", level)
	}

	b := src.Bounds()
	r := image.Rectangle{Min: origin, Max: origin.Add(size)}.Add(b.Min)
	if !r.In(b) {
		return nil, fmt.Errorf("%w: region %v leaves level %d bounds %v",
			models.ErrShapeMismatch, r, level, b)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst, nil
}
