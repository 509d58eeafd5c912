package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"wsiseg/internal/models"
	"wsiseg/pkg/inference"
)

const (
	// BaseWeight is the thumbnail's share of an overlay pixel
	BaseWeight = 0.7

	// OverlayWeight is the colorized mosaic's share of an overlay pixel
	OverlayWeight = 0.3
)

// DisplayImage scales a colorized mosaic so that each grid cell takes
// cellSize x cellSize pixels
func DisplayImage(colorized image.Image, columns, rows, cellSize int) (*image.RGBA, error) {
	return inference.Resize(colorized, columns*cellSize, rows*cellSize)
}

// Blend mixes two same-sized images as alpha*base + beta*over, rounding
// and saturating each channel
func Blend(base, over image.Image, alpha, beta float64) (*image.RGBA, error) {
	bs, ovs := base.Bounds().Size(), over.Bounds().Size()
	if bs != ovs {
		return nil, fmt.Errorf("%w: cannot blend %dx%d with %dx%d",
			models.ErrShapeMismatch, bs.X, bs.Y, ovs.X, ovs.Y)
	}

	out := image.NewRGBA(image.Rect(0, 0, bs.X, bs.Y))
	bmin, omin := base.Bounds().Min, over.Bounds().Min
	for y := 0; y < bs.Y; y++ {
		for x := 0; x < bs.X; x++ {
			br, bg, bb, _ := base.At(bmin.X+x, bmin.Y+y).RGBA()
			or, og, ob, _ := over.At(omin.X+x, omin.Y+y).RGBA()
			i := out.PixOffset(x, y)
			out.Pix[i] = mix(br, or, alpha, beta)
			out.Pix[i+1] = mix(bg, og, alpha, beta)
			out.Pix[i+2] = mix(bb, ob, alpha, beta)
			out.Pix[i+3] = 255
		}
	}
	return out, nil
}

func mix(a, b uint32, alpha, beta float64) uint8 {
	v := math.Round(alpha*float64(a>>8) + beta*float64(b>>8))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Overlay composites a colorized mosaic over the slide thumbnail.
//
// The thumbnail is first scaled to level0/factor, then cropped to the area
// the patch grid covers (covered/factor, rounded half to even), dropping
// the slide remainder the grid does not reach. Where the rounded crop runs
// past the reduced thumbnail it is padded with black. The mosaic is
// resampled to the crop size and blended on top with
// BaseWeight/OverlayWeight. The result always has the crop's size.
func Overlay(thumb image.Image, level0, covered image.Point, colorized image.Image, factor float64) (*image.RGBA, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("overlay factor must be positive, got %g", factor)
	}

	reducedW := int(math.Floor(float64(level0.X) / factor))
	reducedH := int(math.Floor(float64(level0.Y) / factor))
	reduced, err := inference.Resize(thumb, reducedW, reducedH)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce thumbnail: %w", err)
	}

	cropW := int(math.RoundToEven(float64(covered.X) / factor))
	cropH := int(math.RoundToEven(float64(covered.Y) / factor))
	if cropW <= 0 || cropH <= 0 {
		return nil, fmt.Errorf("%w: overlay crop %dx%d", models.ErrInvalidResizeTarget, cropW, cropH)
	}
	crop := cropPadded(reduced, cropW, cropH)

	heatmap, err := inference.Resize(colorized, cropW, cropH)
	if err != nil {
		return nil, fmt.Errorf("failed to resize mosaic: %w", err)
	}

	return Blend(crop, heatmap, BaseWeight, OverlayWeight)
}

// cropPadded returns the top-left width x height block of img. Pixels
// outside img are opaque black.
func cropPadded(img *image.RGBA, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
