// Package inference turns RGB patches into model input tensors and model
// score maps into integer label maps.
package inference

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"wsiseg/internal/models"
)

// Resize scales img to width x height with Catmull-Rom resampling
func Resize(img image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", models.ErrInvalidResizeTarget, width, height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// ToTensor converts img into a 1x3xHxW tensor holding raw 0..255 values
func ToTensor(img image.Image) *models.Tensor {
	b := img.Bounds()
	t := models.NewTensor(1, 3, b.Dy(), b.Dx())
	r, g, bl := t.Plane(0, 0), t.Plane(0, 1), t.Plane(0, 2)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			pr, pg, pb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*b.Dx() + x
			r[i] = float32(pr >> 8)
			g[i] = float32(pg >> 8)
			bl[i] = float32(pb >> 8)
		}
	}
	return t
}

// Preprocess resizes img to size x size when needed, converts it to a
// channel-first float32 batch of one and applies normalize
func Preprocess(img image.Image, size int, normalize Normalizer) (*models.Tensor, error) {
	if got := img.Bounds().Size(); got.X != size || got.Y != size {
		resized, err := Resize(img, size, size)
		if err != nil {
			return nil, err
		}
		img = resized
	}
	t := ToTensor(img)
	if normalize != nil {
		normalize(t)
	}
	return t, nil
}
