// Package visualization renders label mosaics: class colorization, display
// scaling, thumbnail overlays and writing the results to disk.
package visualization

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"wsiseg/internal/models"
)

// SaveImage writes img as PNG, or JPEG when the filename ends in .jpg/.jpeg
func SaveImage(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// LabelImage exposes a label map as an 8-bit gray image without copying
func LabelImage(labels *models.LabelMap) *image.Gray {
	return &image.Gray{
		Pix:    labels.Pix,
		Stride: labels.Width,
		Rect:   image.Rect(0, 0, labels.Width, labels.Height),
	}
}

// SaveLabels writes the raw class ids as a deflate-compressed 8-bit TIFF
func SaveLabels(labels *models.LabelMap, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := tiff.Encode(file, LabelImage(labels), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("failed to encode label mosaic: %w", err)
	}
	return nil
}

// LoadLabels reads a label mosaic written by SaveLabels
func LoadLabels(filename string) (*models.LabelMap, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := tiff.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode label mosaic: %w", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("label mosaic must be 8-bit gray, got %T", img)
	}
	b := gray.Bounds()
	labels := models.NewLabelMap(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		copy(labels.Pix[y*b.Dx():(y+1)*b.Dx()], gray.Pix[y*gray.Stride:y*gray.Stride+b.Dx()])
	}
	return labels, nil
}
