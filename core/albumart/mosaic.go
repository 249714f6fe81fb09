package albumart

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ErrNoImages is returned when a mosaic is requested with no input images.
var ErrNoImages = errors.New("albumart: no images to compose")

// MakeMosaic composes the given images into one square image of exactly
// size x size pixels. One image fills the square, two are side-by-side
// halves, three are one full-height half plus two stacked quarters, four
// or more form a 2x2 grid of the first four. Every region is cropped to
// fill, never letterboxed.
func MakeMosaic(images []image.Image, size int) (image.Image, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	// Right column and bottom row absorb the odd pixel.
	half := size / 2
	rest := size - half

	if len(images) == 1 {
		return fill(images[0], size, size), nil
	}

	canvas := imaging.New(size, size, color.NRGBA{})
	switch len(images) {
	case 2:
		canvas = imaging.Paste(canvas, fill(images[0], half, size), image.Pt(0, 0))
		canvas = imaging.Paste(canvas, fill(images[1], rest, size), image.Pt(half, 0))
	case 3:
		canvas = imaging.Paste(canvas, fill(images[0], half, size), image.Pt(0, 0))
		canvas = imaging.Paste(canvas, fill(images[1], rest, half), image.Pt(half, 0))
		canvas = imaging.Paste(canvas, fill(images[2], rest, rest), image.Pt(half, half))
	default:
		canvas = imaging.Paste(canvas, fill(images[0], half, half), image.Pt(0, 0))
		canvas = imaging.Paste(canvas, fill(images[1], rest, half), image.Pt(half, 0))
		canvas = imaging.Paste(canvas, fill(images[2], half, rest), image.Pt(0, half))
		canvas = imaging.Paste(canvas, fill(images[3], rest, rest), image.Pt(half, half))
	}
	return canvas, nil
}

func fill(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
}
