package media

import (
	"image"
	"image/color"
)

// identityPalette is the fallback color wheel. A peer without a photo is
// drawn as a flat disc whose color is picked from the palette by peer ID,
// so the same peer always renders the same color.
var identityPalette = []color.NRGBA{
	{R: 0xE1, G: 0x70, B: 0x76, A: 0xFF}, // red
	{R: 0xFA, G: 0xA7, B: 0x74, A: 0xFF}, // orange
	{R: 0xA6, G: 0x95, B: 0xE7, A: 0xFF}, // violet
	{R: 0x7B, G: 0xC8, B: 0x62, A: 0xFF}, // green
	{R: 0x6E, G: 0xC9, B: 0xCB, A: 0xFF}, // cyan
	{R: 0x65, G: 0xAA, B: 0xDD, A: 0xFF}, // blue
	{R: 0xEE, G: 0x7A, B: 0xAE, A: 0xFF}, // pink
}

// IdentityColor returns the fallback color for a peer ID.
func IdentityColor(id int64) color.NRGBA {
	idx := id % int64(len(identityPalette))
	if idx < 0 {
		idx = -idx
	}
	return identityPalette[idx]
}

// RenderUserpic produces one avatar frame of size×size pixels: the photo
// scaled to fill the square, or a flat identity-colored fill when photo is
// nil. Corners are rounded by radius; a negative radius means a full
// circle. The returned image is always a fresh buffer the caller owns.
func RenderUserpic(photo image.Image, id int64, size, radius int) image.Image {
	if size <= 0 {
		size = 1
	}
	var dst *image.NRGBA
	if photo != nil {
		dst = scaleToSquare(photo, size)
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, size, size))
		fill := IdentityColor(id)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dst.SetNRGBA(x, y, fill)
			}
		}
	}
	roundCorners(dst, radius)
	return dst
}

// scaleToSquare samples the source into a size×size buffer. The source is
// center-cropped to a square first so faces stay centered. Plain nearest
// neighbor keeps this dependency-free; avatars are small enough that the
// quality difference does not matter.
func scaleToSquare(src image.Image, size int) *image.NRGBA {
	bounds := src.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	if side <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, size, size))
	}
	offsetX := bounds.Min.X + (bounds.Dx()-side)/2
	offsetY := bounds.Min.Y + (bounds.Dy()-side)/2

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		srcY := offsetY + y*side/size
		for x := 0; x < size; x++ {
			srcX := offsetX + x*side/size
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}

// roundCorners clears the alpha of every pixel outside the rounded
// rectangle. radius < 0 draws a full circle, radius == 0 leaves the image
// square, and anything >= half the size is clamped to the circle case.
func roundCorners(img *image.NRGBA, radius int) {
	size := img.Bounds().Dx()
	if radius == 0 {
		return
	}
	if radius < 0 || radius > size/2 {
		radius = size / 2
	}
	// Centers of the four corner arcs, in pixel-center coordinates.
	r := float64(radius)
	for y := 0; y < radius; y++ {
		for x := 0; x < radius; x++ {
			dx := r - (float64(x) + 0.5)
			dy := r - (float64(y) + 0.5)
			if dx*dx+dy*dy <= r*r {
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{})
			img.SetNRGBA(size-1-x, y, color.NRGBA{})
			img.SetNRGBA(x, size-1-y, color.NRGBA{})
			img.SetNRGBA(size-1-x, size-1-y, color.NRGBA{})
		}
	}
}
