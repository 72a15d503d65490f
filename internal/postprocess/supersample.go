// Package postprocess finishes rendered previews.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample scales img to target pixels square with premultiplied alpha,
// so transparent edges do not bleed dark halos. Images already at or below
// target are returned as is.
func Downsample(img *image.NRGBA, target int) *image.NRGBA {
	b := img.Bounds()
	if target <= 0 || (b.Dx() <= target && b.Dy() <= target) {
		return img
	}

	// image.RGBA is alpha-premultiplied, so draw.Draw does the conversion
	premul := image.NewRGBA(b)
	draw.Draw(premul, b, img, b.Min, draw.Src)

	// CatmullRom approximates Lanczos
	dst := image.NewRGBA(image.Rect(0, 0, target, target))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, b, draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for i := 0; i < len(dst.Pix); i += 4 {
		a := dst.Pix[i+3]
		out.Pix[i+3] = a
		if a <= 1 {
			continue
		}
		inv := 255.0 / float64(a)
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = clamp8(float64(dst.Pix[i+c]) * inv)
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
