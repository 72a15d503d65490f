package raster

import (
	"image"
	"image/color"
	"math"
)

// screenVertex is a projected corner: pixel coordinates, depth, and the
// attributes interpolated across the face.
type screenVertex struct {
	x, y, z float64
	u, v    float64
	tint    [4]float64 // RGBA multiplier, 1 when the set has no colors
}

// surface is what a face samples: an optional texture and a fallback color.
type surface struct {
	tex    *image.NRGBA
	base   color.NRGBA
	useUV  bool
	tinted bool
}

// drawTriangle rasterizes one face with a z-buffer, flat shading and ACES
// tone mapping. The inner loop does not allocate.
func (fb *FrameBuffer) drawTriangle(a, b, c screenVertex, s *surface, lc *LightConfig) {
	// face normal
	e1x, e1y, e1z := b.x-a.x, b.y-a.y, b.z-a.z
	e2x, e2y, e2z := c.x-a.x, c.y-a.y, c.z-a.z
	nx := e1y*e2z - e1z*e2y
	ny := e1z*e2x - e1x*e2z
	nz := e1x*e2y - e1y*e2x
	nl := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if nl < 1e-8 {
		return
	}
	shade := lc.Shade(nx/nl, -ny/nl, nz/nl) // screen y points down

	minX := max(int(math.Floor(min(a.x, b.x, c.x))), 0)
	maxX := min(int(math.Ceil(max(a.x, b.x, c.x))), fb.Width-1)
	minY := max(int(math.Floor(min(a.y, b.y, c.y))), 0)
	maxY := min(int(math.Ceil(max(a.y, b.y, c.y))), fb.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	det := (b.y-c.y)*(a.x-c.x) + (c.x-b.x)*(a.y-c.y)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := b.y - c.y
	dx21 := c.x - b.x
	dy20 := c.y - a.y
	dx02 := a.x - c.x

	sampled := s.useUV && s.tex != nil

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - c.y
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - c.x
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*a.z + w1*b.z + w2*c.z
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			texel := s.base
			if sampled {
				texel = SampleTexture(s.tex, w0*a.u+w1*b.u+w2*c.u, w0*a.v+w1*b.v+w2*c.v)
			}

			lin := [3]float64{srgbToLinear[texel.R], srgbToLinear[texel.G], srgbToLinear[texel.B]}
			alpha := float64(texel.A)
			if s.tinted {
				for k := range lin {
					lin[k] *= w0*a.tint[k] + w1*b.tint[k] + w2*c.tint[k]
				}
				alpha *= w0*a.tint[3] + w1*b.tint[3] + w2*c.tint[3]
			}

			// transparent texels leave depth untouched
			if alpha < 8 {
				continue
			}
			fb.ZBuf[zIdx] = z

			px := zIdx * 4
			fb.Color[px] = lc.encode(lin[0], shade)
			fb.Color[px+1] = lc.encode(lin[1], shade)
			fb.Color[px+2] = lc.encode(lin[2], shade)
			fb.Color[px+3] = clamp255(alpha)
		}
	}
}
