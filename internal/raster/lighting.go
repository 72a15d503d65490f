package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LightConfig holds precomputed lighting parameters.
type LightConfig struct {
	LightDir mgl32.Vec3
	RimDir   mgl32.Vec3
	HalfMain mgl32.Vec3 // Blinn-Phong half vector of LightDir and the view
	Ambient  float64
	Hemi     float64
	Direct   float64
	Rim      float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64
}

// DefaultLightConfig is a key light from the upper right, a cool rim from
// behind and a camera looking down -Z.
func DefaultLightConfig() LightConfig {
	lightDir := mgl32.Vec3{180, 260, 140}.Normalize()
	viewDir := mgl32.Vec3{0, 0, -1}

	return LightConfig{
		LightDir: lightDir,
		RimDir:   mgl32.Vec3{-160, 130, -210}.Normalize(),
		HalfMain: lightDir.Sub(viewDir).Normalize(),
		Ambient:  0.55,
		Hemi:     0.50,
		Direct:   1.40,
		Rim:      0.60,
		SpecInt:  0.35,
		SpecPow:  12.0,
		Exposure: 1.05,
		InvGamma: 1.0 / 2.2,
	}
}

// Shade returns the combined lighting scalar for a unit face normal.
// Faces are lit from both sides.
func (lc *LightConfig) Shade(nx, ny, nz float64) float64 {
	dot := func(v mgl32.Vec3) float64 {
		return nx*float64(v[0]) + ny*float64(v[1]) + nz*float64(v[2])
	}

	hemi := ((1.0-math.Abs(ny))*0.5 + 0.5) * lc.Hemi
	spec := math.Pow(math.Max(dot(lc.HalfMain), 0), lc.SpecPow) * lc.SpecInt

	return lc.Ambient + hemi + math.Abs(dot(lc.LightDir))*lc.Direct + math.Abs(dot(lc.RimDir))*lc.Rim + spec
}

// Precomputed sRGB-to-linear lookup table.
var srgbToLinear [256]float64

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// acesTonemap applies ACES filmic tone mapping to a linear value.
func acesTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// encode maps a linear channel value through shading, tone mapping and the
// sRGB curve back to 8 bits.
func (lc *LightConfig) encode(linear, shade float64) uint8 {
	return clamp255(math.Pow(acesTonemap(linear*shade*lc.Exposure), lc.InvGamma) * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
