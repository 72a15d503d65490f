// Package raster draws decoded scenes into still preview images.
package raster

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/texture"
)

// Options controls a preview render.
type Options struct {
	Size        int // output edge in pixels before downsampling is applied
	Supersample int
	Textures    texture.Resolver // may be nil

	// View rotates world space before the orthographic projection. The zero
	// matrix selects DefaultView.
	View  mgl32.Mat4
	Light *LightConfig
}

// Placed is a scene drawn under an extra world matrix.
type Placed struct {
	Scene  *scene.Scene
	Matrix mgl32.Mat4
}

// DefaultView is a three-quarter view from the front right, slightly above.
func DefaultView() mgl32.Mat4 {
	return mgl32.HomogRotate3DX(mgl32.DegToRad(20)).Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(-35)))
}

// mesh is one attach (or skin) after world and view transforms.
type mesh struct {
	verts     []mgl32.Vec3
	sets      []scene.MeshSet
	materials []scene.Material
}

// Render draws a single scene. The image is Size*Supersample pixels square.
func Render(s *scene.Scene, opts Options) *image.NRGBA {
	return RenderPlaced([]Placed{{Scene: s, Matrix: mgl32.Ident4()}}, opts)
}

// RenderPlaced draws several scenes into one frame, fitted to their
// combined bounds.
func RenderPlaced(items []Placed, opts Options) *image.NRGBA {
	size := max(opts.Size, 1) * max(opts.Supersample, 1)
	view := opts.View
	if view == (mgl32.Mat4{}) {
		view = DefaultView()
	}
	lc := DefaultLightConfig()
	if opts.Light != nil {
		lc = *opts.Light
	}

	var meshes []mesh
	for _, p := range items {
		meshes = append(meshes, collect(p, view)...)
	}

	lo, hi, ok := meshBounds(meshes)
	fb := NewFrameBuffer(size, size)
	if !ok {
		return fb.Image()
	}

	cx, cy := float64(lo[0]+hi[0])/2, float64(lo[1]+hi[1])/2
	span := max(float64(hi[0]-lo[0]), float64(hi[1]-lo[1]), 0.001)
	margin := float64(size) / 32
	scale := (float64(size) - 2*margin) / span
	half := float64(size) / 2

	project := func(p mgl32.Vec3) screenVertex {
		return screenVertex{
			x: (float64(p[0])-cx)*scale + half,
			y: half - (float64(p[1])-cy)*scale,
			z: float64(p[2]) * scale,
		}
	}

	for _, m := range meshes {
		projected := make([]screenVertex, len(m.verts))
		for i, p := range m.verts {
			projected[i] = project(p)
		}
		for _, set := range m.sets {
			surf := surfaceFor(set, m.materials, opts.Textures)
			for _, poly := range set.Polygons {
				for _, tri := range triangulate(set.Primitive, len(poly)) {
					var sv [3]screenVertex
					valid := true
					for k, ci := range tri {
						corner := poly[ci]
						if int(corner.Index) >= len(projected) {
							valid = false
							break
						}
						sv[k] = projected[corner.Index]
						sv[k].u, sv[k].v = float64(corner.UV[0]), float64(corner.UV[1])
						sv[k].tint = tint(corner.Color)
					}
					if valid {
						fb.drawTriangle(sv[0], sv[1], sv[2], surf, &lc)
					}
				}
			}
		}
	}

	return fb.Image()
}

// collect flattens a placed scene into view-space meshes. Skinned attaches
// are drawn once from their merged buffer in the anchor's space; hidden
// nodes are skipped.
func collect(p Placed, view mgl32.Mat4) []mesh {
	s := p.Scene
	if s == nil {
		return nil
	}
	base := p.Matrix
	if base == (mgl32.Mat4{}) {
		base = mgl32.Ident4()
	}
	base = view.Mul4(base)

	var out []mesh
	skinned := make(map[*scene.Attach]bool)
	if s.Armature != nil {
		anchor := base.Mul4(s.Armature.Root.World())
		for _, sk := range s.Armature.Skins {
			skinned[sk.Attach] = true
			out = append(out, mesh{verts: transform(sk.Vertices, anchor), sets: sk.Sets, materials: sk.Attach.Materials})
		}
	}
	for _, n := range s.Nodes {
		if n.Attach == nil || skinned[n.Attach] || n.Flags&scene.FlagHide != 0 {
			continue
		}
		world := base.Mul4(n.World())
		out = append(out, mesh{verts: transform(n.Attach.Vertices, world), sets: n.Attach.Sets, materials: n.Attach.Materials})
	}
	return out
}

func transform(vs []scene.Vertex, m mgl32.Mat4) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(vs))
	for i, v := range vs {
		out[i] = mgl32.TransformCoordinate(v.Position, m)
	}
	return out
}

func meshBounds(meshes []mesh) (lo, hi mgl32.Vec3, ok bool) {
	for _, m := range meshes {
		for _, p := range m.verts {
			if !ok {
				lo, hi, ok = p, p, true
				continue
			}
			for k := 0; k < 3; k++ {
				lo[k] = min(lo[k], p[k])
				hi[k] = max(hi[k], p[k])
			}
		}
	}
	return lo, hi, ok
}

// surfaceFor picks the texture and fallback color of a mesh set.
func surfaceFor(set scene.MeshSet, mats []scene.Material, textures texture.Resolver) *surface {
	s := &surface{base: color.NRGBA{160, 160, 170, 255}, useUV: set.HasUV, tinted: set.HasColor}
	if set.Material < 0 || set.Material >= len(mats) {
		return s
	}
	mat := mats[set.Material]
	if mat.Diffuse != 0 {
		s.base = nrgba(mat.Diffuse)
		s.base.A = 255
	}
	if textures != nil {
		s.tex = textures.Resolve(mat.Texture)
	}
	return s
}

// triangulate returns corner triples for one polygon of n corners.
func triangulate(p scene.Primitive, n int) [][3]int {
	if n < 3 {
		return nil
	}
	var out [][3]int
	switch p {
	case scene.Strips:
		for i := 0; i+2 < n; i++ {
			if i%2 == 0 {
				out = append(out, [3]int{i, i + 1, i + 2})
			} else {
				out = append(out, [3]int{i + 1, i, i + 2})
			}
		}
	default:
		// triangles, quads and ngons all fan from the first corner
		for i := 1; i+1 < n; i++ {
			out = append(out, [3]int{0, i, i + 1})
		}
	}
	return out
}

func nrgba(c scene.Color) color.NRGBA {
	return color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: uint8(c >> 24)}
}

func tint(c scene.Color) [4]float64 {
	n := nrgba(c)
	return [4]float64{float64(n.R) / 255, float64(n.G) / 255, float64(n.B) / 255, float64(n.A) / 255}
}
