package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sa-mdl-tools/internal/scene"
)

type fixedTextures map[uint32]*image.NRGBA

func (f fixedTextures) Resolve(id uint32) *image.NRGBA { return f[id] }

func solid(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// square returns a one-node scene holding a unit quad at depth z.
func square(z float32, mat scene.Material) *scene.Scene {
	a := scene.NewAttach(scene.FormatBasic, 0x10)
	a.Vertices = []scene.Vertex{
		{Position: mgl32.Vec3{0, 0, z}}, {Position: mgl32.Vec3{1, 0, z}},
		{Position: mgl32.Vec3{1, 1, z}}, {Position: mgl32.Vec3{0, 1, z}},
	}
	a.Materials = []scene.Material{mat}
	a.Sets = []scene.MeshSet{{
		Primitive: scene.Quads,
		HasUV:     true,
		Polygons:  [][]scene.Corner{{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}}},
	}}
	n := &scene.Node{Transform: scene.IdentityTransform(), Attach: a, MeshPtr: a.Address}
	return &scene.Scene{Format: scene.FormatBasic, Nodes: []*scene.Node{n}, Roots: []*scene.Node{n}, Attaches: []*scene.Attach{a}}
}

func flat() Options {
	return Options{Size: 32, Supersample: 1, View: mgl32.Ident4()}
}

func TestRenderTexturedQuad(t *testing.T) {
	opts := flat()
	opts.Textures = fixedTextures{5: solid(color.NRGBA{255, 0, 0, 255})}

	img := Render(square(0, scene.Material{Texture: 5}), opts)
	require.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

	center := img.NRGBAAt(16, 16)
	assert.Equal(t, uint8(255), center.A)
	assert.Greater(t, center.R, center.G)
	assert.Zero(t, img.NRGBAAt(0, 0).A)
}

func TestRenderDepthAndFallbackColor(t *testing.T) {
	red := square(0, scene.Material{Diffuse: 0xFFFF0000})
	green := square(1, scene.Material{Diffuse: 0xFF00FF00})

	img := RenderPlaced([]Placed{
		{Scene: red, Matrix: mgl32.Ident4()},
		{Scene: green, Matrix: mgl32.Ident4()},
	}, flat())
	c := img.NRGBAAt(16, 16)
	assert.Greater(t, c.G, c.R)
}

func TestRenderPlacedSideBySide(t *testing.T) {
	s := square(0, scene.Material{})
	img := RenderPlaced([]Placed{
		{Scene: s, Matrix: mgl32.Ident4()},
		{Scene: s, Matrix: mgl32.Translate3D(3, 0, 0)},
	}, flat())

	// four units wide: the gap between the squares stays empty
	assert.NotZero(t, img.NRGBAAt(4, 16).A)
	assert.Zero(t, img.NRGBAAt(16, 16).A)
	assert.NotZero(t, img.NRGBAAt(27, 16).A)
}

func TestRenderSkipsHiddenAndEmpty(t *testing.T) {
	s := square(0, scene.Material{})
	s.Nodes[0].Flags |= scene.FlagHide

	opts := flat()
	opts.Supersample = 2
	img := Render(s, opts)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	for i := 3; i < len(img.Pix); i += 4 {
		require.Zero(t, img.Pix[i])
	}

	assert.Equal(t, 32, Render(&scene.Scene{}, flat()).Bounds().Dx())
}

func TestRenderSkin(t *testing.T) {
	s := square(0, scene.Material{})
	a := s.Attaches[0]
	s.Armature = &scene.Armature{
		Root: s.Nodes[0],
		Skins: []*scene.Skin{{
			Attach:   a,
			Vertices: a.Vertices,
			Sets:     a.Sets,
		}},
	}
	// the node's own buffer is ignored in favour of the skin
	a.Vertices = nil

	img := Render(s, flat())
	assert.NotZero(t, img.NRGBAAt(16, 16).A)
}

func TestTriangulate(t *testing.T) {
	assert.Equal(t, [][3]int{{0, 1, 2}}, triangulate(scene.Triangles, 3))
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, triangulate(scene.Quads, 4))
	assert.Equal(t, [][3]int{{0, 1, 2}, {2, 1, 3}, {2, 3, 4}}, triangulate(scene.Strips, 5))
	assert.Nil(t, triangulate(scene.NGons, 2))
}

func TestSampleTextureWraps(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	tex.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})
	tex.SetNRGBA(1, 0, color.NRGBA{200, 0, 0, 255})

	assert.Equal(t, uint8(0), SampleTexture(tex, 0, 0).R)
	assert.Equal(t, uint8(100), SampleTexture(tex, 1.5, 0).R)
	assert.Equal(t, uint8(100), SampleTexture(tex, -0.5, 0).R)
}
