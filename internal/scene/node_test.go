package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestBAMSToRadians(t *testing.T) {
	assert.InDelta(t, 0, BAMSToRadians(0), 1e-6)
	assert.InDelta(t, mgl32.DegToRad(90), BAMSToRadians(0x4000), 1e-6)
	assert.InDelta(t, mgl32.DegToRad(-180), BAMSToRadians(-0x8000), 1e-6)
}

func TestWorldComposesAncestors(t *testing.T) {
	root := &Node{Transform: Transform{Position: mgl32.Vec3{10, 0, 0}, Scale: mgl32.Vec3{2, 2, 2}}}
	child := &Node{Parent: root, Transform: Transform{Position: mgl32.Vec3{0, 1, 0}, Scale: mgl32.Vec3{1, 1, 1}}}
	grandchild := &Node{Parent: child, Transform: Transform{
		Rotation: [3]int32{0, 0, 0x4000},
		Scale:    mgl32.Vec3{1, 1, 1},
	}}
	root.Children = []*Node{child}
	child.Children = []*Node{grandchild}

	p := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, grandchild.World())
	// rotate 90° about Z, then offset by child (0,1,0), then scale 2 and offset 10
	assert.InDelta(t, 10, p[0], 1e-4)
	assert.InDelta(t, 4, p[1], 1e-4)
	assert.InDelta(t, 0, p[2], 1e-4)
}

func TestMatrixHonoursFlags(t *testing.T) {
	tr := Transform{Position: mgl32.Vec3{1, 2, 3}, Scale: mgl32.Vec3{5, 5, 5}}
	m := tr.Matrix(FlagNoTranslate | FlagNoScale)
	assert.True(t, m.ApproxEqual(mgl32.Ident4()))
}

func TestRotationOrder(t *testing.T) {
	tr := Transform{Rotation: [3]int32{0x4000, 0x4000, 0}, Scale: mgl32.Vec3{1, 1, 1}}
	xyz := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 1}, tr.Matrix(0))
	zyx := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 1}, tr.Matrix(FlagRotateZYX))
	assert.False(t, xyz.ApproxEqualThreshold(zyx, 1e-4))
}

func TestWalkOrder(t *testing.T) {
	a := &Node{ID: 0}
	b := &Node{ID: 1, Parent: a}
	c := &Node{ID: 2, Parent: b}
	d := &Node{ID: 3, Parent: a}
	a.Children = []*Node{b, d}
	b.Children = []*Node{c}

	var ids []int
	a.Walk(func(n *Node) { ids = append(ids, n.ID) })
	assert.Equal(t, []int{0, 1, 2, 3}, ids)
}

func TestAttachVertexCountIncludesWeighted(t *testing.T) {
	a := NewAttach(FormatChunk, 0x10)
	a.Vertices = make([]Vertex, 2)
	a.Weighted = []WeightedBlock{{Slot: 1, Entries: []WeightedVertex{{Index: 6, Weight: 0.5}}}}
	assert.Equal(t, 7, a.VertexCount())

	a.AffectedBy.Add(4)
	a.AffectedBy.Add(1)
	assert.Equal(t, []int{1, 4}, a.References())
	assert.True(t, a.IsWeighted())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"sa1": FormatBasic, "SA2": FormatChunk, "gc": FormatGC} {
		got, err := ParseFormat(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("obj")
	assert.Error(t, err)
}
