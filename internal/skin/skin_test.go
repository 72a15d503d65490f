package skin

import (
	stderrors "errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/scene"
)

// rig builds an anchor with two bone children at (0,10,0) and (5,0,0). Both
// bones reference one attach.
func rig(anchorOffset mgl32.Vec3) (*scene.Scene, *scene.Attach) {
	anchor := &scene.Node{ID: 0, Transform: scene.IdentityTransform()}
	anchor.Transform.Position = anchorOffset
	upper := &scene.Node{ID: 1, Parent: anchor, Transform: scene.IdentityTransform()}
	upper.Transform.Position = mgl32.Vec3{0, 10, 0}
	lower := &scene.Node{ID: 2, Parent: anchor, Transform: scene.IdentityTransform()}
	lower.Transform.Position = mgl32.Vec3{5, 0, 0}
	anchor.Children = []*scene.Node{upper, lower}

	half := func(idx uint16) scene.WeightedVertex {
		return scene.WeightedVertex{Index: idx, Weight: 0.5, Position: mgl32.Vec3{0, 0, 0.5}, Normal: mgl32.Vec3{0, 0.5, 0}}
	}
	a := scene.NewAttach(scene.FormatChunk, 0x100)
	a.Vertices = []scene.Vertex{{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 1, 0}}}
	a.Weighted = []scene.WeightedBlock{
		{Slot: 0, Entries: []scene.WeightedVertex{half(1), half(2)}},
		{Slot: 1, Entries: []scene.WeightedVertex{half(1), half(2)}},
	}
	a.Sets = []scene.MeshSet{{Primitive: scene.Triangles, Polygons: [][]scene.Corner{{{Index: 0}, {Index: 1}, {Index: 2}}}}}
	for _, n := range []*scene.Node{upper, lower} {
		n.MeshPtr = a.Address
		n.Attach = a
		a.AffectedBy.Add(uint32(n.ID))
	}

	return &scene.Scene{
		Format:   scene.FormatChunk,
		Nodes:    []*scene.Node{anchor, upper, lower},
		Roots:    []*scene.Node{anchor},
		Attaches: []*scene.Attach{a},
	}, a
}

func assertVec(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "component %d of %v", i, got)
	}
}

func TestResolveMergesContributions(t *testing.T) {
	for _, offset := range []mgl32.Vec3{{}, {100, -3, 7}} {
		s, a := rig(offset)
		require.NoError(t, Resolve(s, Options{}))
		require.True(t, s.IsArmature())

		arm := s.Armature
		assert.Same(t, s.Nodes[0], arm.Root)
		assert.Equal(t, s.Nodes[1:], arm.Bones)
		require.Len(t, arm.Skins, 1)

		sk := arm.Skins[0]
		assert.Same(t, a, sk.Attach)
		require.Len(t, sk.Vertices, 3)

		// plain vertex: slot 0 with full weight, bone space of the upper bone
		assertVec(t, mgl32.Vec3{1, 10, 0}, sk.Vertices[0].Position)
		assertVec(t, mgl32.Vec3{0, 1, 0}, sk.Vertices[0].Normal)
		assert.Equal(t, []scene.BoneWeight{{Node: 1, Weight: 1}}, sk.Weights[0])

		// 0.5·(0,0,1)+0.5·(0,10,0) + 0.5·(0,0,1)+0.5·(5,0,0)
		assertVec(t, mgl32.Vec3{2.5, 5, 1}, sk.Vertices[1].Position)
		assertVec(t, mgl32.Vec3{0, 1, 0}, sk.Vertices[1].Normal)
		assert.Equal(t, []scene.BoneWeight{{Node: 1, Weight: 0.5}, {Node: 2, Weight: 0.5}}, sk.Weights[1])
	}
}

func TestResolveLeavesAttachUntouched(t *testing.T) {
	s, a := rig(mgl32.Vec3{})
	require.NoError(t, Resolve(s, Options{DedupVertices: true}))
	assert.Equal(t, uint16(2), a.Sets[0].Polygons[0][2].Index)
	assert.Len(t, a.Vertices, 1)
}

func TestDedupAfterMerge(t *testing.T) {
	s, _ := rig(mgl32.Vec3{})
	require.NoError(t, Resolve(s, Options{DedupVertices: true}))

	sk := s.Armature.Skins[0]
	require.Len(t, sk.Vertices, 2)
	require.Len(t, sk.Weights, 2)
	corners := sk.Sets[0].Polygons[0]
	assert.Equal(t, []uint16{0, 1, 1}, []uint16{corners[0].Index, corners[1].Index, corners[2].Index})
}

func TestDedupKeepsDistinctWeights(t *testing.T) {
	sk := &scene.Skin{
		Vertices: []scene.Vertex{{}, {}},
		Weights:  [][]scene.BoneWeight{{{Node: 1, Weight: 1}}, {{Node: 2, Weight: 1}}},
		Sets:     []scene.MeshSet{{Polygons: [][]scene.Corner{{{Index: 1}}}}},
	}
	Dedup(sk)
	assert.Len(t, sk.Vertices, 2)
	assert.Equal(t, uint16(1), sk.Sets[0].Polygons[0][0].Index)
}

func TestNotArmatureWhenUnshared(t *testing.T) {
	s, a := rig(mgl32.Vec3{})
	a.AffectedBy.Remove(2)
	s.Nodes[2].Attach, s.Nodes[2].MeshPtr = nil, 0

	assert.False(t, IsArmature(s.Attaches))
	require.NoError(t, Resolve(s, Options{}))
	assert.False(t, s.IsArmature())
	assert.Nil(t, s.Armature)
}

func TestOnlyChunkScenesAreSkinned(t *testing.T) {
	s, _ := rig(mgl32.Vec3{})
	s.Format = scene.FormatGC
	require.NoError(t, Resolve(s, Options{}))
	assert.Nil(t, s.Armature)
}

func TestSlotBeyondBones(t *testing.T) {
	s, a := rig(mgl32.Vec3{})
	a.Weighted = append(a.Weighted, scene.WeightedBlock{Slot: 2, Entries: []scene.WeightedVertex{{Index: 0}}})

	err := Resolve(s, Options{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.CorruptAttach))
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseSkin, Kind: errors.KindCorruptAttach}))
	assert.Nil(t, s.Armature)
}
