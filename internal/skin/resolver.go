// Package skin classifies CHUNK models whose geometry is shared by several
// bones and merges each shared attach into one weighted vertex buffer.
package skin

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/scene"
)

// Options control the merge.
type Options struct {
	// DedupVertices coalesces merged vertices with identical position,
	// normal and weights, remapping polygon corners.
	DedupVertices bool
	Logger        *zap.Logger
}

// IsArmature reports whether some attach is referenced by more than one node.
func IsArmature(attaches []*scene.Attach) bool {
	for _, a := range attaches {
		if a.IsWeighted() {
			return true
		}
	}
	return false
}

// Resolve sets s.Armature for a CHUNK scene with at least one weighted
// attach. The first node becomes the anchor and every other node a bone.
// It must run after every attach has been decoded and bound, since the
// referencing node sets decide which bone each weighted block belongs to.
func Resolve(s *scene.Scene, opts Options) error {
	s.Armature = nil
	if s.Format != scene.FormatChunk || len(s.Nodes) == 0 || !IsArmature(s.Attaches) {
		return nil
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	anchor := s.Nodes[0]
	arm := &scene.Armature{Root: anchor, Bones: s.Nodes[1:]}
	toAnchor := anchor.World().Inv()

	for _, a := range s.Attaches {
		if !a.IsWeighted() {
			continue
		}
		sk, err := merge(a, s.Nodes, toAnchor)
		if err != nil {
			return err
		}
		before := len(sk.Vertices)
		if opts.DedupVertices {
			Dedup(sk)
		}
		log.Debug("merged weighted attach",
			zap.String("attach", a.Name),
			zap.Ints("bones", a.References()),
			zap.Int("vertices", before),
			zap.Int("deduped", before-len(sk.Vertices)))
		arm.Skins = append(arm.Skins, sk)
	}

	s.Armature = arm
	return nil
}

// merge sums every bone's contribution per vertex index. The referencing
// nodes in ascending id order are slots 0..n-1. Plain vertices belong to
// slot 0 with weight 1; weighted entries are already scaled by their weight,
// so only the bone translation needs scaling.
func merge(a *scene.Attach, nodes []*scene.Node, toAnchor mgl32.Mat4) (*scene.Skin, error) {
	refs := a.References()
	bones := make([]mgl32.Mat4, len(refs))
	for i, id := range refs {
		if id >= len(nodes) {
			return nil, errors.New(errors.PhaseSkin, errors.KindCorruptAttach).
				At(a.Address).
				Detail("referenced by node %d of %d", id, len(nodes)).
				Build()
		}
		bones[i] = toAnchor.Mul4(nodes[id].World())
	}

	n := a.VertexCount()
	sk := &scene.Skin{
		Attach:   a,
		Vertices: make([]scene.Vertex, n),
		Weights:  make([][]scene.BoneWeight, n),
		Sets:     cloneSets(a.Sets),
	}
	add := func(i int, slot int, weight float32, p, nrm mgl32.Vec3) {
		m := bones[slot]
		v := &sk.Vertices[i]
		v.Position = v.Position.Add(mgl32.TransformNormal(p, m)).Add(m.Col(3).Vec3().Mul(weight))
		v.Normal = v.Normal.Add(mgl32.TransformNormal(nrm, m))
		sk.Weights[i] = append(sk.Weights[i], scene.BoneWeight{Node: refs[slot], Weight: weight})
	}

	for i, v := range a.Vertices {
		add(i, 0, 1, v.Position, v.Normal)
	}
	for _, b := range a.Weighted {
		if int(b.Slot) >= len(refs) {
			return nil, errors.New(errors.PhaseSkin, errors.KindCorruptAttach).
				At(a.Address).
				Detail("weighted block for slot %d, attach has %d bones", b.Slot, len(refs)).
				Build()
		}
		for _, e := range b.Entries {
			add(int(e.Index), int(b.Slot), e.Weight, e.Position, e.Normal)
		}
	}

	for i := range sk.Vertices {
		if nv := sk.Vertices[i].Normal; nv.Len() > 0 {
			sk.Vertices[i].Normal = nv.Normalize()
		}
	}
	return sk, nil
}

func cloneSets(sets []scene.MeshSet) []scene.MeshSet {
	out := make([]scene.MeshSet, len(sets))
	for i, s := range sets {
		out[i] = s
		out[i].Polygons = make([][]scene.Corner, len(s.Polygons))
		for j, p := range s.Polygons {
			out[i].Polygons[j] = append([]scene.Corner(nil), p...)
		}
	}
	return out
}
