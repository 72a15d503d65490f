package scene

import "github.com/go-gl/mathgl/mgl32"

// Metadata is passed through unchanged from the file header region.
type Metadata struct {
	Author      string
	Description string
	Animations  []string
	Morphs      []string
}

// BoneWeight binds a merged vertex to one bone.
type BoneWeight struct {
	Node   int
	Weight float32
}

// Skin is a weighted attach merged into one vertex buffer in the space of
// the armature anchor.
type Skin struct {
	Attach   *Attach
	Vertices []Vertex
	Weights  [][]BoneWeight
	Sets     []MeshSet
}

// Armature designates the anchor and bone nodes of a skinned model.
type Armature struct {
	Root  *Node
	Bones []*Node
	Skins []*Skin
}

// Scene is a decoded model file.
type Scene struct {
	Format   Format
	Version  uint8
	Meta     Metadata
	Nodes    []*Node // depth-first order, Nodes[i].ID == i
	Roots    []*Node
	Attaches []*Attach // decode order
	Armature *Armature // nil unless some attach is shared by several nodes
}

// IsArmature reports whether the scene was classified as skinned.
func (s *Scene) IsArmature() bool { return s.Armature != nil }

// Bounds returns the world-space bounding box of every attached vertex.
func (s *Scene) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	for _, n := range s.Nodes {
		if n.Attach == nil {
			continue
		}
		w := n.World()
		for _, v := range n.Attach.Vertices {
			p := mgl32.TransformCoordinate(v.Position, w)
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
