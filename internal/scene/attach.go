package scene

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/go-gl/mathgl/mgl32"
)

// Color is a packed ARGB8888 value.
type Color uint32

// Primitive selects how a polygon's corners are assembled.
type Primitive uint8

const (
	Triangles Primitive = iota // 3 corners per polygon
	Quads                      // 4 corners per polygon
	NGons                      // n corners, fan order
	Strips                     // n corners, alternating winding
)

func (p Primitive) String() string {
	switch p {
	case Triangles:
		return "triangles"
	case Quads:
		return "quads"
	case NGons:
		return "ngons"
	case Strips:
		return "strips"
	}
	return "primitive?"
}

// Vertex is one entry of an attach's vertex buffer.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Corner references a vertex from a polygon and carries per-corner data.
type Corner struct {
	Index uint16
	UV    mgl32.Vec2
	Color Color
}

// MeshSet is the group of polygons drawn with one material.
type MeshSet struct {
	Material  int
	Primitive Primitive
	HasUV     bool
	HasColor  bool
	Polygons  [][]Corner
}

// Material is kept opaque: texture is an ID into an external texture list.
type Material struct {
	Diffuse  Color
	Specular Color
	Exponent float32
	Texture  uint32
	Flags    uint32
}

// WeightedVertex is one bone's contribution to a shared vertex. Position and
// normal are already scaled by Weight.
type WeightedVertex struct {
	Index    uint16
	Weight   float32
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// WeightedBlock holds the contributions of the Slot-th referencing node.
type WeightedBlock struct {
	Slot    uint16
	Entries []WeightedVertex
}

// Attach is a geometry blob referenced by address from one or more nodes.
type Attach struct {
	Address   uint32
	Name      string
	Format    Format
	Vertices  []Vertex
	Weighted  []WeightedBlock // CHUNK layout only
	Sets      []MeshSet
	Materials []Material
	Center    mgl32.Vec3
	Radius    float32

	// AffectedBy holds the ids of every node whose meshPtr is Address.
	AffectedBy *roaring.Bitmap
}

// NewAttach returns an attach with an empty reference set.
func NewAttach(format Format, addr uint32) *Attach {
	return &Attach{Format: format, Address: addr, AffectedBy: roaring.New()}
}

// VertexCount is the size of the addressable vertex range, including
// indices only reached through weighted blocks.
func (a *Attach) VertexCount() int {
	n := len(a.Vertices)
	for _, b := range a.Weighted {
		for _, e := range b.Entries {
			if int(e.Index)+1 > n {
				n = int(e.Index) + 1
			}
		}
	}
	return n
}

// PolygonCount returns the total number of polygons across all sets.
func (a *Attach) PolygonCount() int {
	n := 0
	for _, s := range a.Sets {
		n += len(s.Polygons)
	}
	return n
}

// References returns the ids in AffectedBy in ascending order.
func (a *Attach) References() []int {
	if a.AffectedBy == nil {
		return nil
	}
	ids := a.AffectedBy.ToArray()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// IsWeighted reports whether more than one node references the attach.
func (a *Attach) IsWeighted() bool {
	return a.AffectedBy != nil && a.AffectedBy.GetCardinality() > 1
}

// HasNormals reports whether any vertex carries a non-zero normal.
func (a *Attach) HasNormals() bool {
	for _, v := range a.Vertices {
		if v.Normal != (mgl32.Vec3{}) {
			return true
		}
	}
	return false
}
