package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeFlags are the evaluation flags stored in each node record.
type NodeFlags uint32

const (
	FlagNoTranslate NodeFlags = 1 << iota
	FlagNoRotate
	FlagNoScale
	FlagHide
	FlagNoChildren
	FlagRotateZYX
	FlagNoAnimate
	FlagNoMorph
)

// BAMSToRadians converts a binary angle (0x10000 = one turn) to radians.
func BAMSToRadians(a int32) float32 {
	return float32(float64(a) * 2 * math.Pi / 65536)
}

// Transform is a node's local transform exactly as stored in the file.
type Transform struct {
	Position mgl32.Vec3
	Rotation [3]int32 // binary angles, X Y Z
	Scale    mgl32.Vec3
}

// IdentityTransform has unit scale and no translation or rotation.
func IdentityTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix builds T·R·S. Rotation order is X·Y·Z unless FlagRotateZYX is set.
func (t Transform) Matrix(flags NodeFlags) mgl32.Mat4 {
	m := mgl32.Ident4()
	if flags&FlagNoTranslate == 0 {
		m = mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	}
	if flags&FlagNoRotate == 0 {
		rx := mgl32.HomogRotate3DX(BAMSToRadians(t.Rotation[0]))
		ry := mgl32.HomogRotate3DY(BAMSToRadians(t.Rotation[1]))
		rz := mgl32.HomogRotate3DZ(BAMSToRadians(t.Rotation[2]))
		if flags&FlagRotateZYX != 0 {
			m = m.Mul4(rz).Mul4(ry).Mul4(rx)
		} else {
			m = m.Mul4(rx).Mul4(ry).Mul4(rz)
		}
	}
	if flags&FlagNoScale == 0 {
		m = m.Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
	}
	return m
}

// Node is one entry of the model hierarchy.
type Node struct {
	ID        int // depth-first ordinal
	Name      string
	Address   uint32
	Flags     NodeFlags
	Transform Transform
	MeshPtr   uint32 // 0 = no geometry
	Attach    *Attach

	Parent   *Node // navigational only
	Children []*Node
	Depth    int
}

// Local returns the node's local matrix.
func (n *Node) Local() mgl32.Mat4 {
	return n.Transform.Matrix(n.Flags)
}

// World composes the local matrices of every ancestor, root first.
func (n *Node) World() mgl32.Mat4 {
	m := n.Local()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.Local().Mul4(m)
	}
	return m
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
