package placement

import "github.com/go-gl/mathgl/mgl32"

// Entry is one model placed by a layout list.
type Entry struct {
	Line      int    // 1-based line in the list
	Source    string // file name as written, e.g. "obj_palm.sa2mdl"
	ModelFile string // resolved path beside the list, always .sa2mdl
	Position  mgl32.Vec3
	Rotation  mgl32.Vec3 // radians, Euler XYZ
	Scale     mgl32.Vec3
}

// Name is the model file stem.
func (e Entry) Name() string {
	return stem(e.Source)
}

// Matrix builds T·Rz·Ry·Rx·S for the entry, so X is applied first.
func (e Entry) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(e.Position[0], e.Position[1], e.Position[2])
	m = m.Mul4(mgl32.HomogRotate3DZ(e.Rotation[2]))
	m = m.Mul4(mgl32.HomogRotate3DY(e.Rotation[1]))
	m = m.Mul4(mgl32.HomogRotate3DX(e.Rotation[0]))
	return m.Mul4(mgl32.Scale3D(e.Scale[0], e.Scale[1], e.Scale[2]))
}
