package attach

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

// Codec reads and writes one geometry layout. Implementations are stateless;
// read-side deduplication is the caller's address cache, write-side
// deduplication is the Cache passed to Write.
type Codec interface {
	Format() scene.Format
	Read(r *space.Reader, addr uint32, ordinal int, names *labels.Table) (*scene.Attach, error)
	Write(w *space.Writer, a *scene.Attach, names *labels.Table, cache *Cache) (uint32, error)
}

// For returns the codec of a format.
func For(f scene.Format) (Codec, error) {
	switch f {
	case scene.FormatBasic:
		return basicCodec{}, nil
	case scene.FormatChunk:
		return chunkCodec{}, nil
	case scene.FormatGC:
		return gcCodec{}, nil
	}
	return nil, fmt.Errorf("attach: no codec for %v", f)
}

// maxVertices is the index space of a u16 corner index.
const maxVertices = 1 << 16

// materialSize is the on-disk size of a material record in every layout.
const materialSize = 0x14

func corrupt(addr uint32, msg string, args ...any) error {
	return errors.New(errors.PhaseAttach, errors.KindCorruptAttach).At(addr).Detail(msg, args...).Build()
}

// unterminatedChunks reports a list that ran off the end of the file before
// its end marker.
func unterminatedChunks(err error) error {
	return errors.Rephase(err, errors.PhaseAttach, errors.KindOutOfRange, errors.KindUnterminatedList)
}

func readMaterial(c *space.Cursor) scene.Material {
	return scene.Material{
		Diffuse:  scene.Color(c.U32()),
		Specular: scene.Color(c.U32()),
		Exponent: c.F32(),
		Texture:  c.U32(),
		Flags:    c.U32(),
	}
}

func writeMaterial(w *space.Writer, m scene.Material) {
	w.WriteU32(uint32(m.Diffuse))
	w.WriteU32(uint32(m.Specular))
	w.WriteF32(m.Exponent)
	w.WriteU32(m.Texture)
	w.WriteU32(m.Flags)
}

// uvScale is the fixed-point scale of 16-bit texture coordinates.
const uvScale = 256

func uvFromFixed(u, v int16) mgl32.Vec2 {
	return mgl32.Vec2{float32(u) / uvScale, float32(v) / uvScale}
}

func uvToFixed(uv mgl32.Vec2) (int16, int16) {
	return fixed16(uv[0]), fixed16(uv[1])
}

func fixed16(f float32) int16 {
	v := math.Round(float64(f) * uvScale)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// cornerCount returns the fixed polygon size of a primitive, or 0 if variable.
func cornerCount(p scene.Primitive) int {
	switch p {
	case scene.Triangles:
		return 3
	case scene.Quads:
		return 4
	}
	return 0
}

// checkSets validates a mesh set list against vertex and material counts
// before it is written.
func checkSets(a *scene.Attach) error {
	nv := a.VertexCount()
	if nv > maxVertices {
		return corrupt(a.Address, "%d vertices exceed the 16-bit index space", nv)
	}
	for si, s := range a.Sets {
		if !validMaterial(s.Material, len(a.Materials)) {
			return corrupt(a.Address, "set %d: material %d of %d", si, s.Material, len(a.Materials))
		}
		fixed := cornerCount(s.Primitive)
		for pi, poly := range s.Polygons {
			if fixed > 0 && len(poly) != fixed {
				return corrupt(a.Address, "set %d polygon %d: %v need %d corners, got %d", si, pi, s.Primitive, fixed, len(poly))
			}
			if fixed == 0 && (len(poly) < 3 || len(poly) > math.MaxUint16) {
				return corrupt(a.Address, "set %d polygon %d: %d corners", si, pi, len(poly))
			}
			for _, c := range poly {
				if int(c.Index) >= nv {
					return corrupt(a.Address, "set %d polygon %d: vertex %d of %d", si, pi, c.Index, nv)
				}
			}
		}
	}
	return nil
}

func validMaterial(idx, count int) bool {
	if count == 0 {
		return idx == 0
	}
	return idx >= 0 && idx < count
}

func register(a *scene.Attach, addr uint32, names *labels.Table, cache *Cache) {
	if a.Name != "" {
		names.Set(addr, a.Name)
	}
	cache.Store(a, addr)
}
