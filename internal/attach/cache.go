package attach

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"sa-mdl-tools/internal/scene"
)

// Cache records the address each attach was written to. Attaches are keyed
// by identity and by a structural fingerprint, so two distinct but identical
// meshes share one block in the output.
//
// Chunk attaches are keyed by identity only: a chunk block referenced by more
// than one node reads back as an armature.
type Cache struct {
	byAttach map[*scene.Attach]uint32
	byPrint  map[[sha256.Size]byte]uint32
	blocks   int
}

func NewCache() *Cache {
	return &Cache{
		byAttach: make(map[*scene.Attach]uint32),
		byPrint:  make(map[[sha256.Size]byte]uint32),
	}
}

// Lookup returns the address of a or of a structurally identical attach
// written earlier. A fingerprint hit also binds a to that address.
func (c *Cache) Lookup(a *scene.Attach) (uint32, bool) {
	if addr, ok := c.byAttach[a]; ok {
		return addr, true
	}
	if a.Format == scene.FormatChunk {
		return 0, false
	}
	addr, ok := c.byPrint[Fingerprint(a)]
	if ok {
		c.byAttach[a] = addr
	}
	return addr, ok
}

// Store records the address a was written to.
func (c *Cache) Store(a *scene.Attach, addr uint32) {
	c.byAttach[a] = addr
	c.blocks++
	if a.Format != scene.FormatChunk {
		c.byPrint[Fingerprint(a)] = addr
	}
}

// Address returns the address a was written to, by identity only.
func (c *Cache) Address(a *scene.Attach) (uint32, bool) {
	addr, ok := c.byAttach[a]
	return addr, ok
}

// Len returns the number of distinct blocks written.
func (c *Cache) Len() int { return c.blocks }

// Fingerprint hashes every field that reaches the output file. Names and
// addresses are excluded.
func Fingerprint(a *scene.Attach) [sha256.Size]byte {
	h := sha256.New()
	fp := fingerprinter{h: h}

	fp.u32(uint32(a.Format))
	fp.u32(uint32(len(a.Vertices)))
	for _, v := range a.Vertices {
		fp.vec3(v.Position)
		fp.vec3(v.Normal)
	}
	fp.u32(uint32(len(a.Weighted)))
	for _, b := range a.Weighted {
		fp.u32(uint32(b.Slot))
		fp.u32(uint32(len(b.Entries)))
		for _, e := range b.Entries {
			fp.u32(uint32(e.Index))
			fp.f32(e.Weight)
			fp.vec3(e.Position)
			fp.vec3(e.Normal)
		}
	}
	fp.u32(uint32(len(a.Materials)))
	for _, m := range a.Materials {
		fp.u32(uint32(m.Diffuse))
		fp.u32(uint32(m.Specular))
		fp.f32(m.Exponent)
		fp.u32(m.Texture)
		fp.u32(m.Flags)
	}
	fp.u32(uint32(len(a.Sets)))
	for _, s := range a.Sets {
		fp.u32(uint32(s.Material))
		fp.u32(uint32(s.Primitive))
		fp.bool(s.HasUV)
		fp.bool(s.HasColor)
		fp.u32(uint32(len(s.Polygons)))
		for _, poly := range s.Polygons {
			fp.u32(uint32(len(poly)))
			for _, c := range poly {
				fp.u32(uint32(c.Index))
				fp.f32(c.UV[0])
				fp.f32(c.UV[1])
				fp.u32(uint32(c.Color))
			}
		}
	}
	fp.vec3(a.Center)
	fp.f32(a.Radius)

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

type fingerprinter struct {
	h   hash.Hash
	buf [4]byte
}

func (f *fingerprinter) u32(v uint32) {
	binary.LittleEndian.PutUint32(f.buf[:], v)
	f.h.Write(f.buf[:])
}

func (f *fingerprinter) f32(v float32) { f.u32(math.Float32bits(v)) }

func (f *fingerprinter) vec3(v mgl32.Vec3) {
	f.f32(v[0])
	f.f32(v[1])
	f.f32(v[2])
}

func (f *fingerprinter) bool(b bool) {
	if b {
		f.u32(1)
	} else {
		f.u32(0)
	}
}
