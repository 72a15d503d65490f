package attach

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

// GC layout
//
//	attach     0x20: u32 attributes, u32 materials, u32 meshes,
//	                 u16 materialCount, u16 meshCount, f32 center[3], f32 radius
//	attribute  0x0C: u8 type, u8 reserved, u16 count, u32 data, u32 size
//	mesh       0x10: u32 material, u32 indexFlags, u32 primitives, u32 size
//
// A mesh's primitive data is a run of blocks: u8 type, u16 vertexCount, then
// per vertex a u16 position index optionally followed by u16 color and u16
// uv indices, as selected by indexFlags.
const (
	gcAttachSize    = 0x20
	gcAttributeSize = 0x0C
	gcMeshSize      = 0x10

	gcAttrPosition uint8 = 1
	gcAttrNormal   uint8 = 2
	gcAttrColor    uint8 = 3
	gcAttrUV       uint8 = 4
	gcAttrEnd      uint8 = 0xFF

	gcIndexColor uint32 = 1 << 0
	gcIndexUV    uint32 = 1 << 1

	gcQuads     uint8 = 0x80
	gcTriangles uint8 = 0x90
	gcStrip     uint8 = 0x98
	gcFan       uint8 = 0xA0
)

var gcPrimitives = map[uint8]scene.Primitive{
	gcTriangles: scene.Triangles,
	gcQuads:     scene.Quads,
	gcFan:       scene.NGons,
	gcStrip:     scene.Strips,
}

func gcPrimitiveCode(p scene.Primitive) uint8 {
	for code, prim := range gcPrimitives {
		if prim == p {
			return code
		}
	}
	return gcTriangles
}

type gcCodec struct{}

func (gcCodec) Format() scene.Format { return scene.FormatGC }

// gcArrays holds the decoded attribute arrays of one attach.
type gcArrays struct {
	colors []scene.Color
	uvs    []mgl32.Vec2
}

func (gcCodec) Read(r *space.Reader, addr uint32, ordinal int, names *labels.Table) (*scene.Attach, error) {
	r = r.WithPhase(errors.PhaseAttach)
	c := r.At(addr)
	attrPtr := c.U32()
	matPtr := c.U32()
	meshPtr := c.U32()
	matCount := int(c.U16())
	meshCount := int(c.U16())
	center := c.Vec3()
	radius := c.F32()
	if err := c.Err(); err != nil {
		return nil, err
	}

	a := scene.NewAttach(scene.FormatGC, addr)
	a.Name = names.Resolve(addr, labels.Attach, ordinal)
	a.Center, a.Radius = center, radius

	arrays, err := readGCAttributes(r, attrPtr, a)
	if err != nil {
		return nil, err
	}

	if matCount > 0 {
		if _, err := r.Bytes(matPtr, matCount*materialSize); err != nil {
			return nil, err
		}
		mc := r.At(matPtr)
		a.Materials = make([]scene.Material, matCount)
		for i := range a.Materials {
			a.Materials[i] = readMaterial(mc)
		}
	}

	if meshCount > 0 {
		if _, err := r.Bytes(meshPtr, meshCount*gcMeshSize); err != nil {
			return nil, err
		}
	}
	mc := r.At(meshPtr)
	for i := 0; i < meshCount; i++ {
		material := mc.U32()
		flags := mc.U32()
		primPtr := mc.U32()
		primSize := mc.U32()
		if err := mc.Err(); err != nil {
			return nil, err
		}
		if flags&^(gcIndexColor|gcIndexUV) != 0 {
			return nil, corrupt(addr, "mesh %d: index flags 0x%x", i, flags)
		}
		if material > math.MaxInt32 || !validMaterial(int(material), matCount) {
			return nil, corrupt(addr, "mesh %d: material %d of %d", i, material, matCount)
		}
		// An index into an absent array fails the range check below.
		sets, err := readGCPrimitives(r, primPtr, primSize, len(a.Vertices), arrays, scene.MeshSet{
			Material: int(material),
			HasColor: flags&gcIndexColor != 0,
			HasUV:    flags&gcIndexUV != 0,
		})
		if err != nil {
			return nil, err
		}
		a.Sets = append(a.Sets, sets...)
	}
	return a, nil
}

func readGCAttributes(r *space.Reader, addr uint32, a *scene.Attach) (gcArrays, error) {
	var arrays gcArrays
	if addr == 0 {
		return arrays, nil
	}
	var normals []mgl32.Vec3
	for c := r.At(addr); ; {
		typ := c.U8()
		c.Skip(1)
		count := int(c.U16())
		data := c.U32()
		size := c.U32()
		if err := c.Err(); err != nil {
			return arrays, unterminatedChunks(err)
		}
		if typ == gcAttrEnd {
			break
		}
		if _, err := r.Bytes(data, int(size)); err != nil {
			return arrays, err
		}

		d := r.At(data)
		switch typ {
		case gcAttrPosition:
			if count*12 > int(size) {
				return arrays, corrupt(addr, "position attribute of %d bytes holds %d entries", size, count)
			}
			a.Vertices = make([]scene.Vertex, count)
			for i := range a.Vertices {
				a.Vertices[i].Position = d.Vec3()
			}
		case gcAttrNormal:
			if count*12 > int(size) {
				return arrays, corrupt(addr, "normal attribute of %d bytes holds %d entries", size, count)
			}
			normals = make([]mgl32.Vec3, count)
			for i := range normals {
				normals[i] = d.Vec3()
			}
		case gcAttrColor:
			if count*4 > int(size) {
				return arrays, corrupt(addr, "color attribute of %d bytes holds %d entries", size, count)
			}
			arrays.colors = make([]scene.Color, count)
			for i := range arrays.colors {
				arrays.colors[i] = scene.Color(d.U32())
			}
		case gcAttrUV:
			if count*8 > int(size) {
				return arrays, corrupt(addr, "uv attribute of %d bytes holds %d entries", size, count)
			}
			arrays.uvs = make([]mgl32.Vec2, count)
			for i := range arrays.uvs {
				arrays.uvs[i] = mgl32.Vec2{d.F32(), d.F32()}
			}
		default:
			return arrays, corrupt(addr, "unknown attribute type 0x%02x", typ)
		}
		if err := d.Err(); err != nil {
			return arrays, err
		}
	}

	if normals != nil {
		if len(normals) != len(a.Vertices) {
			return arrays, corrupt(addr, "%d normals for %d positions", len(normals), len(a.Vertices))
		}
		for i, n := range normals {
			a.Vertices[i].Normal = n
		}
	}
	return arrays, nil
}

// readGCPrimitives decodes one mesh's primitive blocks. A change of primitive
// type starts a new set sharing the mesh's material and index flags.
func readGCPrimitives(r *space.Reader, addr, size uint32, nv int, arrays gcArrays, proto scene.MeshSet) ([]scene.MeshSet, error) {
	if _, err := r.Bytes(addr, int(size)); err != nil {
		return nil, err
	}
	var sets []scene.MeshSet
	end := addr + size
	c := r.At(addr)
	for c.Offset() < end {
		code := c.U8()
		count := int(c.U16())
		if err := c.Err(); err != nil {
			return nil, err
		}
		prim, ok := gcPrimitives[code]
		if !ok {
			return nil, corrupt(addr, "unknown primitive type 0x%02x", code)
		}
		if len(sets) == 0 || sets[len(sets)-1].Primitive != prim {
			s := proto
			s.Primitive = prim
			sets = append(sets, s)
		}
		set := &sets[len(sets)-1]

		corners := make([]scene.Corner, count)
		for i := range corners {
			k := &corners[i]
			k.Index = c.U16()
			if set.HasColor {
				ci := int(c.U16())
				if c.Err() == nil && ci >= len(arrays.colors) {
					return nil, corrupt(addr, "color index %d of %d", ci, len(arrays.colors))
				}
				if ci < len(arrays.colors) {
					k.Color = arrays.colors[ci]
				}
			}
			if set.HasUV {
				ui := int(c.U16())
				if c.Err() == nil && ui >= len(arrays.uvs) {
					return nil, corrupt(addr, "uv index %d of %d", ui, len(arrays.uvs))
				}
				if ui < len(arrays.uvs) {
					k.UV = arrays.uvs[ui]
				}
			}
			if c.Err() == nil && int(k.Index) >= nv {
				return nil, corrupt(addr, "vertex %d of %d", k.Index, nv)
			}
		}
		if err := c.Err(); err != nil {
			return nil, err
		}
		if c.Offset() > end {
			return nil, corrupt(addr, "primitive data overruns %d bytes", size)
		}
		if count == 0 {
			continue
		}

		if n := cornerCount(prim); n > 0 {
			if count%n != 0 {
				return nil, corrupt(addr, "%d corners do not form %v", count, prim)
			}
			for i := 0; i < count; i += n {
				set.Polygons = append(set.Polygons, corners[i:i+n:i+n])
			}
		} else {
			if count < 3 {
				return nil, corrupt(addr, "%v of %d corners", prim, count)
			}
			set.Polygons = append(set.Polygons, corners)
		}
	}
	return sets, nil
}

func (gcCodec) Write(w *space.Writer, a *scene.Attach, names *labels.Table, cache *Cache) (uint32, error) {
	if addr, ok := cache.Lookup(a); ok {
		return addr, nil
	}
	if err := checkSets(a); err != nil {
		return 0, err
	}
	if len(a.Weighted) > 0 {
		return 0, corrupt(a.Address, "weighted vertices need the chunk layout")
	}
	if len(a.Vertices) > maxChunkCount {
		return 0, corrupt(a.Address, "%d vertices exceed one attribute array", len(a.Vertices))
	}

	colors := newIndexer[scene.Color]()
	uvs := newIndexer[mgl32.Vec2]()
	for _, s := range a.Sets {
		forCorners(s.Polygons, func(k *scene.Corner) {
			if s.HasColor {
				colors.add(k.Color)
			}
			if s.HasUV {
				uvs.add(k.UV)
			}
		})
	}
	if colors.len() > maxChunkCount || uvs.len() > maxChunkCount {
		return 0, corrupt(a.Address, "%d colors and %d uvs exceed 16-bit indices", colors.len(), uvs.len())
	}

	w.Align(4)
	type attr struct {
		typ   uint8
		count int
		data  uint32
		size  uint32
	}
	var attrs []attr
	emit := func(typ uint8, count int, write func()) {
		start := w.Tell()
		write()
		attrs = append(attrs, attr{typ, count, start, w.Tell() - start})
	}
	if len(a.Vertices) > 0 {
		emit(gcAttrPosition, len(a.Vertices), func() {
			for _, v := range a.Vertices {
				w.WriteVec3(v.Position)
			}
		})
		if a.HasNormals() {
			emit(gcAttrNormal, len(a.Vertices), func() {
				for _, v := range a.Vertices {
					w.WriteVec3(v.Normal)
				}
			})
		}
	}
	if colors.len() > 0 {
		emit(gcAttrColor, colors.len(), func() {
			for _, col := range colors.values {
				w.WriteU32(uint32(col))
			}
		})
	}
	if uvs.len() > 0 {
		emit(gcAttrUV, uvs.len(), func() {
			for _, uv := range uvs.values {
				w.WriteF32(uv[0])
				w.WriteF32(uv[1])
			}
		})
	}

	attrAddr := w.Tell()
	for _, at := range attrs {
		w.WriteU8(at.typ)
		w.WriteU8(0)
		w.WriteU16(uint16(at.count))
		w.WriteU32(at.data)
		w.WriteU32(at.size)
	}
	w.WriteU8(gcAttrEnd)
	w.WriteBytes(make([]byte, gcAttributeSize-1))

	var matAddr uint32
	if len(a.Materials) > 0 {
		matAddr = w.Tell()
		for _, m := range a.Materials {
			writeMaterial(w, m)
		}
	}

	type block struct{ addr, size uint32 }
	blocks := make([]block, len(a.Sets))
	for i, s := range a.Sets {
		blocks[i].addr = w.Tell()
		writeGCPrimitives(w, s, colors, uvs)
		blocks[i].size = w.Tell() - blocks[i].addr
	}

	w.Align(4)
	var meshAddr uint32
	if len(a.Sets) > 0 {
		meshAddr = w.Tell()
	}
	for i, s := range a.Sets {
		var flags uint32
		if s.HasColor {
			flags |= gcIndexColor
		}
		if s.HasUV {
			flags |= gcIndexUV
		}
		w.WriteU32(uint32(s.Material))
		w.WriteU32(flags)
		w.WriteU32(blocks[i].addr)
		w.WriteU32(blocks[i].size)
	}

	addr := w.Tell()
	w.WriteU32(attrAddr)
	w.WriteU32(matAddr)
	w.WriteU32(meshAddr)
	w.WriteU16(uint16(len(a.Materials)))
	w.WriteU16(uint16(len(a.Sets)))
	w.WriteVec3(a.Center)
	w.WriteF32(a.Radius)

	register(a, addr, names, cache)
	return addr, nil
}

// writeGCPrimitives emits one set. Fixed-size polygons are packed into as few
// blocks as the u16 vertex count allows; ngons and strips take one block each.
// An empty set is a single empty block so its primitive survives a re-read.
func writeGCPrimitives(w *space.Writer, s scene.MeshSet, colors *indexer[scene.Color], uvs *indexer[mgl32.Vec2]) {
	code := gcPrimitiveCode(s.Primitive)
	corner := func(k scene.Corner) {
		w.WriteU16(k.Index)
		if s.HasColor {
			w.WriteU16(colors.index[k.Color])
		}
		if s.HasUV {
			w.WriteU16(uvs.index[k.UV])
		}
	}

	if len(s.Polygons) == 0 {
		w.WriteU8(code)
		w.WriteU16(0)
		return
	}

	n := cornerCount(s.Primitive)
	if n == 0 {
		for _, poly := range s.Polygons {
			w.WriteU8(code)
			w.WriteU16(uint16(len(poly)))
			for _, k := range poly {
				corner(k)
			}
		}
		return
	}

	perBlock := maxChunkCount / n
	for start := 0; start < len(s.Polygons); start += perBlock {
		polys := s.Polygons[start:min(start+perBlock, len(s.Polygons))]
		w.WriteU8(code)
		w.WriteU16(uint16(len(polys) * n))
		for _, poly := range polys {
			for _, k := range poly {
				corner(k)
			}
		}
	}
}

// indexer assigns dense indices to distinct values in first-seen order.
type indexer[T comparable] struct {
	index  map[T]uint16
	values []T
}

func newIndexer[T comparable]() *indexer[T] {
	return &indexer[T]{index: make(map[T]uint16)}
}

func (x *indexer[T]) add(v T) {
	if _, ok := x.index[v]; ok {
		return
	}
	x.index[v] = uint16(len(x.values))
	x.values = append(x.values, v)
}

func (x *indexer[T]) len() int { return len(x.values) }
