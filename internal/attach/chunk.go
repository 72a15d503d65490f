package attach

import (
	"math"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

// CHUNK layout
//
//	attach  0x18: u32 vertexChunks, u32 polyChunks, f32 center[3], f32 radius
//	chunk   0x08: u8 type, u8 flags, u16 slot, u32 payloadSize
//
// Vertex chunks carry u16 offset, u16 count and then count records. Poly
// chunks are either a material record or a polygon list; every polygon is a
// u16 corner count followed by the corners.
const (
	chunkAttachSize = 0x18
	chunkHeaderSize = 0x08

	chunkPositions uint8 = 0x01
	chunkNormals   uint8 = 0x02
	chunkWeighted  uint8 = 0x03
	chunkMaterial  uint8 = 0x10
	chunkPolys     uint8 = 0x20
	chunkEnd       uint8 = 0xFF

	polyFlagUV       uint8 = 1 << 0
	polyFlagColor    uint8 = 1 << 1
	polyPrimShift          = 4
	polyPrimMask     uint8 = 0x3 << polyPrimShift
	polyFlagsAllowed       = polyFlagUV | polyFlagColor | polyPrimMask

	weightedEntrySize = 0x20
	maxChunkCount     = math.MaxUint16
)

type chunkCodec struct{}

func (chunkCodec) Format() scene.Format { return scene.FormatChunk }

type chunkHeader struct {
	typ     uint8
	flags   uint8
	slot    uint16
	size    uint32
	payload uint32
}

// nextChunk reads the chunk header at addr and checks that its payload fits.
func nextChunk(r *space.Reader, addr uint32) (chunkHeader, error) {
	c := r.At(addr)
	h := chunkHeader{typ: c.U8(), flags: c.U8(), slot: c.U16(), size: c.U32()}
	if err := c.Err(); err != nil {
		return h, unterminatedChunks(err)
	}
	h.payload = addr + chunkHeaderSize
	if _, err := r.Bytes(h.payload, int(h.size)); err != nil {
		return h, err
	}
	return h, nil
}

func (chunkCodec) Read(r *space.Reader, addr uint32, ordinal int, names *labels.Table) (*scene.Attach, error) {
	r = r.WithPhase(errors.PhaseAttach)
	c := r.At(addr)
	vtxPtr := c.U32()
	polyPtr := c.U32()
	center := c.Vec3()
	radius := c.F32()
	if err := c.Err(); err != nil {
		return nil, err
	}

	a := scene.NewAttach(scene.FormatChunk, addr)
	a.Name = names.Resolve(addr, labels.Attach, ordinal)
	a.Center, a.Radius = center, radius

	if vtxPtr != 0 {
		if err := readVertexChunks(r, vtxPtr, a); err != nil {
			return nil, err
		}
	}
	if polyPtr != 0 {
		if err := readPolyChunks(r, polyPtr, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func readVertexChunks(r *space.Reader, addr uint32, a *scene.Attach) error {
	for {
		h, err := nextChunk(r, addr)
		if err != nil {
			return err
		}
		switch h.typ {
		case chunkEnd:
			return nil
		case chunkPositions, chunkNormals, chunkWeighted:
		default:
			return corrupt(addr, "unknown vertex chunk type 0x%02x", h.typ)
		}
		if h.size < 4 {
			return corrupt(addr, "vertex chunk of %d bytes", h.size)
		}

		c := r.At(h.payload)
		offset := int(c.U16())
		count := int(c.U16())
		if err := c.Err(); err != nil {
			return err
		}

		switch h.typ {
		case chunkPositions, chunkNormals:
			if 4+count*12 > int(h.size) {
				return corrupt(addr, "vertex chunk of %d bytes holds %d entries", h.size, count)
			}
			if offset+count > maxVertices {
				return corrupt(addr, "vertex range %d+%d", offset, count)
			}
			if n := offset + count; n > len(a.Vertices) {
				a.Vertices = append(a.Vertices, make([]scene.Vertex, n-len(a.Vertices))...)
			}
			for i := offset; i < offset+count; i++ {
				v := c.Vec3()
				if h.typ == chunkPositions {
					a.Vertices[i].Position = v
				} else {
					a.Vertices[i].Normal = v
				}
			}
		case chunkWeighted:
			if 4+count*weightedEntrySize > int(h.size) {
				return corrupt(addr, "weighted chunk of %d bytes holds %d entries", h.size, count)
			}
			block := scene.WeightedBlock{Slot: h.slot, Entries: make([]scene.WeightedVertex, count)}
			for i := range block.Entries {
				e := &block.Entries[i]
				e.Index = c.U16()
				c.Skip(2)
				e.Weight = c.F32()
				e.Position = c.Vec3()
				e.Normal = c.Vec3()
			}
			a.Weighted = append(a.Weighted, block)
		}
		if err := c.Err(); err != nil {
			return err
		}
		addr = h.payload + h.size
	}
}

func readPolyChunks(r *space.Reader, addr uint32, a *scene.Attach) error {
	nv := a.VertexCount()
	for {
		h, err := nextChunk(r, addr)
		if err != nil {
			return err
		}
		c := r.At(h.payload)

		switch h.typ {
		case chunkEnd:
			for i, s := range a.Sets {
				if !validMaterial(s.Material, len(a.Materials)) {
					return corrupt(addr, "set %d: material %d of %d", i, s.Material, len(a.Materials))
				}
			}
			return nil
		case chunkMaterial:
			if h.size < materialSize {
				return corrupt(addr, "material chunk of %d bytes", h.size)
			}
			a.Materials = append(a.Materials, readMaterial(c))
		case chunkPolys:
			if h.flags&^polyFlagsAllowed != 0 {
				return corrupt(addr, "poly chunk flags 0x%02x", h.flags)
			}
			set := scene.MeshSet{
				Material:  int(c.U16()),
				Primitive: scene.Primitive(h.flags & polyPrimMask >> polyPrimShift),
				HasUV:     h.flags&polyFlagUV != 0,
				HasColor:  h.flags&polyFlagColor != 0,
			}
			polyCount := int(c.U16())
			end := h.payload + h.size
			set.Polygons = make([][]scene.Corner, 0, polyCount)
			for i := 0; i < polyCount; i++ {
				n := int(c.U16())
				if err := c.Err(); err != nil {
					return err
				}
				if want := cornerCount(set.Primitive); (want > 0 && n != want) || n < 3 {
					return corrupt(addr, "%v polygon %d has %d corners", set.Primitive, i, n)
				}
				poly := make([]scene.Corner, n)
				for k := range poly {
					poly[k].Index = c.U16()
					if set.HasUV {
						poly[k].UV = uvFromFixed(c.I16(), c.I16())
					}
					if set.HasColor {
						poly[k].Color = scene.Color(c.U32())
					}
					if c.Err() == nil && int(poly[k].Index) >= nv {
						return corrupt(addr, "polygon %d: vertex %d of %d", i, poly[k].Index, nv)
					}
				}
				if c.Err() == nil && c.Offset() > end {
					return corrupt(addr, "polygons overrun a %d byte chunk", h.size)
				}
				set.Polygons = append(set.Polygons, poly)
			}
			a.Sets = append(a.Sets, set)
		default:
			return corrupt(addr, "unknown poly chunk type 0x%02x", h.typ)
		}
		if err := c.Err(); err != nil {
			return err
		}
		addr = h.payload + h.size
	}
}

func (chunkCodec) Write(w *space.Writer, a *scene.Attach, names *labels.Table, cache *Cache) (uint32, error) {
	if addr, ok := cache.Lookup(a); ok {
		return addr, nil
	}
	if err := checkSets(a); err != nil {
		return 0, err
	}
	for i, s := range a.Sets {
		if len(s.Polygons) > maxChunkCount {
			return 0, corrupt(a.Address, "set %d: %d polygons exceed one chunk", i, len(s.Polygons))
		}
		if s.Material > math.MaxUint16 {
			return 0, corrupt(a.Address, "set %d: material %d", i, s.Material)
		}
	}

	w.Align(4)
	vtxAddr := w.Tell()
	if err := writeVertexChunks(w, a); err != nil {
		return 0, err
	}
	polyAddr := w.Tell()
	if err := writePolyChunks(w, a); err != nil {
		return 0, err
	}

	w.Align(4)
	addr := w.Tell()
	w.WriteU32(vtxAddr)
	w.WriteU32(polyAddr)
	w.WriteVec3(a.Center)
	w.WriteF32(a.Radius)

	register(a, addr, names, cache)
	return addr, nil
}

// beginChunk writes a chunk header with a zero size and returns the address
// of the size field for endChunk.
func beginChunk(w *space.Writer, typ, flags uint8, slot uint16) uint32 {
	w.WriteU8(typ)
	w.WriteU8(flags)
	w.WriteU16(slot)
	sizeAddr := w.Tell()
	w.WriteU32(0)
	return sizeAddr
}

func endChunk(w *space.Writer, sizeAddr uint32) error {
	return w.PatchU32(sizeAddr, w.Tell()-sizeAddr-4)
}

func writeVertexChunks(w *space.Writer, a *scene.Attach) error {
	normals := a.HasNormals()
	for off := 0; off < len(a.Vertices); off += maxChunkCount {
		n := min(maxChunkCount, len(a.Vertices)-off)
		span := a.Vertices[off : off+n]

		sz := beginChunk(w, chunkPositions, 0, 0)
		w.WriteU16(uint16(off))
		w.WriteU16(uint16(n))
		for _, v := range span {
			w.WriteVec3(v.Position)
		}
		if err := endChunk(w, sz); err != nil {
			return err
		}

		if !normals {
			continue
		}
		sz = beginChunk(w, chunkNormals, 0, 0)
		w.WriteU16(uint16(off))
		w.WriteU16(uint16(n))
		for _, v := range span {
			w.WriteVec3(v.Normal)
		}
		if err := endChunk(w, sz); err != nil {
			return err
		}
	}

	for _, b := range a.Weighted {
		for off := 0; off < len(b.Entries) || off == 0; off += maxChunkCount {
			n := min(maxChunkCount, len(b.Entries)-off)
			sz := beginChunk(w, chunkWeighted, 0, b.Slot)
			w.WriteU16(0)
			w.WriteU16(uint16(n))
			for _, e := range b.Entries[off : off+n] {
				w.WriteU16(e.Index)
				w.WriteU16(0)
				w.WriteF32(e.Weight)
				w.WriteVec3(e.Position)
				w.WriteVec3(e.Normal)
			}
			if err := endChunk(w, sz); err != nil {
				return err
			}
		}
	}

	beginChunk(w, chunkEnd, 0, 0)
	return nil
}

func writePolyChunks(w *space.Writer, a *scene.Attach) error {
	for _, m := range a.Materials {
		sz := beginChunk(w, chunkMaterial, 0, 0)
		writeMaterial(w, m)
		if err := endChunk(w, sz); err != nil {
			return err
		}
	}

	for _, s := range a.Sets {
		flags := uint8(s.Primitive) << polyPrimShift
		if s.HasUV {
			flags |= polyFlagUV
		}
		if s.HasColor {
			flags |= polyFlagColor
		}
		sz := beginChunk(w, chunkPolys, flags, 0)
		w.WriteU16(uint16(s.Material))
		w.WriteU16(uint16(len(s.Polygons)))
		for _, poly := range s.Polygons {
			w.WriteU16(uint16(len(poly)))
			for _, k := range poly {
				w.WriteU16(k.Index)
				if s.HasUV {
					u, v := uvToFixed(k.UV)
					w.WriteI16(u)
					w.WriteI16(v)
				}
				if s.HasColor {
					w.WriteU32(uint32(k.Color))
				}
			}
		}
		if err := endChunk(w, sz); err != nil {
			return err
		}
	}

	beginChunk(w, chunkEnd, 0, 0)
	return nil
}
