package attach

import (
	"math"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

// BASIC layout
//
//	attach   0x28: u32 positions, u32 normals, u32 vertexCount, u32 meshsets,
//	               u32 materials, u16 meshsetCount, u16 materialCount,
//	               f32 center[3], f32 radius
//	meshset  0x14: u16 primitive<<14 | material, u16 polyCount,
//	               u32 polys, u32 colors, u32 uvs
//
// Triangles and quads store 3 or 4 u16 indices per polygon; ngons and strips
// store a u16 corner count first. Colors (u32) and UVs (2×i16) are per corner.
const (
	basicAttachSize  = 0x28
	basicMeshsetSize = 0x14
)

var basicPrimitives = [4]scene.Primitive{scene.Triangles, scene.Quads, scene.NGons, scene.Strips}

type basicCodec struct{}

func (basicCodec) Format() scene.Format { return scene.FormatBasic }

func (basicCodec) Read(r *space.Reader, addr uint32, ordinal int, names *labels.Table) (*scene.Attach, error) {
	r = r.WithPhase(errors.PhaseAttach)
	c := r.At(addr)
	posPtr := c.U32()
	nrmPtr := c.U32()
	vcount := c.U32()
	setsPtr := c.U32()
	matsPtr := c.U32()
	setCount := int(c.U16())
	matCount := int(c.U16())
	center := c.Vec3()
	radius := c.F32()
	if err := c.Err(); err != nil {
		return nil, err
	}
	if vcount > maxVertices {
		return nil, corrupt(addr, "vertex count %d", vcount)
	}

	a := scene.NewAttach(scene.FormatBasic, addr)
	a.Name = names.Resolve(addr, labels.Attach, ordinal)
	a.Center, a.Radius = center, radius
	a.Vertices = make([]scene.Vertex, vcount)

	if vcount > 0 {
		if _, err := r.Bytes(posPtr, int(vcount)*12); err != nil {
			return nil, err
		}
		pc := r.At(posPtr)
		for i := range a.Vertices {
			a.Vertices[i].Position = pc.Vec3()
		}
		if nrmPtr != 0 {
			nc := r.At(nrmPtr)
			for i := range a.Vertices {
				a.Vertices[i].Normal = nc.Vec3()
			}
			if err := nc.Err(); err != nil {
				return nil, err
			}
		}
	}

	if matCount > 0 {
		if _, err := r.Bytes(matsPtr, matCount*materialSize); err != nil {
			return nil, err
		}
		mc := r.At(matsPtr)
		a.Materials = make([]scene.Material, matCount)
		for i := range a.Materials {
			a.Materials[i] = readMaterial(mc)
		}
	}

	if setCount > 0 {
		if _, err := r.Bytes(setsPtr, setCount*basicMeshsetSize); err != nil {
			return nil, err
		}
	}
	sc := r.At(setsPtr)
	for i := 0; i < setCount; i++ {
		typeMat := sc.U16()
		polyCount := int(sc.U16())
		polysPtr := sc.U32()
		colorsPtr := sc.U32()
		uvsPtr := sc.U32()
		if err := sc.Err(); err != nil {
			return nil, err
		}

		set := scene.MeshSet{
			Material:  int(typeMat & 0x3FFF),
			Primitive: basicPrimitives[typeMat>>14],
			HasColor:  colorsPtr != 0,
			HasUV:     uvsPtr != 0,
		}
		if !validMaterial(set.Material, matCount) {
			return nil, corrupt(addr, "meshset %d: material %d of %d", i, set.Material, matCount)
		}

		corners, err := readBasicPolys(r, polysPtr, polyCount, set.Primitive, int(vcount))
		if err != nil {
			return nil, err
		}
		set.Polygons = corners

		if set.HasColor {
			cc := r.At(colorsPtr)
			forCorners(set.Polygons, func(k *scene.Corner) { k.Color = scene.Color(cc.U32()) })
			if err := cc.Err(); err != nil {
				return nil, err
			}
		}
		if set.HasUV {
			uc := r.At(uvsPtr)
			forCorners(set.Polygons, func(k *scene.Corner) { k.UV = uvFromFixed(uc.I16(), uc.I16()) })
			if err := uc.Err(); err != nil {
				return nil, err
			}
		}
		a.Sets = append(a.Sets, set)
	}

	return a, nil
}

func readBasicPolys(r *space.Reader, ptr uint32, count int, prim scene.Primitive, vcount int) ([][]scene.Corner, error) {
	c := r.At(ptr)
	polys := make([][]scene.Corner, 0, count)
	for i := 0; i < count; i++ {
		n := cornerCount(prim)
		if n == 0 {
			n = int(c.U16())
			if c.Err() == nil && n < 3 {
				return nil, corrupt(ptr, "%v polygon %d has %d corners", prim, i, n)
			}
		}
		poly := make([]scene.Corner, n)
		for k := range poly {
			idx := c.U16()
			if c.Err() == nil && int(idx) >= vcount {
				return nil, corrupt(ptr, "polygon %d: vertex %d of %d", i, idx, vcount)
			}
			poly[k].Index = idx
		}
		if err := c.Err(); err != nil {
			return nil, err
		}
		polys = append(polys, poly)
	}
	return polys, nil
}

func forCorners(polys [][]scene.Corner, fn func(*scene.Corner)) {
	for _, p := range polys {
		for k := range p {
			fn(&p[k])
		}
	}
}

func (basicCodec) Write(w *space.Writer, a *scene.Attach, names *labels.Table, cache *Cache) (uint32, error) {
	if addr, ok := cache.Lookup(a); ok {
		return addr, nil
	}
	if err := checkSets(a); err != nil {
		return 0, err
	}
	if len(a.Weighted) > 0 {
		return 0, corrupt(a.Address, "weighted vertices need the chunk layout")
	}
	if len(a.Sets) > math.MaxUint16 || len(a.Materials) > math.MaxUint16 {
		return 0, corrupt(a.Address, "%d meshsets and %d materials exceed 16-bit counts", len(a.Sets), len(a.Materials))
	}
	for i, s := range a.Sets {
		if s.Material >= 0x4000 {
			return 0, corrupt(a.Address, "meshset %d: material %d exceeds 14 bits", i, s.Material)
		}
		if len(s.Polygons) > math.MaxUint16 {
			return 0, corrupt(a.Address, "meshset %d: %d polygons exceed a 16-bit count", i, len(s.Polygons))
		}
	}

	w.Align(4)
	var matsAddr uint32
	if len(a.Materials) > 0 {
		matsAddr = w.Tell()
		for _, m := range a.Materials {
			writeMaterial(w, m)
		}
	}

	var posAddr, nrmAddr uint32
	if len(a.Vertices) > 0 {
		posAddr = w.Tell()
		for _, v := range a.Vertices {
			w.WriteVec3(v.Position)
		}
		if a.HasNormals() {
			nrmAddr = w.Tell()
			for _, v := range a.Vertices {
				w.WriteVec3(v.Normal)
			}
		}
	}

	type setAddrs struct{ polys, colors, uvs uint32 }
	addrs := make([]setAddrs, len(a.Sets))
	for i, s := range a.Sets {
		addrs[i].polys = w.Tell()
		fixed := cornerCount(s.Primitive) > 0
		for _, poly := range s.Polygons {
			if !fixed {
				w.WriteU16(uint16(len(poly)))
			}
			for _, k := range poly {
				w.WriteU16(k.Index)
			}
		}
		w.Align(4)
		if s.HasColor {
			addrs[i].colors = w.Tell()
			forCorners(s.Polygons, func(k *scene.Corner) { w.WriteU32(uint32(k.Color)) })
		}
		if s.HasUV {
			addrs[i].uvs = w.Tell()
			forCorners(s.Polygons, func(k *scene.Corner) {
				u, v := uvToFixed(k.UV)
				w.WriteI16(u)
				w.WriteI16(v)
			})
		}
	}

	setsAddr := w.Tell()
	for i, s := range a.Sets {
		w.WriteU16(uint16(basicPrimitiveCode(s.Primitive))<<14 | uint16(s.Material))
		w.WriteU16(uint16(len(s.Polygons)))
		w.WriteU32(addrs[i].polys)
		w.WriteU32(addrs[i].colors)
		w.WriteU32(addrs[i].uvs)
	}
	if len(a.Sets) == 0 {
		setsAddr = 0
	}

	addr := w.Tell()
	w.WriteU32(posAddr)
	w.WriteU32(nrmAddr)
	w.WriteU32(uint32(len(a.Vertices)))
	w.WriteU32(setsAddr)
	w.WriteU32(matsAddr)
	w.WriteU16(uint16(len(a.Sets)))
	w.WriteU16(uint16(len(a.Materials)))
	w.WriteVec3(a.Center)
	w.WriteF32(a.Radius)

	register(a, addr, names, cache)
	return addr, nil
}

func basicPrimitiveCode(p scene.Primitive) int {
	for i, bp := range basicPrimitives {
		if bp == p {
			return i
		}
	}
	return 0
}
