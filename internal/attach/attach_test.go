package attach

import (
	stderrors "errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

var ignoreIdentity = cmpopts.IgnoreFields(scene.Attach{}, "Address", "Name", "Format", "AffectedBy")

// sampleAttach uses UVs on the 1/256 grid so fixed-point layouts round-trip exactly.
func sampleAttach(format scene.Format) *scene.Attach {
	a := scene.NewAttach(format, 0)
	a.Name = "attach_body"
	a.Vertices = []scene.Vertex{
		{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 1, 0}},
		{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 1, 0}},
		{Position: mgl32.Vec3{1, 0, 1}, Normal: mgl32.Vec3{0, 1, 0}},
		{Position: mgl32.Vec3{0, 0, 1}, Normal: mgl32.Vec3{0, 1, 0}},
		{Position: mgl32.Vec3{0.5, 1, 0.5}, Normal: mgl32.Vec3{0, 0, 1}},
	}
	a.Materials = []scene.Material{
		{Diffuse: 0xFFFFFFFF, Specular: 0xFF808080, Exponent: 11, Texture: 3, Flags: 0x1},
		{Diffuse: 0xFF00FF00, Texture: 7},
	}
	a.Sets = []scene.MeshSet{
		{
			Material:  0,
			Primitive: scene.Triangles,
			HasUV:     true,
			HasColor:  true,
			Polygons: [][]scene.Corner{
				{{Index: 0, UV: mgl32.Vec2{0, 0}, Color: 0xFFFF0000}, {Index: 1, UV: mgl32.Vec2{1, 0}, Color: 0xFF00FF00}, {Index: 4, UV: mgl32.Vec2{0.5, 1}, Color: 0xFF0000FF}},
				{{Index: 1, UV: mgl32.Vec2{1, 0}, Color: 0xFF00FF00}, {Index: 2, UV: mgl32.Vec2{-0.25, 2.5}, Color: 0xFFFF0000}, {Index: 4, UV: mgl32.Vec2{0.5, 1}, Color: 0xFF0000FF}},
			},
		},
		{
			Material:  1,
			Primitive: scene.Quads,
			Polygons:  [][]scene.Corner{{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}}},
		},
		{
			Material:  1,
			Primitive: scene.Strips,
			HasUV:     true,
			Polygons: [][]scene.Corner{
				{{Index: 0, UV: mgl32.Vec2{0, 0}}, {Index: 1, UV: mgl32.Vec2{0.25, 0}}, {Index: 3, UV: mgl32.Vec2{0, 0.25}}, {Index: 2, UV: mgl32.Vec2{0.25, 0.25}}},
			},
		},
		{
			Material:  0,
			Primitive: scene.NGons,
			Polygons:  [][]scene.Corner{{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}, {Index: 4}}},
		},
	}
	a.Center = mgl32.Vec3{0.5, 0.5, 0.5}
	a.Radius = 1.25
	return a
}

func roundTrip(t *testing.T, codec Codec, a *scene.Attach) *scene.Attach {
	t.Helper()
	w := space.NewWriter()
	w.WriteU32(0) // keep address 0 free
	names := labels.New()
	addr, err := codec.Write(w, a, names, NewCache())
	require.NoError(t, err)

	name, ok := names.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, a.Name, name)

	got, err := codec.Read(space.NewReader(w.Bytes()), addr, 0, names)
	require.NoError(t, err)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, a.Name, got.Name)
	assert.Equal(t, codec.Format(), got.Format)
	return got
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []scene.Format{scene.FormatBasic, scene.FormatChunk, scene.FormatGC} {
		t.Run(format.String(), func(t *testing.T) {
			codec, err := For(format)
			require.NoError(t, err)

			want := sampleAttach(format)
			got := roundTrip(t, codec, want)
			if diff := cmp.Diff(want, got, ignoreIdentity); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunkRoundTripWeighted(t *testing.T) {
	want := sampleAttach(scene.FormatChunk)
	want.Vertices = want.Vertices[:3]
	want.Weighted = []scene.WeightedBlock{
		{Slot: 0, Entries: []scene.WeightedVertex{
			{Index: 3, Weight: 0.5, Position: mgl32.Vec3{0, 0, 0.5}, Normal: mgl32.Vec3{0, 0.5, 0}},
			{Index: 4, Weight: 1, Position: mgl32.Vec3{0.5, 1, 0.5}, Normal: mgl32.Vec3{0, 0, 1}},
		}},
		{Slot: 1, Entries: []scene.WeightedVertex{
			{Index: 3, Weight: 0.5, Position: mgl32.Vec3{0, 0, 0.5}, Normal: mgl32.Vec3{0, 0.5, 0}},
		}},
	}
	require.Equal(t, 5, want.VertexCount())

	got := roundTrip(t, chunkCodec{}, want)
	if diff := cmp.Diff(want, got, ignoreIdentity); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWeightedNeedsChunkLayout(t *testing.T) {
	for _, codec := range []Codec{basicCodec{}, gcCodec{}} {
		a := sampleAttach(codec.Format())
		a.Weighted = []scene.WeightedBlock{{Slot: 1}}
		_, err := codec.Write(space.NewWriter(), a, labels.New(), NewCache())
		assert.True(t, stderrors.Is(err, errors.CorruptAttach), "%v", codec.Format())
	}
}

func TestWriteRejectsBadIndex(t *testing.T) {
	for _, format := range []scene.Format{scene.FormatBasic, scene.FormatChunk, scene.FormatGC} {
		codec, _ := For(format)
		a := sampleAttach(format)
		a.Sets[0].Polygons[0][0].Index = 99
		_, err := codec.Write(space.NewWriter(), a, labels.New(), NewCache())
		assert.True(t, stderrors.Is(err, errors.CorruptAttach), "%v", format)
	}
}

func TestBasicWriteRejectsOversizedCounts(t *testing.T) {
	tri := []scene.Corner{{Index: 0}, {Index: 1}, {Index: 2}}
	polys := make([][]scene.Corner, 1<<16)
	for i := range polys {
		polys[i] = tri
	}

	a := sampleAttach(scene.FormatBasic)
	a.Sets = []scene.MeshSet{{Primitive: scene.Triangles, Polygons: polys}}
	w := space.NewWriter()
	_, err := basicCodec{}.Write(w, a, labels.New(), NewCache())
	assert.True(t, stderrors.Is(err, errors.CorruptAttach), "%v", err)
	assert.Zero(t, w.Len(), "nothing is written for a rejected attach")

	a = sampleAttach(scene.FormatBasic)
	a.Sets[0].Polygons = polys[:1<<16-1]
	_, err = basicCodec{}.Write(space.NewWriter(), a, labels.New(), NewCache())
	assert.NoError(t, err)
}

func TestCacheDedupsIdenticalGeometry(t *testing.T) {
	w := space.NewWriter()
	cache := NewCache()
	names := labels.New()

	first := sampleAttach(scene.FormatGC)
	second := sampleAttach(scene.FormatGC)
	second.Name = "attach_copy"

	a1, err := gcCodec{}.Write(w, first, names, cache)
	require.NoError(t, err)
	size := w.Len()

	a2, err := gcCodec{}.Write(w, second, names, cache)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, size, w.Len(), "identical geometry is not re-emitted")
	assert.Equal(t, 1, cache.Len())

	addr, ok := cache.Address(second)
	assert.True(t, ok)
	assert.Equal(t, a1, addr)

	second.Radius = 9
	a3, err := gcCodec{}.Write(w, second, names, cache)
	require.NoError(t, err)
	assert.Equal(t, a1, a3, "identity hit wins over a changed fingerprint")
}

func TestCacheKeepsIdenticalChunkAttachesApart(t *testing.T) {
	w := space.NewWriter()
	cache := NewCache()
	names := labels.New()

	first := sampleAttach(scene.FormatChunk)
	second := sampleAttach(scene.FormatChunk)

	a1, err := chunkCodec{}.Write(w, first, names, cache)
	require.NoError(t, err)
	a2, err := chunkCodec{}.Write(w, second, names, cache)
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)
	assert.Equal(t, 2, cache.Len())

	again, err := chunkCodec{}.Write(w, first, names, cache)
	require.NoError(t, err)
	assert.Equal(t, a1, again)
}

func TestFingerprintIgnoresNameAndAddress(t *testing.T) {
	a := sampleAttach(scene.FormatGC)
	b := sampleAttach(scene.FormatGC)
	b.Name, b.Address = "other", 0x400
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	b.Sets[1].Polygons[0][3].Index = 4
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestChunkReadUnknownVertexChunk(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(chunkAttachSize) // vertex chunks right after the header
	w.WriteU32(0)
	w.WriteVec3(mgl32.Vec3{})
	w.WriteF32(0)
	beginChunk(w, 0x07, 0, 0)

	_, err := chunkCodec{}.Read(space.NewReader(w.Bytes()), 0, 0, labels.New())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.CorruptAttach))
	assert.Equal(t, errors.KindCorruptAttach, errors.KindOf(err))
}

func TestChunkReadBadPolyFlags(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(0)
	w.WriteU32(chunkAttachSize)
	w.WriteVec3(mgl32.Vec3{})
	w.WriteF32(0)
	sz := beginChunk(w, chunkPolys, 0x80, 0)
	w.WriteU16(0)
	w.WriteU16(0)
	require.NoError(t, endChunk(w, sz))
	beginChunk(w, chunkEnd, 0, 0)

	_, err := chunkCodec{}.Read(space.NewReader(w.Bytes()), 0, 0, labels.New())
	assert.True(t, stderrors.Is(err, errors.CorruptAttach))
}

func TestChunkReadMissingEnd(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(chunkAttachSize)
	w.WriteU32(0)
	w.WriteVec3(mgl32.Vec3{})
	w.WriteF32(0)
	sz := beginChunk(w, chunkPositions, 0, 0)
	w.WriteU16(0)
	w.WriteU16(1)
	w.WriteVec3(mgl32.Vec3{1, 2, 3})
	require.NoError(t, endChunk(w, sz))

	_, err := chunkCodec{}.Read(space.NewReader(w.Bytes()), 0, 0, labels.New())
	assert.True(t, stderrors.Is(err, errors.UnterminatedList), "%v", err)
	assert.Equal(t, errors.KindUnterminatedList, errors.KindOf(err))
}

func TestGCReadUnterminatedAttributes(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(gcAttachSize) // attribute list right after the header
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU16(0)
	w.WriteU16(0)
	w.WriteVec3(mgl32.Vec3{})
	w.WriteF32(0)

	_, err := gcCodec{}.Read(space.NewReader(w.Bytes()), 0, 0, labels.New())
	assert.True(t, stderrors.Is(err, errors.UnterminatedList), "%v", err)
}

func TestBasicReadIndexOutOfRange(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(0)
	a := sampleAttach(scene.FormatBasic)
	addr, err := basicCodec{}.Write(w, a, labels.New(), NewCache())
	require.NoError(t, err)

	// shrink the vertex count below the indices the polygons use
	require.NoError(t, w.PatchU32(addr+8, 2))

	_, err = basicCodec{}.Read(space.NewReader(w.Bytes()), addr, 0, labels.New())
	assert.True(t, stderrors.Is(err, errors.CorruptAttach))
}

func TestGCReadBadIndexFlags(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(0)
	a := sampleAttach(scene.FormatGC)
	addr, err := gcCodec{}.Write(w, a, labels.New(), NewCache())
	require.NoError(t, err)

	meshes, err := space.NewReader(w.Bytes()).U32(addr + 8)
	require.NoError(t, err)
	require.NoError(t, w.PatchU32(meshes+4, 0x10))

	_, err = gcCodec{}.Read(space.NewReader(w.Bytes()), addr, 0, labels.New())
	assert.True(t, stderrors.Is(err, errors.CorruptAttach))
}

func TestGCSplitsMixedPrimitives(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(0)
	a := sampleAttach(scene.FormatGC)
	a.Sets = a.Sets[:1]
	addr, err := gcCodec{}.Write(w, a, labels.New(), NewCache())
	require.NoError(t, err)

	// append a strip block to the first mesh's primitive data
	r := space.NewReader(w.Bytes())
	meshes, _ := r.U32(addr + 8)
	prims, _ := r.U32(meshes + 8)
	size, _ := r.U32(meshes + 12)
	raw, err := r.Bytes(prims, int(size))
	require.NoError(t, err)

	w.SeekEnd()
	moved := w.Tell()
	w.WriteBytes(raw)
	w.WriteU8(gcStrip)
	w.WriteU16(3)
	for _, idx := range []uint16{0, 1, 2} {
		w.WriteU16(idx) // position
		w.WriteU16(0)   // color
		w.WriteU16(0)   // uv
	}
	require.NoError(t, w.PatchU32(meshes+8, moved))
	require.NoError(t, w.PatchU32(meshes+12, w.Tell()-moved))

	got, err := gcCodec{}.Read(space.NewReader(w.Bytes()), addr, 0, labels.New())
	require.NoError(t, err)
	require.Len(t, got.Sets, 2)
	assert.Equal(t, scene.Triangles, got.Sets[0].Primitive)
	assert.Equal(t, scene.Strips, got.Sets[1].Primitive)
	assert.Equal(t, got.Sets[0].Material, got.Sets[1].Material)
	assert.Len(t, got.Sets[1].Polygons, 1)
}

func TestSynthesizedAttachName(t *testing.T) {
	w := space.NewWriter()
	w.WriteU32(0)
	a := sampleAttach(scene.FormatBasic)
	a.Name = ""
	addr, err := basicCodec{}.Write(w, a, labels.New(), NewCache())
	require.NoError(t, err)

	names := labels.New()
	names.SetWidth(4)
	got, err := basicCodec{}.Read(space.NewReader(w.Bytes()), addr, 12, names)
	require.NoError(t, err)
	assert.Equal(t, "attach_0012", got.Name)
}

func TestFixedPointClamp(t *testing.T) {
	assert.Equal(t, int16(256), fixed16(1))
	assert.Equal(t, int16(32767), fixed16(1000))
	assert.Equal(t, int16(-32768), fixed16(-1000))
	assert.Equal(t, mgl32.Vec2{0.5, -1}, uvFromFixed(128, -256))
}
