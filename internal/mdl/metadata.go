package mdl

import (
	"go.uber.org/zap"

	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

// ChunkType identifies a metadata chunk.
type ChunkType uint32

const (
	ChunkLabel       ChunkType = 0x4C42414C // "LABL"
	ChunkAnimation   ChunkType = 0x4D494E41 // "ANIM"
	ChunkMorph       ChunkType = 0x46524F4D // "MORF"
	ChunkAuthor      ChunkType = 0x48545541 // "AUTH"
	ChunkTool        ChunkType = 0x4C4F4F54 // "TOOL"
	ChunkDescription ChunkType = 0x43534544 // "DESC"
	ChunkTexture     ChunkType = 0x20584554 // "TEX "
	ChunkEnd         ChunkType = 0x00444E45 // "END"
)

func (t ChunkType) String() string {
	switch t {
	case ChunkLabel:
		return "label"
	case ChunkAnimation:
		return "animation"
	case ChunkMorph:
		return "morph"
	case ChunkAuthor:
		return "author"
	case ChunkTool:
		return "tool"
	case ChunkDescription:
		return "description"
	case ChunkTexture:
		return "texture"
	case ChunkEnd:
		return "end"
	}
	return "unknown"
}

const (
	endOfList   = 0xFFFFFFFF
	labelRecord = 8
)

// readMetadata decodes the metadata of a file of the given version.
func readMetadata(r *space.Reader, version uint8, log *zap.Logger) (scene.Metadata, *labels.Table, error) {
	r = r.WithPhase(errors.PhaseMetadata)
	if version < 2 {
		return readLegacyMetadata(r, version)
	}

	var meta scene.Metadata
	names := labels.New()
	addr, err := r.U32(offMetadata)
	if err != nil {
		return meta, nil, err
	}
	if addr == 0 {
		return meta, names, nil
	}

	for {
		c := r.At(addr)
		typ := ChunkType(c.U32())
		size := c.U32()
		if err := c.Err(); err != nil {
			return meta, nil, truncated(addr, "no end chunk before the end of the file", err)
		}
		payload := addr + 8
		next := uint64(payload) + uint64(size)
		if next > uint64(r.Len()) {
			return meta, nil, truncated(addr, "chunk of "+typ.String()+" runs past the end of the file", nil)
		}

		base := payload
		if version == 2 {
			base = 0
		}
		bounds := uint32(next)

		switch typ {
		case ChunkLabel:
			err = readLabelChunk(r, payload, bounds, base, names)
		case ChunkAnimation:
			meta.Animations, err = readNameList(r, payload, bounds, base)
		case ChunkMorph:
			meta.Morphs, err = readNameList(r, payload, bounds, base)
		case ChunkAuthor:
			meta.Author, err = r.CString(payload)
		case ChunkDescription:
			meta.Description, err = r.CString(payload)
		case ChunkEnd:
			return meta, names, nil
		default:
			log.Debug("skipping metadata chunk",
				zap.Stringer("type", typ),
				zap.Uint32("raw", uint32(typ)),
				zap.Uint32("size", size))
		}
		if err != nil {
			return meta, nil, err
		}
		addr = bounds
	}
}

func truncated(addr uint32, detail string, cause error) error {
	b := errors.New(errors.PhaseMetadata, errors.KindTruncatedMetadata).At(addr).Detail("%s", detail)
	if cause != nil {
		b = b.Cause(cause)
	}
	return b.Build()
}

func unterminated(addr uint32, what string) error {
	return errors.New(errors.PhaseMetadata, errors.KindUnterminatedList).
		At(addr).
		Detail("%s list has no -1 terminator", what).
		Build()
}

// readLabelChunk reads (u32 address, u32 nameOffset) pairs up to an 8-byte -1.
func readLabelChunk(r *space.Reader, addr, bounds, base uint32, names *labels.Table) error {
	for p := addr; ; p += labelRecord {
		if p+labelRecord > bounds {
			return unterminated(addr, "label")
		}
		target, err := r.U32(p)
		if err != nil {
			return err
		}
		off, err := r.U32(p + 4)
		if err != nil {
			return err
		}
		if target == endOfList && off == endOfList {
			return nil
		}
		name, err := r.CString(base + off)
		if err != nil {
			return err
		}
		names.Set(target, name)
	}
}

// readNameList reads u32 name offsets up to a -1.
func readNameList(r *space.Reader, addr, bounds, base uint32) ([]string, error) {
	var out []string
	for p := addr; ; p += 4 {
		if p+4 > bounds {
			return nil, unterminated(addr, "name")
		}
		off, err := r.U32(p)
		if err != nil {
			return nil, err
		}
		if off == endOfList {
			return out, nil
		}
		s, err := r.CString(base + off)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

// readLegacyMetadata handles version 0 and 1 headers: the animation array at
// 0x0C and, for version 1, morphs at 0x10 and (address, name pointer) label
// pairs at 0x14. A zero slot means the list is absent.
func readLegacyMetadata(r *space.Reader, version uint8) (scene.Metadata, *labels.Table, error) {
	var meta scene.Metadata
	names := labels.New()
	end := uint32(r.Len())

	if version == 1 {
		addr, err := r.U32(offLabels)
		if err != nil {
			return meta, nil, err
		}
		if addr != 0 {
			if err := readLegacyLabels(r, addr, end, names); err != nil {
				return meta, nil, err
			}
		}
		if meta.Morphs, err = readPointerList(r, offMorphs, end); err != nil {
			return meta, nil, err
		}
	}

	var err error
	if meta.Animations, err = readPointerList(r, offMetadata, end); err != nil {
		return meta, nil, err
	}
	return meta, names, nil
}

func readLegacyLabels(r *space.Reader, addr, end uint32, names *labels.Table) error {
	for p := addr; ; p += labelRecord {
		if uint64(p)+4 > uint64(end) {
			return unterminated(addr, "label")
		}
		target, err := r.I32(p)
		if err != nil {
			return err
		}
		if target == -1 {
			return nil
		}
		namePtr, err := r.U32(p + 4)
		if err != nil {
			return errors.Rephase(err, errors.PhaseMetadata, errors.KindOutOfRange, errors.KindUnterminatedList)
		}
		name, err := r.CString(namePtr)
		if err != nil {
			return err
		}
		names.Set(uint32(target), name)
	}
}

// readPointerList reads the u32 string pointers of the array whose address is
// stored at slot.
func readPointerList(r *space.Reader, slot, end uint32) ([]string, error) {
	addr, err := r.U32(slot)
	if err != nil || addr == 0 {
		return nil, err
	}
	var out []string
	for p := addr; ; p += 4 {
		if uint64(p)+4 > uint64(end) {
			return nil, unterminated(addr, "name")
		}
		ptr, _ := r.U32(p)
		if ptr == endOfList {
			return out, nil
		}
		s, err := r.CString(ptr)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

// writeMetadata appends the version 3 chunk stream and returns its address.
// Name offsets are relative to each chunk's payload. Labels are taken from
// names as they stand, so it must run after every other block is written.
func writeMetadata(w *space.Writer, meta scene.Metadata, names *labels.Table) (uint32, error) {
	w.Align(4)
	start := w.Tell()

	if entries := names.Entries(); len(entries) > 0 {
		err := writeChunk(w, ChunkLabel, func() {
			strs := make([]string, len(entries))
			for i, e := range entries {
				strs[i] = e.Name
			}
			offs := stringOffsets(strs, uint32(len(entries)+1)*labelRecord)
			for i, e := range entries {
				w.WriteU32(e.Addr)
				w.WriteU32(offs[i])
			}
			w.WriteI64(-1)
			for _, s := range strs {
				w.WriteCString(s)
			}
		})
		if err != nil {
			return 0, err
		}
	}

	for _, list := range []struct {
		typ   ChunkType
		names []string
	}{
		{ChunkAnimation, meta.Animations},
		{ChunkMorph, meta.Morphs},
	} {
		if len(list.names) == 0 {
			continue
		}
		err := writeChunk(w, list.typ, func() {
			offs := stringOffsets(list.names, uint32(len(list.names)+1)*4)
			for _, o := range offs {
				w.WriteU32(o)
			}
			w.WriteI32(-1)
			for _, s := range list.names {
				w.WriteCString(s)
			}
		})
		if err != nil {
			return 0, err
		}
	}

	for _, text := range []struct {
		typ ChunkType
		s   string
	}{
		{ChunkAuthor, meta.Author},
		{ChunkDescription, meta.Description},
	} {
		if text.s == "" {
			continue
		}
		if err := writeChunk(w, text.typ, func() { w.WriteCString(text.s) }); err != nil {
			return 0, err
		}
	}

	w.WriteU32(uint32(ChunkEnd))
	w.WriteU32(0)
	return start, nil
}

// writeChunk writes a chunk header, the payload produced by body and
// padding to 4 bytes, then patches the size.
func writeChunk(w *space.Writer, typ ChunkType, body func()) error {
	w.WriteU32(uint32(typ))
	sizeAddr := w.Tell()
	w.WriteU32(0)
	payload := w.Tell()
	body()
	w.Align(4)
	return w.PatchU32(sizeAddr, w.Tell()-payload)
}

// stringOffsets lays strings out back to back starting at first.
func stringOffsets(strs []string, first uint32) []uint32 {
	offs := make([]uint32, len(strs))
	off := first
	for i, s := range strs {
		offs[i] = off
		off += uint32(len(s)) + 1
	}
	return offs
}
