package mdl

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"sa-mdl-tools/internal/attach"
	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/hierarchy"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

// ExportNode is one entry of a flattened node list. Parent and Mesh index
// into Export.Nodes and Export.Meshes; -1 means none. A parent must precede
// its children, and siblings keep their relative order.
type ExportNode struct {
	Name      string
	Parent    int
	Flags     scene.NodeFlags
	Transform scene.Transform
	Mesh      int
}

// Export is what a host hands to Encode.
type Export struct {
	Format scene.Format
	Meta   scene.Metadata
	Nodes  []ExportNode
	Meshes []*scene.Attach
	// Conversion is applied to vertex positions and normals before they are
	// written. The zero matrix is treated as identity.
	Conversion mgl32.Mat4
}

// FromScene flattens a decoded scene into an Export with identity conversion.
func FromScene(s *scene.Scene) *Export {
	e := &Export{
		Format:     s.Format,
		Meta:       s.Meta,
		Meshes:     s.Attaches,
		Conversion: mgl32.Ident4(),
	}
	meshIndex := make(map[*scene.Attach]int, len(s.Attaches))
	for i, a := range s.Attaches {
		meshIndex[a] = i
	}
	for _, n := range s.Nodes {
		en := ExportNode{Name: n.Name, Parent: -1, Flags: n.Flags, Transform: n.Transform, Mesh: -1}
		if n.Parent != nil {
			en.Parent = n.Parent.ID
		}
		if n.Attach != nil {
			if i, ok := meshIndex[n.Attach]; ok {
				en.Mesh = i
			}
		}
		e.Nodes = append(e.Nodes, en)
	}
	return e
}

// EncodeFile encodes e and writes it to path.
func EncodeFile(path string, e *Export, opts Options) error {
	data, err := Encode(e, opts)
	if err != nil {
		return fmt.Errorf("mdl: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.PhaseWrite, errors.KindInvalidPath).
			Detail("%s", path).
			Cause(err).
			Build()
	}
	return nil
}

// Encode writes e as a version 3 file. Geometry is written first, then the
// node array, then the metadata chunk stream with the label table; the root
// and metadata header slots are patched once their addresses are known.
func Encode(e *Export, opts Options) ([]byte, error) {
	log := opts.logger()
	hdr := Header{Format: e.Format, Version: WriteVersion}
	word, err := hdr.Word()
	if err != nil {
		return nil, err
	}
	codec, err := attach.For(e.Format)
	if err != nil {
		return nil, errors.New(errors.PhaseWrite, errors.KindUnrecognizedFormat).Cause(err).Build()
	}

	nodes, roots, err := buildTree(e)
	if err != nil {
		return nil, err
	}

	w := space.NewWriter()
	w.WriteU64(word)
	w.WriteU32(0) // root
	w.WriteU32(0) // metadata

	names := labels.New()
	cache := attach.NewCache()
	conv := e.Conversion
	if conv == (mgl32.Mat4{}) {
		conv = mgl32.Ident4()
	}
	converted := make(map[*scene.Attach]*scene.Attach, len(e.Meshes))
	for _, m := range e.Meshes {
		if _, ok := converted[m]; ok {
			continue
		}
		c := m
		if conv != mgl32.Ident4() {
			c = convertAttach(m, conv)
		}
		converted[m] = c
		addr, err := codec.Write(w, c, names, cache)
		if err != nil {
			return nil, fmt.Errorf("mdl: write attach %q: %w", m.Name, err)
		}
		log.Debug("wrote attach", zap.String("name", m.Name), zap.String("addr", fmt.Sprintf("%08X", addr)))
	}
	for i, n := range nodes {
		if mi := e.Nodes[i].Mesh; mi >= 0 {
			n.Attach = converted[e.Meshes[mi]]
		}
	}

	rootAddr, err := hierarchy.Write(w, roots, cache, names)
	if err != nil {
		return nil, fmt.Errorf("mdl: write hierarchy: %w", err)
	}
	if err := w.PatchU32(offRoot, rootAddr); err != nil {
		return nil, err
	}

	metaAddr, err := writeMetadata(w, e.Meta, names)
	if err != nil {
		return nil, fmt.Errorf("mdl: write metadata: %w", err)
	}
	if err := w.PatchU32(offMetadata, metaAddr); err != nil {
		return nil, err
	}

	log.Debug("encoded",
		zap.Stringer("format", e.Format),
		zap.String("root", fmt.Sprintf("%08X", rootAddr)),
		zap.String("metadata", fmt.Sprintf("%08X", metaAddr)),
		zap.Int("labels", names.Len()),
		zap.Int("bytes", w.Len()))
	return w.Bytes(), nil
}

// buildTree turns the flat node list into linked nodes.
func buildTree(e *Export) ([]*scene.Node, []*scene.Node, error) {
	for i, m := range e.Meshes {
		if m == nil {
			return nil, nil, errors.New(errors.PhaseWrite, errors.KindOutOfRange).
				Detail("mesh %d is nil", i).
				Build()
		}
	}
	nodes := make([]*scene.Node, len(e.Nodes))
	var roots []*scene.Node
	for i, en := range e.Nodes {
		if en.Parent < -1 || en.Parent >= i {
			return nil, nil, errors.New(errors.PhaseWrite, errors.KindOutOfRange).
				Detail("node %d (%s): parent %d must precede it", i, en.Name, en.Parent).
				Build()
		}
		if en.Mesh < -1 || en.Mesh >= len(e.Meshes) {
			return nil, nil, errors.New(errors.PhaseWrite, errors.KindOutOfRange).
				Detail("node %d (%s): mesh %d of %d", i, en.Name, en.Mesh, len(e.Meshes)).
				Build()
		}
		n := &scene.Node{ID: i, Name: en.Name, Flags: en.Flags, Transform: en.Transform}
		if en.Parent >= 0 {
			p := nodes[en.Parent]
			n.Parent = p
			n.Depth = p.Depth + 1
			p.Children = append(p.Children, n)
		} else {
			roots = append(roots, n)
		}
		nodes[i] = n
	}
	return nodes, roots, nil
}

// convertAttach returns a copy of a with positions mapped as points and
// normals as directions. Weighted positions are pre-scaled by their weight,
// so the translation is scaled the same way.
func convertAttach(a *scene.Attach, m mgl32.Mat4) *scene.Attach {
	c := *a
	if a.AffectedBy != nil {
		c.AffectedBy = a.AffectedBy.Clone()
	}
	c.Vertices = make([]scene.Vertex, len(a.Vertices))
	for i, v := range a.Vertices {
		c.Vertices[i] = scene.Vertex{
			Position: mgl32.TransformCoordinate(v.Position, m),
			Normal:   direction(v.Normal, m),
		}
	}
	t := m.Col(3).Vec3()
	c.Weighted = make([]scene.WeightedBlock, len(a.Weighted))
	for i, b := range a.Weighted {
		nb := scene.WeightedBlock{Slot: b.Slot, Entries: make([]scene.WeightedVertex, len(b.Entries))}
		for j, e := range b.Entries {
			e.Position = mgl32.TransformNormal(e.Position, m).Add(t.Mul(e.Weight))
			e.Normal = mgl32.TransformNormal(e.Normal, m)
			nb.Entries[j] = e
		}
		c.Weighted[i] = nb
	}
	if len(a.Weighted) == 0 {
		c.Weighted = nil
	}
	c.Center = mgl32.TransformCoordinate(a.Center, m)
	return &c
}

func direction(n mgl32.Vec3, m mgl32.Mat4) mgl32.Vec3 {
	d := mgl32.TransformNormal(n, m)
	if d.Len() == 0 {
		return d
	}
	return d.Normalize()
}
