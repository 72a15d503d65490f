package hierarchy

import (
	"sa-mdl-tools/internal/attach"
	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

type writer struct {
	w     *space.Writer
	cache *attach.Cache
	names *labels.Table
	seen  map[*scene.Node]struct{}
}

// Write emits roots and their descendants in the order Read numbers them.
// Every attach must already be in cache. Child and sibling fields are
// written as zero and patched once their targets exist. It returns the
// address of the first root, or 0 if roots is empty.
func Write(w *space.Writer, roots []*scene.Node, cache *attach.Cache, names *labels.Table) (uint32, error) {
	wr := &writer{w: w, cache: cache, names: names, seen: make(map[*scene.Node]struct{})}
	w.Align(4)
	return wr.chain(roots)
}

func (wr *writer) chain(nodes []*scene.Node) (uint32, error) {
	var first, prev uint32
	for i, n := range nodes {
		if _, ok := wr.seen[n]; ok {
			return 0, errors.New(errors.PhaseWrite, errors.KindUnterminatedList).
				Detail("node %q appears twice in the tree", n.Name).
				Build()
		}
		wr.seen[n] = struct{}{}

		var mesh uint32
		if n.Attach != nil {
			addr, ok := wr.cache.Address(n.Attach)
			if !ok {
				return 0, errors.New(errors.PhaseWrite, errors.KindCorruptAttach).
					Detail("node %q references an attach that was not written", n.Name).
					Build()
			}
			mesh = addr
		}

		addr := wr.w.Tell()
		if i == 0 {
			first = addr
		} else if err := wr.w.PatchU32(prev+siblingOffset, addr); err != nil {
			return 0, err
		}
		if n.Name != "" {
			wr.names.Set(addr, n.Name)
		}

		t := n.Transform
		wr.w.WriteU32(uint32(n.Flags))
		wr.w.WriteU32(mesh)
		wr.w.WriteVec3(t.Position)
		for _, a := range t.Rotation {
			wr.w.WriteI32(a)
		}
		wr.w.WriteVec3(t.Scale)
		wr.w.WriteU32(0) // child
		wr.w.WriteU32(0) // sibling

		if len(n.Children) > 0 {
			child, err := wr.chain(n.Children)
			if err != nil {
				return 0, err
			}
			if err := wr.w.PatchU32(addr+childOffset, child); err != nil {
				return 0, err
			}
		}
		prev = addr
	}
	return first, nil
}
