// Package hierarchy reads and writes the node array of a model file and binds
// each node to its geometry.
package hierarchy

import (
	"golang.org/x/sync/errgroup"

	"sa-mdl-tools/internal/attach"
	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/space"
)

// Node record
//
//	0x00 u32 flags
//	0x04 u32 attach
//	0x08 f32 position[3]
//	0x14 i32 rotation[3] (binary angles)
//	0x20 f32 scale[3]
//	0x2C u32 child
//	0x30 u32 sibling
const (
	RecordSize    = 0x34
	childOffset   = 0x2C
	siblingOffset = 0x30
)

type reader struct {
	r     *space.Reader
	nodes []*scene.Node
	seen  map[uint32]struct{}
}

// Read walks the node tree starting at root. Nodes are numbered in
// depth-first order: a node, then its children, then its next sibling.
// Names are resolved once the total count fixes the padding width.
func Read(r *space.Reader, root uint32, names *labels.Table) (nodes, roots []*scene.Node, err error) {
	rd := &reader{r: r.WithPhase(errors.PhaseHierarchy), seen: make(map[uint32]struct{})}
	roots, err = rd.chain(root, nil, 0)
	if err != nil {
		return nil, nil, err
	}

	names.SetWidth(labels.Width(len(rd.nodes)))
	for _, n := range rd.nodes {
		n.Name = names.Resolve(n.Address, labels.Node, n.ID)
	}
	return rd.nodes, roots, nil
}

// chain reads addr and its sibling continuation under parent.
func (rd *reader) chain(addr uint32, parent *scene.Node, depth int) ([]*scene.Node, error) {
	var out []*scene.Node
	for addr != 0 {
		if _, ok := rd.seen[addr]; ok {
			return nil, errors.New(errors.PhaseHierarchy, errors.KindUnterminatedList).
				At(addr).
				Detail("node revisited after %d nodes", len(rd.nodes)).
				Build()
		}
		rd.seen[addr] = struct{}{}

		c := rd.r.At(addr)
		n := &scene.Node{
			ID:      len(rd.nodes),
			Address: addr,
			Flags:   scene.NodeFlags(c.U32()),
			MeshPtr: c.U32(),
			Parent:  parent,
			Depth:   depth,
		}
		n.Transform.Position = c.Vec3()
		n.Transform.Rotation = [3]int32{c.I32(), c.I32(), c.I32()}
		n.Transform.Scale = c.Vec3()
		child := c.U32()
		sibling := c.U32()
		if err := c.Err(); err != nil {
			return nil, err
		}
		rd.nodes = append(rd.nodes, n)
		out = append(out, n)

		children, err := rd.chain(child, n, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = children
		addr = sibling
	}
	return out, nil
}

// ResolveAttaches decodes the attach of every node. Each distinct meshPtr is
// decoded exactly once; its first-seen position is the attach ordinal. With
// workers > 1 the decodes run concurrently, and node binding plus the
// AffectedBy sets are filled only after every decode has finished.
func ResolveAttaches(r *space.Reader, nodes []*scene.Node, codec attach.Codec, names *labels.Table, workers int) ([]*scene.Attach, error) {
	var addrs []uint32
	index := make(map[uint32]int)
	for _, n := range nodes {
		if n.MeshPtr == 0 {
			continue
		}
		if _, ok := index[n.MeshPtr]; !ok {
			index[n.MeshPtr] = len(addrs)
			addrs = append(addrs, n.MeshPtr)
		}
	}

	attaches := make([]*scene.Attach, len(addrs))
	if workers <= 1 {
		for i, addr := range addrs {
			a, err := codec.Read(r, addr, i, names)
			if err != nil {
				return nil, err
			}
			attaches[i] = a
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i, addr := range addrs {
			g.Go(func() error {
				a, err := codec.Read(r, addr, i, names)
				if err != nil {
					return err
				}
				attaches[i] = a
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	for _, n := range nodes {
		if n.MeshPtr == 0 {
			continue
		}
		a := attaches[index[n.MeshPtr]]
		n.Attach = a
		a.AffectedBy.Add(uint32(n.ID))
	}
	return attaches, nil
}
