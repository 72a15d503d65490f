package skin

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"sa-mdl-tools/internal/scene"
)

type vertexKey struct {
	position mgl32.Vec3
	normal   mgl32.Vec3
	weights  string
}

// Dedup coalesces vertices of a merged skin that share position, normal and
// bone weights, and remaps every corner to the surviving index. It must not
// run before the merge: weighted blocks address the original indices.
func Dedup(sk *scene.Skin) {
	remap := make([]uint16, len(sk.Vertices))
	seen := make(map[vertexKey]uint16, len(sk.Vertices))
	var (
		verts   []scene.Vertex
		weights [][]scene.BoneWeight
	)
	for i, v := range sk.Vertices {
		k := vertexKey{v.Position, v.Normal, weightKey(sk.Weights[i])}
		if j, ok := seen[k]; ok {
			remap[i] = j
			continue
		}
		j := uint16(len(verts))
		seen[k] = j
		remap[i] = j
		verts = append(verts, v)
		weights = append(weights, sk.Weights[i])
	}

	for _, s := range sk.Sets {
		for _, p := range s.Polygons {
			for c := range p {
				p[c].Index = remap[p[c].Index]
			}
		}
	}
	sk.Vertices, sk.Weights = verts, weights
}

func weightKey(ws []scene.BoneWeight) string {
	var b strings.Builder
	for _, w := range ws {
		b.WriteString(strconv.Itoa(w.Node))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(float64(w.Weight), 'g', -1, 32))
		b.WriteByte(';')
	}
	return b.String()
}
