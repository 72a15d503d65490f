package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWidth(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 3},
		{5, 3},
		{999, 3},
		{1000, 4},
		{12345, 5},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Width(tc.count), "count %d", tc.count)
	}
}

func TestResolve(t *testing.T) {
	tbl := New()
	tbl.Set(0x40, "root")
	tbl.Set(0x40, "ignored")
	tbl.SetWidth(Width(1500))

	assert.Equal(t, "root", tbl.Resolve(0x40, Node, 0))
	assert.Equal(t, "object_0007", tbl.Resolve(0x80, Node, 7))
	assert.Equal(t, "attach_0012", tbl.Resolve(0x90, Attach, 12))
}

func TestSynthesizedNamesSortInTraversalOrder(t *testing.T) {
	names := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		names = append(names, Synthesize(Node, i, Width(120)))
	}
	assert.IsIncreasing(t, names)
}

func TestEntriesKeepInsertionOrder(t *testing.T) {
	tbl := New()
	tbl.Set(0x90, "b")
	tbl.Set(0x10, "a")

	assert.Equal(t, []Entry{{0x90, "b"}, {0x10, "a"}}, tbl.Entries())
	assert.Equal(t, 2, tbl.Len())
}
