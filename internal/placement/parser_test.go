package placement

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `0 1 obj_palm.sa1mdl, {10, 0, -5.5}, {0, 90, 0}, {1, 1, 1}

2 3 rock.big.sa2mdl,{1,2,3},{0,0,0},{2,2,2}
`

func TestReadEntries(t *testing.T) {
	entries, err := Read(strings.NewReader(sample), "stage")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	palm := entries[0]
	assert.Equal(t, 1, palm.Line)
	assert.Equal(t, "obj_palm", palm.Name())
	assert.Equal(t, filepath.Join("stage", "obj_palm.sa2mdl"), palm.ModelFile)
	assert.Equal(t, mgl32.Vec3{10, 0, -5.5}, palm.Position)
	assert.Equal(t, mgl32.Vec3{0, 90, 0}, palm.Rotation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, palm.Scale)

	rock := entries[1]
	assert.Equal(t, 3, rock.Line)
	assert.Equal(t, filepath.Join("stage", "rock.sa2mdl"), rock.ModelFile)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, rock.Scale)
}

func TestMatrix(t *testing.T) {
	e := Entry{Position: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.Vec3{0, math.Pi / 2, 0}, Scale: mgl32.Vec3{2, 2, 2}}
	p := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, e.Matrix())
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, -2, p[2], 1e-5)
}

func TestMatrixRotatesXFirst(t *testing.T) {
	e := Entry{Rotation: mgl32.Vec3{math.Pi / 2, math.Pi / 2, 0}, Scale: mgl32.Vec3{1, 1, 1}}
	p := mgl32.TransformCoordinate(mgl32.Vec3{0, 1, 0}, e.Matrix())
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, 0, p[2], 1e-5)
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"too few fields": "0 1 a.sa2mdl, {1,2,3}",
		"short head":     "a.sa2mdl, {1,2,3}, {0,0,0}, {1,1,1}",
		"bad number":     "0 1 a.sa2mdl, {1,x,3}, {0,0,0}, {1,1,1}",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(text), ".")
			assert.ErrorContains(t, err, "line 1")
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "set.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	entries, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "obj_palm.sa2mdl"), entries[0].ModelFile)

	_, err = Parse(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "placement: read")
}
