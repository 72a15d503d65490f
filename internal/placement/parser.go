package placement

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Parse reads a layout list and returns its entries. Each non-blank line is
//
//	<a> <b> name.ext, {px, py, pz}, {rx, ry, rz}, {sx, sy, sz}
//
// The model file is name.sa2mdl in the list's directory whatever ext says.
func Parse(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("placement: read %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Read(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("placement: parse %s: %w", path, err)
	}
	return entries, nil
}

// Read parses a layout list from r, resolving model files against dir.
func Read(r io.Reader, dir string) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		e, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		e.Line = line
		e.ModelFile = filepath.Join(dir, stem(e.Source)+".sa2mdl")
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseLine(text string) (Entry, error) {
	fields := strings.Split(text, ",")
	if len(fields) != 10 {
		return Entry{}, fmt.Errorf("want 10 comma-separated fields, got %d", len(fields))
	}

	head := strings.Fields(fields[0])
	if len(head) < 3 {
		return Entry{}, fmt.Errorf("model field %q: want three words", fields[0])
	}

	var vals [9]float32
	for i := range vals {
		s := strings.Trim(fields[i+1], " \t{}")
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Entry{}, fmt.Errorf("field %d: %w", i+2, err)
		}
		vals[i] = float32(v)
	}

	return Entry{
		Source:   head[2],
		Position: mgl32.Vec3{vals[0], vals[1], vals[2]},
		Rotation: mgl32.Vec3{vals[3], vals[4], vals[5]},
		Scale:    mgl32.Vec3{vals[6], vals[7], vals[8]},
	}, nil
}

func stem(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
