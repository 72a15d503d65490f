package texture

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// extension priority: TGA carries alpha, so it wins over PNG and JPEG.
var extRank = map[string]int{".tga": 3, ".png": 2, ".jpg": 1, ".jpeg": 1}

// Index maps texture IDs to filesystem paths. A file is indexed when its
// stem ends in a decimal ID, e.g. "12.tga", "tex12.png" or "stage_0012.png".
type Index struct {
	entries map[uint32]string
}

// BuildIndex scans dir and its subdirectories for texture images.
func BuildIndex(dir string) *Index {
	idx := &Index{entries: make(map[uint32]string)}
	if dir == "" {
		return idx
	}

	// Unreadable entries are skipped, so the walk itself never fails.
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		rank, ok := extRank[ext]
		if !ok {
			return nil
		}
		id, ok := parseID(strings.TrimSuffix(d.Name(), filepath.Ext(path)))
		if !ok {
			return nil
		}

		existing, exists := idx.entries[id]
		if !exists || rank > extRank[strings.ToLower(filepath.Ext(existing))] {
			idx.entries[id] = path
		}
		return nil
	})

	return idx
}

func parseID(stem string) (uint32, bool) {
	if i := strings.LastIndexByte(stem, '_'); i >= 0 {
		stem = stem[i+1:]
	}
	stem = strings.TrimPrefix(strings.ToLower(stem), "tex")
	id, err := strconv.ParseUint(stem, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// ResolvePath returns the filesystem path for a texture ID, or ("", false).
func (idx *Index) ResolvePath(id uint32) (string, bool) {
	path, ok := idx.entries[id]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}
