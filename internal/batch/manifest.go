package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one layout entry in the output manifest.
type ManifestEntry struct {
	Line      int        `json:"line"`
	Name      string     `json:"name"`
	ModelFile string     `json:"model_file"`
	Position  [3]float32 `json:"position"`
	Rotation  [3]float32 `json:"rotation"`
	Scale     [3]float32 `json:"scale"`
	Format    string     `json:"format,omitempty"`
	Nodes     int        `json:"nodes"`
	Attaches  int        `json:"attaches"`
	Armature  bool       `json:"armature"`
	Error     string     `json:"error,omitempty"`
}

// Manifest converts results to manifest entries.
func Manifest(results []Result) []ManifestEntry {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		e := r.Entry
		m := ManifestEntry{
			Line:      e.Line,
			Name:      e.Name(),
			ModelFile: e.ModelFile,
			Position:  e.Position,
			Rotation:  e.Rotation,
			Scale:     e.Scale,
			Error:     r.Error,
		}
		if s := r.Scene; s != nil {
			m.Format = s.Format.String()
			m.Nodes = len(s.Nodes)
			m.Attaches = len(s.Attaches)
			m.Armature = s.IsArmature()
		}
		entries[i] = m
	}
	return entries
}

// WriteManifest writes the manifest of results as indented JSON.
func WriteManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(Manifest(results), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
