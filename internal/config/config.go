package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds the paths and settings shared by every mdltool command.
type Config struct {
	// Paths
	BaseDir    string `json:"base_dir"`
	ModelDir   string `json:"model_dir"`
	TextureDir string `json:"texture_dir"`
	OutputDir  string `json:"output_dir"`

	// Decode settings
	NoDoubleVerts bool `json:"no_double_verts"`
	DecodeWorkers int  `json:"decode_workers"`
	Debug         bool `json:"debug"`

	// Preview settings
	RenderSize   int `json:"render_size"`
	Supersample  int `json:"supersample"`
	TextureCache int `json:"texture_cache"`
	Workers      int `json:"workers"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when set.
func (c *Config) Resolve(flags Flags) {
	if flags.DataDir != "" {
		c.BaseDir = flags.DataDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.NoDoubleVerts {
		c.NoDoubleVerts = true
	}
	if flags.Debug {
		c.Debug = true
	}

	if c.BaseDir == "" {
		c.BaseDir = detectBaseDir()
	}

	if c.BaseDir != "" {
		c.ModelDir = under(c.BaseDir, c.ModelDir, filepath.Join("resource", "gd_PC"))
		c.TextureDir = under(c.BaseDir, c.TextureDir, filepath.Join("resource", "gd_PC", "textures"))
		c.OutputDir = under(c.BaseDir, c.OutputDir, "renders")
	}

	if c.RenderSize <= 0 {
		c.RenderSize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.TextureCache <= 0 {
		c.TextureCache = 64
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.DecodeWorkers <= 0 {
		c.DecodeWorkers = 1
	}
}

// under resolves p against base, falling back to def when p is empty.
func under(base, p, def string) string {
	if p == "" {
		return filepath.Join(base, def)
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	DataDir       string
	OutputDir     string
	TextureDir    string
	Workers       int
	NoDoubleVerts bool
	Debug         bool
}

func detectBaseDir() string {
	exe, _ := os.Executable()
	if exe != "" {
		dir := filepath.Dir(exe)
		for _, base := range []string{dir, filepath.Dir(dir)} {
			if isGameDir(base) {
				return base
			}
		}
	}

	cwd, _ := os.Getwd()
	if isGameDir(cwd) {
		return cwd
	}
	if parent := filepath.Dir(cwd); isGameDir(parent) {
		return parent
	}
	return ""
}

func isGameDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "resource", "gd_PC"))
	return err == nil
}
