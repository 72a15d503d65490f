package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sa-mdl-tools/internal/config"
	"sa-mdl-tools/internal/mdl"
	"sa-mdl-tools/internal/texture"
)

var (
	configPath string
	flags      config.Flags

	cfg config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "mdltool",
	Short:         "Decode, inspect, convert and preview SA model files",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Config{}
		if configPath != "" {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		}
		cfg.Resolve(flags)

		l, err := newLogger(cfg.Debug)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		log = l
		log.Debug("config", zap.Any("config", cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to a JSON config file")
	pf.StringVar(&flags.DataDir, "data", "", "game base directory (default: auto-detect)")
	pf.StringVar(&flags.TextureDir, "textures", "", "directory of <id>.tga/.png/.jpg textures")
	pf.StringVar(&flags.OutputDir, "output-dir", "", "directory for generated files")
	pf.IntVar(&flags.Workers, "workers", 0, "worker goroutines (default: NumCPU)")
	pf.BoolVar(&flags.NoDoubleVerts, "no-double-verts", false, "merge duplicate skinned vertices")
	pf.BoolVar(&flags.Debug, "debug", false, "narrate decoding on stderr")
}

// newLogger builds a console logger on stderr; debug lowers the level.
func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if !debug {
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zc.DisableStacktrace = true
	}
	return zc.Build()
}

func decodeOptions() mdl.Options {
	return mdl.Options{
		Logger:        log,
		DedupVertices: cfg.NoDoubleVerts,
		Workers:       cfg.DecodeWorkers,
	}
}

func textureCache() (*texture.Cache, error) {
	idx := texture.BuildIndex(cfg.TextureDir)
	log.Debug("textures indexed", zap.String("dir", cfg.TextureDir), zap.Int("count", idx.Len()))
	return texture.NewCache(idx, cfg.TextureCache, log)
}

// outputPath returns explicit when set, else <output dir>/<stem of src><ext>.
func outputPath(explicit, src, ext string) string {
	if explicit != "" {
		return explicit
	}
	base := filepath.Base(src)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ext
	if cfg.OutputDir == "" {
		return name
	}
	return filepath.Join(cfg.OutputDir, name)
}

func writeWebP(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("webp encode: %w", err)
	}
	return f.Close()
}
