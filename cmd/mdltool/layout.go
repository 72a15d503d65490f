package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sa-mdl-tools/internal/batch"
	"sa-mdl-tools/internal/placement"
	"sa-mdl-tools/internal/postprocess"
	"sa-mdl-tools/internal/raster"
)

var (
	layoutOut      string
	layoutManifest string
)

var layoutCmd = &cobra.Command{
	Use:   "layout LIST",
	Short: "Decode every model placed by a layout list and render the set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := placement.Parse(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("layout: %s places no models", args[0])
		}
		log.Info("layout", zap.String("list", args[0]), zap.Int("entries", len(entries)), zap.Int("workers", cfg.Workers))

		start := time.Now()
		results := batch.Run(cmd.Context(), batch.Config{
			Decode:   decodeOptions(),
			Workers:  cfg.Workers,
			Logger:   log,
			Progress: 2 * time.Second,
		}, entries)

		ok := batch.Succeeded(results)
		log.Info("decoded", zap.Int("ok", ok), zap.Int("failed", len(results)-ok), zap.Duration("elapsed", time.Since(start)))

		if layoutManifest != "" {
			if err := batch.WriteManifest(layoutManifest, results); err != nil {
				return fmt.Errorf("layout: manifest: %w", err)
			}
		}
		if ok == 0 {
			return fmt.Errorf("layout: no model in %s could be decoded", args[0])
		}

		placed := make([]raster.Placed, 0, ok)
		for _, r := range results {
			if r.Success {
				placed = append(placed, raster.Placed{Scene: r.Scene, Matrix: r.Entry.Matrix()})
			}
		}

		textures, err := textureCache()
		if err != nil {
			return err
		}
		img := raster.RenderPlaced(placed, raster.Options{
			Size:        cfg.RenderSize,
			Supersample: cfg.Supersample,
			Textures:    textures,
		})
		img = postprocess.Downsample(img, cfg.RenderSize)

		out := outputPath(layoutOut, args[0], ".webp")
		if err := writeWebP(out, img); err != nil {
			return fmt.Errorf("layout: write %s: %w", out, err)
		}
		log.Info("rendered", zap.String("file", out))
		return nil
	},
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutOut, "out", "o", "", "output .webp path")
	layoutCmd.Flags().StringVar(&layoutManifest, "manifest", "", "write a JSON manifest of the decoded entries")
	rootCmd.AddCommand(layoutCmd)
}
