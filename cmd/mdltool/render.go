package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sa-mdl-tools/internal/mdl"
	"sa-mdl-tools/internal/postprocess"
	"sa-mdl-tools/internal/raster"
)

var (
	renderOut  string
	renderSize int
)

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Render a still WebP preview of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := mdl.DecodeFile(args[0], decodeOptions())
		if err != nil {
			return err
		}
		if renderSize > 0 {
			cfg.RenderSize = renderSize
		}
		textures, err := textureCache()
		if err != nil {
			return err
		}

		img := raster.Render(s, raster.Options{
			Size:        cfg.RenderSize,
			Supersample: cfg.Supersample,
			Textures:    textures,
		})
		img = postprocess.Downsample(img, cfg.RenderSize)

		out := outputPath(renderOut, args[0], ".webp")
		if err := writeWebP(out, img); err != nil {
			return fmt.Errorf("render: write %s: %w", out, err)
		}
		log.Info("rendered", zap.String("file", out), zap.Int("textures", textures.Len()))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output .webp path")
	renderCmd.Flags().IntVar(&renderSize, "size", 0, "image edge in pixels (default: config)")
	rootCmd.AddCommand(renderCmd)
}
