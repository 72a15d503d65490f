package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sa-mdl-tools/internal/mdl"
	"sa-mdl-tools/internal/scene"
)

var (
	convertFormat string
	convertScale  float32
)

var convertCmd = &cobra.Command{
	Use:   "convert IN OUT",
	Short: "Decode a model and re-encode it, optionally in another layout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := mdl.DecodeFile(args[0], decodeOptions())
		if err != nil {
			return err
		}

		e := mdl.FromScene(s)
		if convertFormat != "" {
			f, err := scene.ParseFormat(convertFormat)
			if err != nil {
				return err
			}
			e.Format = f
		}
		if convertScale != 1 {
			e.Conversion = mgl32.Scale3D(convertScale, convertScale, convertScale)
		}

		if err := mdl.EncodeFile(args[1], e, decodeOptions()); err != nil {
			return fmt.Errorf("convert %s: %w", args[0], err)
		}
		log.Info("converted",
			zap.String("in", args[0]),
			zap.String("out", args[1]),
			zap.Stringer("from", s.Format),
			zap.Stringer("to", e.Format))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertFormat, "format", "", "target layout: sa1, sa2 or sa2b (default: keep)")
	convertCmd.Flags().Float32Var(&convertScale, "scale", 1, "uniform scale applied to geometry")
	rootCmd.AddCommand(convertCmd)
}
