package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sa-mdl-tools/internal/mdl"
	"sa-mdl-tools/internal/scene"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Print the format, metadata, hierarchy and geometry of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := mdl.DecodeFile(args[0], decodeOptions())
		if err != nil {
			return err
		}
		printScene(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func printScene(w io.Writer, s *scene.Scene) {
	fmt.Fprintf(w, "format:  %s v%d\n", s.Format, s.Version)
	if s.Meta.Author != "" {
		fmt.Fprintf(w, "author:  %s\n", s.Meta.Author)
	}
	if s.Meta.Description != "" {
		fmt.Fprintf(w, "desc:    %s\n", s.Meta.Description)
	}
	for _, a := range s.Meta.Animations {
		fmt.Fprintf(w, "anim:    %s\n", a)
	}
	for _, m := range s.Meta.Morphs {
		fmt.Fprintf(w, "morph:   %s\n", m)
	}

	fmt.Fprintf(w, "\nnodes (%d):\n", len(s.Nodes))
	for _, n := range s.Nodes {
		line := fmt.Sprintf("%s%s", strings.Repeat("  ", n.Depth+1), n.Name)
		if n.Attach != nil {
			line += fmt.Sprintf(" -> %s", n.Attach.Name)
		}
		if n.Flags != 0 {
			line += fmt.Sprintf(" [flags %#x]", uint32(n.Flags))
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\nattaches (%d):\n", len(s.Attaches))
	for _, a := range s.Attaches {
		fmt.Fprintf(w, "  %-24s @%08X verts=%d polys=%d sets=%d mats=%d refs=%v\n",
			a.Name, a.Address, a.VertexCount(), a.PolygonCount(), len(a.Sets), len(a.Materials), a.References())
	}

	if arm := s.Armature; arm != nil {
		fmt.Fprintf(w, "\narmature: root=%s bones=%d skins=%d\n", arm.Root.Name, len(arm.Bones), len(arm.Skins))
		for _, sk := range arm.Skins {
			fmt.Fprintf(w, "  skin %s: %d merged vertices\n", sk.Attach.Name, len(sk.Vertices))
		}
	}
}
