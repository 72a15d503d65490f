package scene

import (
	"fmt"
	"strings"
)

// Format is the geometry layout family of a model file.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatBasic          // SA1MDL
	FormatChunk          // SA2MDL
	FormatGC             // SA2BMDL
)

func (f Format) String() string {
	switch f {
	case FormatBasic:
		return "SA1"
	case FormatChunk:
		return "SA2"
	case FormatGC:
		return "SA2B"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat accepts "sa1", "sa2", "sa2b" and the basic/chunk/gc aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "sa1", "basic":
		return FormatBasic, nil
	case "sa2", "chunk":
		return FormatChunk, nil
	case "sa2b", "gc":
		return FormatGC, nil
	}
	return FormatUnknown, fmt.Errorf("scene: unknown format %q", s)
}
