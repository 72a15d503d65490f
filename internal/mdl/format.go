// Package mdl reads and writes SA1MDL, SA2MDL and SA2BMDL model files.
//
// A file starts with an 8-byte header: a format indicator in the low 56 bits
// and a version byte in the top byte. The root node pointer follows at 0x08.
// Version 2 and later keep metadata in a chunk stream pointed to from 0x0C;
// older files use fixed header slots for their string arrays.
package mdl

import (
	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/scene"
)

// Format indicators, stored little-endian as ASCII.
const (
	IndicatorSA1MDL  uint64 = 0x00004C444D314153
	IndicatorSA2MDL  uint64 = 0x00004C444D324153
	IndicatorSA2BMDL uint64 = 0x004C444D42324153

	indicatorMask uint64 = 0x00FFFFFFFFFFFFFF
)

// WriteVersion is the version every encoded file carries.
const WriteVersion = 3

const (
	offRoot     = 0x08
	offMetadata = 0x0C // v>=2 chunk stream, v<2 animation array
	offMorphs   = 0x10 // v1
	offLabels   = 0x14 // v1
	headerSize  = 0x10
)

// Header is the decoded file header.
type Header struct {
	Format  scene.Format
	Version uint8
}

// ParseHeader splits the first header word into format and version.
func ParseHeader(word uint64) (Header, error) {
	h := Header{Version: uint8(word >> 56)}
	switch word & indicatorMask {
	case IndicatorSA1MDL:
		h.Format = scene.FormatBasic
	case IndicatorSA2MDL:
		h.Format = scene.FormatChunk
	case IndicatorSA2BMDL:
		h.Format = scene.FormatGC
	default:
		return h, errors.New(errors.PhaseRead, errors.KindUnrecognizedFormat).
			At(0).
			Detail("indicator 0x%014x", word&indicatorMask).
			Build()
	}
	return h, nil
}

// Word packs the header back into its on-disk form.
func (h Header) Word() (uint64, error) {
	var ind uint64
	switch h.Format {
	case scene.FormatBasic:
		ind = IndicatorSA1MDL
	case scene.FormatChunk:
		ind = IndicatorSA2MDL
	case scene.FormatGC:
		ind = IndicatorSA2BMDL
	default:
		return 0, errors.New(errors.PhaseWrite, errors.KindUnrecognizedFormat).
			Detail("no indicator for %v", h.Format).
			Build()
	}
	return ind | uint64(h.Version)<<56, nil
}
