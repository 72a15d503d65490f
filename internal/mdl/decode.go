package mdl

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sa-mdl-tools/internal/attach"
	"sa-mdl-tools/internal/errors"
	"sa-mdl-tools/internal/hierarchy"
	"sa-mdl-tools/internal/labels"
	"sa-mdl-tools/internal/scene"
	"sa-mdl-tools/internal/skin"
	"sa-mdl-tools/internal/space"
)

// Options configure one Decode or Encode call.
type Options struct {
	// Logger receives debug narration: labels, hierarchy, skipped chunks.
	// Nil disables it.
	Logger *zap.Logger
	// DedupVertices coalesces identical vertices of merged skins.
	DedupVertices bool
	// Workers > 1 decodes distinct attaches concurrently.
	Workers int
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// DecodeFile reads and decodes the model at path.
func DecodeFile(path string, opts Options) (*scene.Scene, error) {
	if path == "" {
		return nil, errors.New(errors.PhaseRead, errors.KindInvalidPath).Detail("empty path").Build()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseRead, errors.KindInvalidPath).
			Detail("%s", path).
			Cause(err).
			Build()
	}
	s, err := Decode(data, opts.withLogger(opts.logger().With(zap.String("file", path))))
	if err != nil {
		return nil, fmt.Errorf("mdl: decode %s: %w", path, err)
	}
	return s, nil
}

func (o Options) withLogger(l *zap.Logger) Options {
	o.Logger = l
	return o
}

// Decode parses a complete model file. On any failure no scene is returned.
func Decode(data []byte, opts Options) (*scene.Scene, error) {
	log := opts.logger()
	r := space.NewReader(data)

	word, err := r.U64(0)
	if err != nil {
		return nil, errors.New(errors.PhaseRead, errors.KindUnrecognizedFormat).
			Detail("file of %d bytes has no header", len(data)).
			Cause(err).
			Build()
	}
	hdr, err := ParseHeader(word)
	if err != nil {
		return nil, err
	}
	log.Debug("header", zap.Stringer("format", hdr.Format), zap.Uint8("version", hdr.Version))

	meta, names, err := readMetadata(r, hdr.Version, log)
	if err != nil {
		return nil, fmt.Errorf("mdl: read metadata: %w", err)
	}

	root, err := r.U32(offRoot)
	if err != nil {
		return nil, err
	}
	nodes, roots, err := hierarchy.Read(r, root, names)
	if err != nil {
		return nil, fmt.Errorf("mdl: read hierarchy: %w", err)
	}

	codec, err := attach.For(hdr.Format)
	if err != nil {
		return nil, err
	}
	attaches, err := hierarchy.ResolveAttaches(r, nodes, codec, names, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("mdl: read attaches: %w", err)
	}

	s := &scene.Scene{
		Format:   hdr.Format,
		Version:  hdr.Version,
		Meta:     meta,
		Nodes:    nodes,
		Roots:    roots,
		Attaches: attaches,
	}
	if err := skin.Resolve(s, skin.Options{DedupVertices: opts.DedupVertices, Logger: log}); err != nil {
		return nil, fmt.Errorf("mdl: resolve skin: %w", err)
	}

	if log.Core().Enabled(zapcore.DebugLevel) {
		narrate(log, s, names)
	}
	return s, nil
}

// narrate logs the label table and the hierarchy tree.
func narrate(log *zap.Logger, s *scene.Scene, names *labels.Table) {
	for _, e := range names.Entries() {
		log.Debug("label", zap.String("addr", fmt.Sprintf("%08X", e.Addr)), zap.String("name", e.Name))
	}
	for _, n := range s.Nodes {
		fields := []zap.Field{zap.Int("id", n.ID), zap.Int("depth", n.Depth)}
		if n.Attach != nil {
			fields = append(fields, zap.String("attach", n.Attach.Name))
		}
		log.Debug(strings.Repeat("--", n.Depth)+" "+n.Name, fields...)
	}
	log.Debug("decoded",
		zap.Int("nodes", len(s.Nodes)),
		zap.Int("attaches", len(s.Attaches)),
		zap.Bool("armature", s.IsArmature()),
		zap.Strings("animations", s.Meta.Animations),
		zap.Strings("morphs", s.Meta.Morphs))
}
