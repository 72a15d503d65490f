// Package batch decodes every model of a layout list with a worker pool.
package batch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sa-mdl-tools/internal/mdl"
	"sa-mdl-tools/internal/placement"
	"sa-mdl-tools/internal/scene"
)

// Config holds the shared settings of a batch run.
type Config struct {
	Decode   mdl.Options
	Workers  int
	Logger   *zap.Logger
	Progress time.Duration // interval of progress logs, 0 disables them
}

// Result is the outcome for one layout entry. Entries naming the same model
// file share one decoded Scene.
type Result struct {
	Entry   placement.Entry
	Scene   *scene.Scene
	Success bool
	Error   string
}

// decoded is the outcome for one unique model file.
type decoded struct {
	scene *scene.Scene
	err   error
}

// Run decodes each distinct model file once and returns a result per entry,
// in entry order. A failed file fails only the entries that name it.
func Run(ctx context.Context, cfg Config, entries []placement.Entry) []Result {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Decode.Logger == nil {
		cfg.Decode.Logger = log
	}

	var files []string
	slot := make(map[string]int)
	for _, e := range entries {
		if _, ok := slot[e.ModelFile]; !ok {
			slot[e.ModelFile] = len(files)
			files = append(files, e.ModelFile)
		}
	}

	out := make([]decoded, len(files))
	var processed atomic.Int64
	start := time.Now()

	stop := make(chan struct{})
	if cfg.Progress > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Progress)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					p := processed.Load()
					log.Info("progress",
						zap.Int64("done", p),
						zap.Int("total", len(files)),
						zap.Float64("files_per_sec", float64(p)/time.Since(start).Seconds()))
				}
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, path := range files {
		g.Go(func() error {
			defer processed.Add(1)
			if err := gctx.Err(); err != nil {
				out[i].err = err
				return nil
			}
			s, err := mdl.DecodeFile(path, cfg.Decode)
			out[i] = decoded{scene: s, err: err}
			if err != nil {
				log.Warn("decode failed", zap.String("file", path), zap.Error(err))
			}
			return nil
		})
	}
	// Decode failures are kept per file, so the group itself never fails.
	_ = g.Wait()
	close(stop)

	results := make([]Result, len(entries))
	for i, e := range entries {
		d := out[slot[e.ModelFile]]
		results[i] = Result{Entry: e, Scene: d.scene, Success: d.err == nil}
		if d.err != nil {
			results[i].Error = d.err.Error()
		}
	}

	log.Debug("batch done",
		zap.Int("entries", len(entries)),
		zap.Int("files", len(files)),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

// Succeeded counts the successful results.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
