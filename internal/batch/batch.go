// Package batch runs one stereogram job from files on disk.
package batch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kiesman99/stereogram/internal/stereogram"
	"github.com/kiesman99/stereogram/pkg/tile"
)

// SelfTile is the tile argument that derives the tile from the depth map
const SelfTile = "self"

// Stdout is the output name that writes PNG data to standard output
const Stdout = "-"

// Job describes a single generation from files
type Job struct {
	// DepthPath is a file path or an http(s) URL, as is TilePath.
	DepthPath string
	// TilePath is a tile image, SelfTile, or empty for random dots.
	TilePath string
	// OutPath defaults to the depth map's base name with a .png extension.
	OutPath string
	Options stereogram.Options
}

// Result reports what a job produced
type Result struct {
	OutPath string
	*stereogram.Output
}

// Batch executes jobs against a shared runner
type Batch struct {
	runner *stereogram.Runner
	loader *tile.Loader
	logger *log.Logger

	// isTerminal reports whether stdout is a terminal
	isTerminal func() bool
}

// New creates a batch executor. A nil loader reads files and downloads
// URLs with the default user agent.
func New(runner *stereogram.Runner, loader *tile.Loader, logger *log.Logger) *Batch {
	if logger == nil {
		logger = log.Default()
	}
	if loader == nil {
		loader = tile.NewLoader("", 30*time.Second)
	}
	return &Batch{runner: runner, loader: loader, logger: logger, isTerminal: stdoutIsTerminal}
}

// Run reads the job's inputs, generates the stereogram and writes it out
func (b *Batch) Run(ctx context.Context, job Job) (*Result, error) {
	if job.DepthPath == "" {
		return nil, errors.New("depth map path is required")
	}

	out, err := OutputPath(job.DepthPath, job.OutPath)
	if err != nil {
		return nil, err
	}
	if out == Stdout && b.isTerminal() {
		return nil, errors.New("refusing to write PNG data to a terminal; use --out to name a file")
	}

	depth, err := b.loader.Load(ctx, job.DepthPath)
	if err != nil {
		return nil, &stereogram.DecodeError{Input: stereogram.InputDepth, Err: err}
	}

	req := stereogram.Request{Depth: depth, Options: job.Options}
	switch job.TilePath {
	case "":
		req.Options.Tile.Kind = tile.Synthesized
	case SelfTile:
		req.Options.Tile.Kind = tile.SelfDerived
	default:
		data, err := b.loader.Load(ctx, job.TilePath)
		if err != nil {
			return nil, &stereogram.DecodeError{Input: stereogram.InputTile, Err: err}
		}
		req.Tile = data
		req.Options.Tile.Kind = tile.Explicit
	}
	b.logger.Debug("running job", "depth", job.DepthPath, "tile", req.Options.Tile.Kind, "out", out)

	output, err := b.runner.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := tile.WritePNG(out, output.PNG); err != nil {
		return nil, &stereogram.EncodeError{Err: err}
	}
	if out != Stdout {
		b.logger.Info("wrote stereogram", "path", out, "cached", output.CacheHit)
	}
	return &Result{OutPath: out, Output: output}, nil
}

// OutputPath resolves the output name for depthPath. An explicit name is
// returned unchanged; otherwise the depth map's base name without extension
// gets a .png extension in the working directory. For URLs the last path
// segment is used. The default never overwrites the depth map itself.
func OutputPath(depthPath, out string) (string, error) {
	if out != "" {
		return out, nil
	}
	if tile.IsRemote(depthPath) {
		u, err := url.Parse(depthPath)
		if err != nil {
			return "", err
		}
		base := path.Base(u.Path)
		if base == "/" || base == "." {
			return "", fmt.Errorf("cannot derive an output name from %s; use --out", depthPath)
		}
		return strings.TrimSuffix(base, path.Ext(base)) + ".png", nil
	}

	base := filepath.Base(depthPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".png"

	src, err := filepath.Abs(depthPath)
	if err != nil {
		return "", err
	}
	dst, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	if src == dst {
		return "", fmt.Errorf("default output %s would overwrite the depth map; use --out", name)
	}
	return name, nil
}

func stdoutIsTerminal() bool {
	stat, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
