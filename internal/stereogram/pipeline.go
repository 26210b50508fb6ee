// Package stereogram builds autostereograms from depth maps.
//
// The pipeline resolves a tile (explicit, derived from the depth map, or a
// random dot pattern), repeats it across a canvas the size of the depth map
// and then shifts every row of that canvas in place according to depth:
//
//	res, err := stereogram.Generate(ctx, depthImg, stereogram.Options{
//	    Tile: tile.RandomSource(100, 100, 1000),
//	    Seed: 7,
//	})
//
// Generate is a pure function of its inputs and performs no I/O. Runner
// wraps it with decoding, PNG encoding and a result cache.
package stereogram

import (
	"context"
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kiesman99/stereogram/pkg/tile"
)

// DefaultSeed is the random seed used when none is given
const DefaultSeed = uint64(42)

// Options configures a pipeline run
type Options struct {
	Tile tile.Source `json:"-"`

	DepthScale  int    `json:"depth_scale,omitempty"`
	Dots        int    `json:"dots,omitempty"`
	Seed        uint64 `json:"seed,omitempty"`
	TileWidth   int    `json:"tile_width,omitempty"`
	TileHeight  int    `json:"tile_height,omitempty"`
	SelfDivisor int    `json:"self_divisor,omitempty"`

	// Runtime options (not part of the result identity)
	Workers int         `json:"-"`
	Logger  *log.Logger `json:"-"`
}

// Result holds the output of a pipeline run
type Result struct {
	// Image is the finished autostereogram, the same size as the depth map.
	Image *image.RGBA
	// Tile is the resolved pattern; its width is the shift period.
	Tile   *image.RGBA
	Period int
	// LumaConverted is set when the depth map had to be reduced to one channel.
	LumaConverted bool
	Stats         Stats
}

// Stats contains stage timings
type Stats struct {
	TileTime   time.Duration
	TilingTime time.Duration
	ShiftTime  time.Duration
}

// SetDefaults fills zero-valued options
func (o *Options) SetDefaults() {
	if o.DepthScale == 0 {
		o.DepthScale = DefaultDepthScale
	}
	if o.Dots == 0 {
		o.Dots = tile.DefaultDotCount
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.TileWidth == 0 {
		o.TileWidth = tile.DefaultSize
	}
	if o.TileHeight == 0 {
		o.TileHeight = tile.DefaultSize
	}
	if o.SelfDivisor == 0 {
		o.SelfDivisor = tile.DefaultSelfDivisor
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks option ranges. It expects SetDefaults to have run.
func (o *Options) Validate() error {
	if o.DepthScale < 1 {
		return fmt.Errorf("depth_scale must be at least 1, got %d", o.DepthScale)
	}
	if o.Dots < 0 {
		return fmt.Errorf("dots must not be negative, got %d", o.Dots)
	}
	if o.TileWidth < 1 || o.TileHeight < 1 {
		return fmt.Errorf("tile size must be positive, got %dx%d", o.TileWidth, o.TileHeight)
	}
	if o.SelfDivisor < 1 {
		return fmt.Errorf("self_divisor must be at least 1, got %d", o.SelfDivisor)
	}
	switch o.Tile.Kind {
	case tile.Explicit:
		if o.Tile.Image == nil {
			return fmt.Errorf("explicit tile source without an image")
		}
	case tile.SelfDerived:
		if o.Tile.Divisor < 0 {
			return fmt.Errorf("tile divisor must not be negative, got %d", o.Tile.Divisor)
		}
	case tile.Synthesized:
		if o.Tile.Width < 0 || o.Tile.Height < 0 {
			return fmt.Errorf("tile size must not be negative, got %dx%d", o.Tile.Width, o.Tile.Height)
		}
		if o.Tile.Dots < 0 {
			return fmt.Errorf("tile dots must not be negative, got %d", o.Tile.Dots)
		}
	}
	return nil
}

// Generate runs the full pipeline on a decoded depth map
func Generate(ctx context.Context, depth image.Image, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	gray, converted := Luma(depth)
	if converted {
		logger.Debug("converted depth map to luma", "type", fmt.Sprintf("%T", depth))
	}
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, &DecodeError{Input: InputDepth, Err: fmt.Errorf("depth map is empty")}
	}

	result := &Result{LumaConverted: converted}

	// Stage 1: tile
	start := time.Now()
	pattern, err := resolveTile(depth, opts)
	if err != nil {
		return nil, fmt.Errorf("tile: %w", err)
	}
	result.Tile = pattern
	result.Period = pattern.Rect.Dx()
	result.Stats.TileTime = time.Since(start)
	logger.Debug("resolved tile",
		"kind", opts.Tile.Kind,
		"width", pattern.Rect.Dx(),
		"height", pattern.Rect.Dy())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: tiling
	start = time.Now()
	canvas, err := tile.Tile(pattern, w, h)
	if err != nil {
		return nil, fmt.Errorf("tiling: %w", err)
	}
	result.Stats.TilingTime = time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: depth shift, in place
	start = time.Now()
	rs := Resampler{DepthScale: opts.DepthScale, Workers: opts.Workers}
	if err := rs.Shift(canvas, gray, result.Period); err != nil {
		return nil, fmt.Errorf("shift: %w", err)
	}
	result.Image = canvas
	result.Stats.ShiftTime = time.Since(start)

	logger.Debug("shifted image",
		"width", w,
		"height", h,
		"period", result.Period,
		"depth_scale", opts.DepthScale,
		"duration", result.Stats.ShiftTime)

	return result, nil
}

// resolveTile produces the tile pattern selected by opts.Tile. depth is the
// decoded depth image, not its luma reduction.
func resolveTile(depth image.Image, opts Options) (*image.RGBA, error) {
	src := opts.Tile
	switch src.Kind {
	case tile.Explicit:
		pattern := tile.Opaque(src.Image)
		if pattern.Rect.Empty() {
			return nil, tile.ErrEmptyTile
		}
		return pattern, nil
	case tile.SelfDerived:
		divisor := src.Divisor
		if divisor == 0 {
			divisor = opts.SelfDivisor
		}
		return SelfTile(depth, divisor), nil
	case tile.Synthesized:
		w, h, n := src.Width, src.Height, src.Dots
		if w == 0 {
			w = opts.TileWidth
		}
		if h == 0 {
			h = opts.TileHeight
		}
		if n == 0 {
			n = opts.Dots
		}
		rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef))
		pattern, _, err := tile.RandomDots(w, h, n, rng)
		return pattern, err
	}
	return nil, fmt.Errorf("unknown tile kind %v", src.Kind)
}
