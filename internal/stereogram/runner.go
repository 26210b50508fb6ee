package stereogram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kiesman99/stereogram/internal/cache"
	"github.com/kiesman99/stereogram/pkg/tile"
)

// ErrMissingTile is returned for an explicit tile request without tile data
var ErrMissingTile = errors.New("explicit tile mode requires tile data")

// Request is an encoded pipeline input
type Request struct {
	Depth   []byte // encoded depth map (required)
	Tile    []byte // encoded tile, required when Options.Tile.Kind is Explicit
	Options Options
}

// Output is an encoded pipeline result
type Output struct {
	PNG      []byte
	CacheHit bool
	Duration time.Duration
	// Result is nil when the output came from the cache.
	Result *Result
}

// Runner decodes inputs, runs the pipeline and encodes the result, keeping
// encoded results in a cache. A Runner is safe for concurrent use.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil
// logger falls back to log.Default().
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute runs req, serving it from the cache when an identical request
// was seen before.
func (r *Runner) Execute(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()
	opts := req.Options
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	opts.SetDefaults()
	if opts.Tile.Kind == tile.Explicit && len(req.Tile) == 0 {
		return nil, ErrMissingTile
	}

	key := r.key(req, opts)
	if data, hit, err := r.Cache.Get(ctx, key); err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	} else if hit {
		r.Logger.Debug("cache hit", "key", key)
		return &Output{PNG: data, CacheHit: true, Duration: time.Since(start)}, nil
	}

	depth, _, err := tile.Decode(req.Depth)
	if err != nil {
		return nil, &DecodeError{Input: InputDepth, Err: err}
	}
	if opts.Tile.Kind == tile.Explicit {
		img, _, err := tile.Decode(req.Tile)
		if err != nil {
			return nil, &DecodeError{Input: InputTile, Err: err}
		}
		opts.Tile.Image = img
	}

	res, err := Generate(ctx, depth, opts)
	if err != nil {
		return nil, err
	}

	data, err := tile.PNGBytes(res.Image)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
	}

	out := &Output{PNG: data, Result: res, Duration: time.Since(start)}
	r.Logger.Info("generated stereogram",
		"width", res.Image.Rect.Dx(),
		"height", res.Image.Rect.Dy(),
		"tile", opts.Tile.Kind,
		"period", res.Period,
		"duration", out.Duration.Round(time.Millisecond))
	return out, nil
}

// Close releases the cache
func (r *Runner) Close() error {
	return r.Cache.Close()
}

// key identifies everything that determines the output pixels
func (r *Runner) key(req Request, opts Options) string {
	src := opts.Tile
	tileHash := ""
	if src.Kind == tile.Explicit {
		tileHash = cache.Hash(req.Tile)
	}
	return cache.Key("result",
		cache.Hash(req.Depth),
		src.Kind.String(), tileHash, src.Divisor, src.Width, src.Height, src.Dots,
		opts.DepthScale, opts.Dots, fmt.Sprint(opts.Seed),
		opts.TileWidth, opts.TileHeight, opts.SelfDivisor)
}
