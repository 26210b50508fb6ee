package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/stereogram/internal/batch"
	"github.com/kiesman99/stereogram/internal/cache"
	"github.com/kiesman99/stereogram/internal/stereogram"
	"github.com/kiesman99/stereogram/pkg/tile"
)

// Version is reported by --version and the health endpoint
const Version = "1.0.0"

var (
	cfgFile string
	verbose bool
	logger  = newLogger(log.InfoLevel)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stereogram",
	Short: "Generate autostereograms from depth maps",
	Long: `stereogram turns a depth map into an autostereogram (a "Magic Eye" image).

A tile is repeated across a canvas the size of the depth map and every row is
then shifted according to depth. The tile is a random dot pattern by default,
an image given with --tile, or the depth map itself shrunk with --tile self.
Any PNG, JPEG, GIF, WebP, BMP or TIFF depth map is accepted; color maps are
reduced to luma. Output is always PNG.

Examples:
  # Random dot stereogram, written to shark.png
  stereogram --depth shark.jpg

  # Use an explicit tile and a stronger depth effect
  stereogram --depth shark.png --tile leaves.png --depth-scale 6 -o out.png

  # Fetch the depth map over HTTP
  stereogram --depth https://example.com/maps/shark.png

  # Derive the tile from the depth map and write to stdout
  stereogram --depth shark.png --tile self -o - > out.png

  # Create a sample depth map to try things out
  stereogram sample depth -o depth.png

  # Start HTTP server
  stereogram serve --port 8080`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		return nil
	},
	RunE: runGenerate,
}

// Execute runs the root command with ctx. It is called by main.main().
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Logger returns the CLI logger
func Logger() *log.Logger {
	return logger
}

func newLogger(level log.Level) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.stereogram.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("cache-dir", "", "result cache directory (default: user cache dir)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "disable the result cache")

	// Input and output
	rootCmd.Flags().StringP("depth", "d", "", "depth map image file or URL (required)")
	rootCmd.Flags().StringP("tile", "t", "", "tile image, or 'self' to derive it from the depth map (default: random dots)")
	rootCmd.Flags().StringP("out", "o", "", "output PNG, '-' for stdout (default: <depth name>.png)")

	// Pipeline options
	rootCmd.Flags().Int("depth-scale", stereogram.DefaultDepthScale, "depth divisor; smaller values give more pronounced depth")
	rootCmd.Flags().Int("dots", tile.DefaultDotCount, "number of dots in a random tile")
	rootCmd.Flags().Uint64("seed", stereogram.DefaultSeed, "random seed for the dot tile")
	rootCmd.Flags().Int("tile-width", tile.DefaultSize, "random tile width in pixels")
	rootCmd.Flags().Int("tile-height", tile.DefaultSize, "random tile height in pixels")
	rootCmd.Flags().Int("self-divisor", tile.DefaultSelfDivisor, "shrink factor for --tile self")
	rootCmd.Flags().Int("workers", 0, "rows processed in parallel (default: GOMAXPROCS)")

	// HTTP options for remote inputs
	rootCmd.Flags().String("user-agent", tile.DefaultUserAgent, "HTTP User-Agent header for URL inputs")
	rootCmd.Flags().Duration("fetch-timeout", 30*time.Second, "timeout for downloading URL inputs")

	// Bind flags to viper for root command
	viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("cache.disabled", rootCmd.PersistentFlags().Lookup("no-cache"))
	viper.BindPFlag("depth", rootCmd.Flags().Lookup("depth"))
	viper.BindPFlag("tile", rootCmd.Flags().Lookup("tile"))
	viper.BindPFlag("out", rootCmd.Flags().Lookup("out"))
	viper.BindPFlag("depth-scale", rootCmd.Flags().Lookup("depth-scale"))
	viper.BindPFlag("dots", rootCmd.Flags().Lookup("dots"))
	viper.BindPFlag("seed", rootCmd.Flags().Lookup("seed"))
	viper.BindPFlag("tile-width", rootCmd.Flags().Lookup("tile-width"))
	viper.BindPFlag("tile-height", rootCmd.Flags().Lookup("tile-height"))
	viper.BindPFlag("self-divisor", rootCmd.Flags().Lookup("self-divisor"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("user-agent", rootCmd.Flags().Lookup("user-agent"))
	viper.BindPFlag("fetch-timeout", rootCmd.Flags().Lookup("fetch-timeout"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".stereogram" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stereogram")
	}

	// STEREOGRAM_DEPTH_SCALE, STEREOGRAM_SERVER_PORT, ...
	viper.SetEnvPrefix("stereogram")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	depth := viper.GetString("depth")
	if depth == "" && len(args) == 1 {
		depth = args[0]
	}
	if depth == "" {
		if cmd.Flags().NFlag() == 0 {
			return cmd.Help()
		}
		return fmt.Errorf("depth map is required (use --depth)")
	}

	ctx := cmd.Context()
	c, err := openCache(ctx, "")
	if err != nil {
		return err
	}
	runner := stereogram.NewRunner(c, logger)
	defer runner.Close()

	job := batch.Job{
		DepthPath: depth,
		TilePath:  viper.GetString("tile"),
		OutPath:   viper.GetString("out"),
		Options: stereogram.Options{
			DepthScale:  viper.GetInt("depth-scale"),
			Dots:        viper.GetInt("dots"),
			Seed:        viper.GetUint64("seed"),
			TileWidth:   viper.GetInt("tile-width"),
			TileHeight:  viper.GetInt("tile-height"),
			SelfDivisor: viper.GetInt("self-divisor"),
			Workers:     viper.GetInt("workers"),
			Logger:      logger,
		},
	}

	loader := tile.NewLoader(viper.GetString("user-agent"), viper.GetDuration("fetch-timeout"))
	res, err := batch.New(runner, loader, logger).Run(ctx, job)
	if err != nil {
		return err
	}
	if res.Result != nil {
		stats := res.Result.Stats
		logger.Debug("stage timings",
			"tile", stats.TileTime.Round(time.Microsecond),
			"tiling", stats.TilingTime.Round(time.Microsecond),
			"shift", stats.ShiftTime.Round(time.Microsecond))
	}
	return nil
}

// openCache selects the result cache backend. A non-empty redisAddr wins
// over the file cache; --no-cache disables both.
func openCache(ctx context.Context, redisAddr string) (cache.Cache, error) {
	if viper.GetBool("cache.disabled") {
		return cache.NewNullCache(), nil
	}
	if redisAddr != "" {
		c, err := cache.NewRedisCache(ctx, redisAddr, viper.GetString("server.redis-password"), viper.GetInt("server.redis-db"))
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Debug("using redis cache", "addr", redisAddr)
		return c, nil
	}

	dir := viper.GetString("cache.dir")
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			logger.Warn("no user cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		dir = filepath.Join(base, "stereogram")
	}
	c, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", dir, err)
	}
	logger.Debug("using file cache", "dir", dir)
	return c, nil
}
