package cmd

import (
	"fmt"
	"image"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/stereogram/internal/stereogram"
	"github.com/kiesman99/stereogram/pkg/tile"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write sample images for experimenting",
}

var sampleDepthCmd = &cobra.Command{
	Use:   "depth",
	Short: "Write a depth map with three raised rectangles",
	Long: `Write a black depth map with three rectangles at depths 10, 30 and 20.

Example:
  stereogram sample depth -o depth.png && stereogram --depth depth.png`,
	Args: cobra.NoArgs,
	RunE: runSampleDepth,
}

var sampleSpacingCmd = &cobra.Command{
	Use:   "spacing",
	Short: "Write a sheet showing how tile spacing maps to depth",
	Long: `Write a sheet where each row repeats one tile with a wider pitch than the
row above. Viewed with diverged eyes the later rows appear further away.

Without --tile, rows of random dot tiles are used.

Example:
  stereogram sample spacing --tile a.png --tile b.png --spacing 10 -o sdepth.png`,
	Args: cobra.NoArgs,
	RunE: runSampleSpacing,
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.AddCommand(sampleDepthCmd, sampleSpacingCmd)

	sampleDepthCmd.Flags().Int("width", 400, "image width in pixels")
	sampleDepthCmd.Flags().Int("height", 400, "image height in pixels")
	sampleDepthCmd.Flags().StringP("out", "o", "depth.png", "output PNG, '-' for stdout")

	defaults := tile.DefaultSpacingOptions()
	sampleSpacingCmd.Flags().StringSlice("tile", nil, "tile image, one row per tile (repeatable)")
	sampleSpacingCmd.Flags().Int("spacing", defaults.Spacing, "extra pitch added per row in pixels")
	sampleSpacingCmd.Flags().Uint64("seed", stereogram.DefaultSeed, "random seed for generated tiles")
	sampleSpacingCmd.Flags().StringP("out", "o", "sdepth.png", "output PNG, '-' for stdout")

	viper.BindPFlag("sample.depth.width", sampleDepthCmd.Flags().Lookup("width"))
	viper.BindPFlag("sample.depth.height", sampleDepthCmd.Flags().Lookup("height"))
	viper.BindPFlag("sample.depth.out", sampleDepthCmd.Flags().Lookup("out"))
	viper.BindPFlag("sample.spacing.tiles", sampleSpacingCmd.Flags().Lookup("tile"))
	viper.BindPFlag("sample.spacing.spacing", sampleSpacingCmd.Flags().Lookup("spacing"))
	viper.BindPFlag("sample.spacing.seed", sampleSpacingCmd.Flags().Lookup("seed"))
	viper.BindPFlag("sample.spacing.out", sampleSpacingCmd.Flags().Lookup("out"))
}

func runSampleDepth(cmd *cobra.Command, args []string) error {
	width := viper.GetInt("sample.depth.width")
	height := viper.GetInt("sample.depth.height")
	if width <= 0 || height <= 0 {
		return fmt.Errorf("width/height must be positive: %d %d", width, height)
	}
	return writeSample(viper.GetString("sample.depth.out"), stereogram.SampleDepthMap(width, height))
}

func runSampleSpacing(cmd *cobra.Command, args []string) error {
	opts := tile.DefaultSpacingOptions()
	opts.Spacing = viper.GetInt("sample.spacing.spacing")

	var tiles []image.Image
	for _, path := range viper.GetStringSlice("sample.spacing.tiles") {
		data, err := os.ReadFile(path)
		if err != nil {
			return &stereogram.DecodeError{Input: stereogram.InputTile, Err: err}
		}
		img, _, err := tile.Decode(data)
		if err != nil {
			return &stereogram.DecodeError{Input: stereogram.InputTile, Err: fmt.Errorf("%s: %w", path, err)}
		}
		tiles = append(tiles, img)
	}

	if len(tiles) == 0 {
		seed := viper.GetUint64("sample.spacing.seed")
		rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
		rows := opts.Height / opts.RowHeight
		for range rows {
			img, _, err := tile.RandomDots(opts.RowHeight-opts.Margin, opts.RowHeight-opts.Margin, 150, rng)
			if err != nil {
				return err
			}
			tiles = append(tiles, img)
		}
	}

	sheet, err := tile.SpacingSheet(tiles, opts)
	if err != nil {
		return err
	}
	return writeSample(viper.GetString("sample.spacing.out"), sheet)
}

func writeSample(out string, img image.Image) error {
	data, err := tile.PNGBytes(img)
	if err != nil {
		return &stereogram.EncodeError{Err: err}
	}
	if err := tile.WritePNG(out, data); err != nil {
		return &stereogram.EncodeError{Err: err}
	}
	if out != "-" {
		logger.Info("wrote sample", "path", out)
	}
	return nil
}
