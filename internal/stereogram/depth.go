package stereogram

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"

	"github.com/kiesman99/stereogram/pkg/tile"
)

// Luma reduces img to a zero-origin single-channel depth map. Grayscale input
// is used as-is (copied only when its origin is not zero); anything else is
// converted with the BT.601 weights of color.GrayModel after dropping alpha.
// The boolean reports whether a channel conversion took place.
func Luma(img image.Image) (*image.Gray, bool) {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		if b.Min == (image.Point{}) {
			return g, false
		}
		dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(dst, dst.Bounds(), g, b.Min, xdraw.Src)
		return dst, false
	}

	src := tile.Opaque(img)
	dst := image.NewGray(src.Bounds())
	xdraw.Draw(dst, dst.Bounds(), src, image.Point{}, xdraw.Src)
	return dst, true
}

// SelfTile derives a tile from the depth image as it was decoded, before any
// luma reduction, by shrinking each dimension by divisor (floored, never
// below one pixel). A color depth image yields a color tile.
func SelfTile(depth image.Image, divisor int) *image.RGBA {
	if divisor < 1 {
		divisor = tile.DefaultSelfDivisor
	}
	src := tile.Opaque(depth)
	w := max(1, src.Rect.Dx()/divisor)
	h := max(1, src.Rect.Dy()/divisor)
	small := resize.Resize(uint(w), uint(h), src, resize.Bicubic)
	return tile.Opaque(small)
}

// SampleDepthMap returns a black depth map with three raised rectangles in
// the band x in [w/2, 3w/4): depth 10 at the top, 30 in the middle and 20 at
// the bottom. At 400x400 the rectangles sit at y 25-125, 150-250 and 275-375.
func SampleDepthMap(width, height int) *image.Gray {
	dmap := image.NewGray(image.Rect(0, 0, width, height))
	x0, x1 := width/2, width*3/4
	bands := []struct {
		y0, y1 int
		depth  uint8
	}{
		{height / 16, height * 5 / 16, 10},
		{height * 6 / 16, height * 10 / 16, 30},
		{height * 11 / 16, height * 15 / 16, 20},
	}
	for _, band := range bands {
		r := image.Rect(x0, band.y0, x1, band.y1)
		xdraw.Draw(dmap, r, image.NewUniform(color.Gray{Y: band.depth}), image.Point{}, xdraw.Src)
	}
	return dmap
}
