package stereogram

import (
	"fmt"
	"image"
	"runtime"
	"sync"
)

// DefaultDepthScale maps 8-bit depth to a shift of 0..25 pixels
const DefaultDepthScale = 10

// Resampler shifts the pixels of a tiled image according to a depth map.
//
// Each row is one left-to-right pass over a single buffer that is both read
// and written: a pixel copied into column i is what a later column reads
// when it samples i. That read-after-write propagation is what repeats the
// disparity across the row, so a row must never be split or vectorized.
// Rows are independent and are spread over Workers goroutines.
type Resampler struct {
	DepthScale int
	Workers    int
}

// Shift resamples buf in place using period as the base offset. Column i
// of a row takes the value at xpos = i - period + depth/DepthScale when
// 0 < xpos < width and is left alone otherwise. The strict lower bound
// excludes column 0 as a source; it is kept exactly as the classic
// algorithm defines it. Since xpos <= 0 for i < period at low depth, the
// first period columns keep their tiled value and serve as the reference
// strip.
func (r Resampler) Shift(buf *image.RGBA, depth *image.Gray, period int) error {
	scale := r.DepthScale
	if scale == 0 {
		scale = DefaultDepthScale
	}
	if scale < 0 {
		return fmt.Errorf("depth scale must be positive, got %d", scale)
	}
	if period < 1 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	bw, bh := buf.Rect.Dx(), buf.Rect.Dy()
	dw, dh := depth.Rect.Dx(), depth.Rect.Dy()
	if bw != dw || bh != dh {
		return &DimensionError{BufferWidth: bw, BufferHeight: bh, DepthWidth: dw, DepthHeight: dh}
	}
	if bh == 0 {
		return nil
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var wg sync.WaitGroup
	for _, rows := range splitRows(bh, workers) {
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				shiftRow(buf, depth, y, period, scale)
			}
		}(rows[0], rows[1])
	}
	wg.Wait()
	return nil
}

// shiftRow runs the sequential pass over row y
func shiftRow(buf *image.RGBA, depth *image.Gray, y, period, scale int) {
	w := buf.Rect.Dx()
	po := buf.PixOffset(buf.Rect.Min.X, buf.Rect.Min.Y+y)
	px := buf.Pix[po : po+w*4]
	do := depth.PixOffset(depth.Rect.Min.X, depth.Rect.Min.Y+y)
	d := depth.Pix[do : do+w]

	for i := 0; i < w; i++ {
		xshift := int(d[i]) / scale
		xpos := i - period + xshift
		if 0 < xpos && xpos < w {
			copy(px[i*4:i*4+4], px[xpos*4:xpos*4+4])
		}
	}
}

// splitRows divides h rows into at most workers contiguous ranges
func splitRows(h, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > h {
		workers = h
	}
	rows := make([][2]int, 0, workers)
	step := h / workers
	start := 0
	for i := 0; i < workers; i++ {
		end := start + step
		if i == workers-1 {
			end = h
		}
		rows = append(rows, [2]int{start, end})
		start = end
	}
	return rows
}
