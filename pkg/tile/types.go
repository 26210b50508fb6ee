package tile

import (
	"fmt"
	"image"
)

// Default tile parameters
const (
	DefaultSize        = 100
	DefaultDotCount    = 1000
	DefaultSelfDivisor = 7
)

// Kind identifies where a tile pattern comes from
type Kind int

// Tile origin kinds
const (
	// Synthesized tiles are produced by the random dot generator
	Synthesized Kind = iota
	// Explicit tiles are supplied by the caller
	Explicit
	// SelfDerived tiles are the depth map itself, downscaled
	SelfDerived
)

// String returns the lowercase name of the kind
func (k Kind) String() string {
	switch k {
	case Synthesized:
		return "random"
	case Explicit:
		return "explicit"
	case SelfDerived:
		return "self"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a mode name into a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "random", "":
		return Synthesized, nil
	case "explicit":
		return Explicit, nil
	case "self":
		return SelfDerived, nil
	}
	return 0, fmt.Errorf("unknown tile mode: %q (must be one of: random, explicit, self)", s)
}

// Source is a tagged choice of tile origin. Only the field matching Kind is
// consulted: Image for Explicit, Divisor for SelfDerived, Width/Height/Dots
// for Synthesized. Zero values fall back to the package defaults.
type Source struct {
	Kind    Kind
	Image   image.Image
	Divisor int
	Width   int
	Height  int
	Dots    int
}

// FromImage returns an Explicit source for img
func FromImage(img image.Image) Source {
	return Source{Kind: Explicit, Image: img}
}

// FromDepth returns a SelfDerived source downscaling by divisor
func FromDepth(divisor int) Source {
	return Source{Kind: SelfDerived, Divisor: divisor}
}

// RandomSource returns a Synthesized source of the given size and dot count
func RandomSource(width, height, dots int) Source {
	return Source{Kind: Synthesized, Width: width, Height: height, Dots: dots}
}

// Dot describes one filled circle of a random dot tile
type Dot struct {
	X, Y    int
	Radius  int
	R, G, B uint8
}

// Bounds returns the bounding box of the dot
func (d Dot) Bounds() image.Rectangle {
	return image.Rect(d.X-d.Radius, d.Y-d.Radius, d.X+d.Radius+1, d.Y+d.Radius+1)
}
