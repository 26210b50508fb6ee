package stereogram

import "fmt"

// Input names an image consumed by the pipeline
type Input string

// Pipeline inputs
const (
	InputDepth Input = "depth map"
	InputTile  Input = "tile"
)

// DecodeError reports an input that could not be read or decoded
type DecodeError struct {
	Input Input
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a result that could not be encoded or written
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode output image: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DimensionError reports a buffer whose size does not match the depth map
type DimensionError struct {
	BufferWidth, BufferHeight int
	DepthWidth, DepthHeight   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("image is %dx%d but depth map is %dx%d",
		e.BufferWidth, e.BufferHeight, e.DepthWidth, e.DepthHeight)
}
