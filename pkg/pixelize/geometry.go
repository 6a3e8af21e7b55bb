package pixelize

import (
	"fmt"
	"math"
)

// GridDimensions is the resolution of the pixel grid for one frame.
type GridDimensions struct {
	Width  int
	Height int
}

func (d GridDimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Resolve derives the grid from the configured pixel height and the
// camera aspect ratio. Width truncates toward zero, so the grid is never
// wider than the ideal, and is clamped to at least one column.
func Resolve(pixelHeight int, aspectRatio float64) (GridDimensions, error) {
	if pixelHeight <= 0 {
		return GridDimensions{}, &ConfigurationError{Field: "pixel_height", Value: pixelHeight, Reason: "must be positive"}
	}
	if math.IsNaN(aspectRatio) || math.IsInf(aspectRatio, 0) || aspectRatio <= 0 {
		return GridDimensions{}, &ConfigurationError{Field: "aspect_ratio", Value: aspectRatio, Reason: "must be positive and finite"}
	}

	width := int(float64(pixelHeight) * aspectRatio)
	if width < 1 {
		width = 1
	}
	return GridDimensions{Width: width, Height: pixelHeight}, nil
}

// Vec2 matches a GLSL vec2 uniform.
type Vec2 struct {
	X, Y float32
}

// ShaderParams are the uniforms of the quantize pass.
type ShaderParams struct {
	BlockCount    Vec2
	BlockSize     Vec2
	HalfBlockSize Vec2
}

// ShaderParams derives the quantize uniforms for the grid.
func (d GridDimensions) ShaderParams() ShaderParams {
	size := Vec2{X: 1 / float32(d.Width), Y: 1 / float32(d.Height)}
	return ShaderParams{
		BlockCount:    Vec2{X: float32(d.Width), Y: float32(d.Height)},
		BlockSize:     size,
		HalfBlockSize: Vec2{X: size.X / 2, Y: size.Y / 2},
	}
}

// BlockCenter maps a normalized coordinate to the center of the block
// containing it, the same arithmetic the quantize shader performs.
func (p ShaderParams) BlockCenter(u, v float32) (float32, float32) {
	bx := float32(math.Floor(float64(u * p.BlockCount.X)))
	by := float32(math.Floor(float64(v * p.BlockCount.Y)))
	return bx*p.BlockSize.X + p.HalfBlockSize.X, by*p.BlockSize.Y + p.HalfBlockSize.Y
}
