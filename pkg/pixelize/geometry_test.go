package pixelize

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		pixelHeight int
		aspect      float64
		want        GridDimensions
	}{
		{"16:9", 64, 16.0 / 9.0, GridDimensions{Width: 113, Height: 64}},
		{"3:2", 120, 1.5, GridDimensions{Width: 180, Height: 120}},
		{"square", 32, 1, GridDimensions{Width: 32, Height: 32}},
		{"portrait", 100, 9.0 / 16.0, GridDimensions{Width: 56, Height: 100}},
		{"truncates", 10, 1.99, GridDimensions{Width: 19, Height: 10}},
		{"clamps to one column", 1, 0.01, GridDimensions{Width: 1, Height: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.pixelHeight, tt.aspect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name        string
		pixelHeight int
		aspect      float64
		field       string
	}{
		{"zero height", 0, 1.5, "pixel_height"},
		{"negative height", -4, 1.5, "pixel_height"},
		{"zero aspect", 64, 0, "aspect_ratio"},
		{"negative aspect", 64, -1, "aspect_ratio"},
		{"nan aspect", 64, math.NaN(), "aspect_ratio"},
		{"inf aspect", 64, math.Inf(1), "aspect_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.pixelHeight, tt.aspect)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestResolveProperties(t *testing.T) {
	aspects := []float64{0.001, 0.1, 0.5, 9.0 / 16.0, 1, 4.0 / 3.0, 16.0 / 10.0, 16.0 / 9.0, 21.0 / 9.0, 32.0 / 9.0, 100}
	for h := 1; h <= 512; h += 7 {
		for _, a := range aspects {
			dims, err := Resolve(h, a)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, dims.Width, 1)
			assert.Equal(t, h, dims.Height)
			assert.LessOrEqual(t, float64(dims.Width), math.Max(1, float64(h)*a))

			p := dims.ShaderParams()
			assert.Equal(t, float32(1)/float32(dims.Width), p.BlockSize.X)
			assert.Equal(t, float32(1)/float32(dims.Height), p.BlockSize.Y)
			assert.Equal(t, p.BlockSize.X/2, p.HalfBlockSize.X)
			assert.Equal(t, p.BlockSize.Y/2, p.HalfBlockSize.Y)
			assert.Equal(t, float32(dims.Width), p.BlockCount.X)
			assert.Equal(t, float32(dims.Height), p.BlockCount.Y)
		}
	}
}

func TestShaderParamsScenario(t *testing.T) {
	dims, err := Resolve(64, 16.0/9.0)
	require.NoError(t, err)

	p := dims.ShaderParams()

	assert.Equal(t, Vec2{X: 113, Y: 64}, p.BlockCount)
	assert.Equal(t, Vec2{X: 1.0 / 113, Y: 1.0 / 64}, p.BlockSize)
	assert.Equal(t, Vec2{X: 0.5 / 113, Y: 0.5 / 64}, p.HalfBlockSize)
}

func TestBlockCenter(t *testing.T) {
	p := GridDimensions{Width: 4, Height: 2}.ShaderParams()

	tests := []struct {
		u, v   float32
		cu, cv float32
	}{
		{0, 0, 0.125, 0.25},
		{0.24, 0.49, 0.125, 0.25},
		{0.25, 0.5, 0.375, 0.75},
		{0.99, 0.99, 0.875, 0.75},
	}
	for _, tt := range tests {
		cu, cv := p.BlockCenter(tt.u, tt.v)
		assert.InDelta(t, tt.cu, cu, 1e-6, "u=%v", tt.u)
		assert.InDelta(t, tt.cv, cv, 1e-6, "v=%v", tt.v)
	}
}
