package glhost

import (
	"errors"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelize/pkg/pixelize"
)

func TestTextureFormat(t *testing.T) {
	f, err := textureFormat(pixelize.FormatRGBA8)
	require.NoError(t, err)
	assert.Equal(t, texFormat{internal: gl.RGBA8, format: gl.RGBA, xtype: gl.UNSIGNED_BYTE}, f)

	f, err = textureFormat(pixelize.FormatRGBA16F)
	require.NoError(t, err)
	assert.Equal(t, int32(gl.RGBA16F), f.internal)
	assert.Equal(t, uint32(gl.HALF_FLOAT), f.xtype)

	_, err = textureFormat(pixelize.Format(9))
	assert.Error(t, err)
}

func TestTextureFilter(t *testing.T) {
	assert.Equal(t, int32(gl.NEAREST), textureFilter(pixelize.FilterPoint))
	assert.Equal(t, int32(gl.LINEAR), textureFilter(pixelize.FilterBilinear))
}

func TestGLError(t *testing.T) {
	assert.NoError(t, glError(gl.NO_ERROR))
	assert.True(t, errors.Is(glError(gl.OUT_OF_MEMORY), pixelize.ErrOutOfMemory))
	assert.False(t, errors.Is(glError(gl.INVALID_VALUE), pixelize.ErrOutOfMemory))
	assert.EqualError(t, glError(0x1234), "glhost: GL error 0x1234")
}
