package glhost

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"pixelize/pkg/pixelize"
)

// texFormat is the TexImage2D triple for a target format.
type texFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

func textureFormat(f pixelize.Format) (texFormat, error) {
	switch f {
	case pixelize.FormatRGBA8:
		return texFormat{internal: gl.RGBA8, format: gl.RGBA, xtype: gl.UNSIGNED_BYTE}, nil
	case pixelize.FormatRGBA16F:
		return texFormat{internal: gl.RGBA16F, format: gl.RGBA, xtype: gl.HALF_FLOAT}, nil
	}
	return texFormat{}, fmt.Errorf("glhost: unsupported format %s", f)
}

func textureFilter(m pixelize.FilterMode) int32 {
	if m == pixelize.FilterBilinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// glError maps a GL error code to an error. Out-of-memory wraps
// pixelize.ErrOutOfMemory.
func glError(code uint32) error {
	switch code {
	case gl.NO_ERROR:
		return nil
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("glhost: GL_OUT_OF_MEMORY: %w", pixelize.ErrOutOfMemory)
	case gl.INVALID_VALUE:
		return fmt.Errorf("glhost: GL_INVALID_VALUE")
	case gl.INVALID_ENUM:
		return fmt.Errorf("glhost: GL_INVALID_ENUM")
	case gl.INVALID_OPERATION:
		return fmt.Errorf("glhost: GL_INVALID_OPERATION")
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return fmt.Errorf("glhost: GL_INVALID_FRAMEBUFFER_OPERATION")
	}
	return fmt.Errorf("glhost: GL error 0x%04x", code)
}

// drainErrors clears the GL error queue and returns the first error.
func drainErrors() error {
	var first error
	for i := 0; i < 16; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		if first == nil {
			first = glError(code)
		}
	}
	return first
}
