package pixelize

import "fmt"

// TargetID names a render target known to the host.
type TargetID string

// Format is the pixel storage of a render target.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA16F:
		return "rgba16f"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// BytesPerPixel is the storage cost of one texel.
func (f Format) BytesPerPixel() int {
	if f == FormatRGBA16F {
		return 8
	}
	return 4
}

// FilterMode is how a target is sampled when read at a different size.
type FilterMode int

const (
	FilterPoint FilterMode = iota
	FilterBilinear
)

func (m FilterMode) String() string {
	switch m {
	case FilterPoint:
		return "point"
	case FilterBilinear:
		return "bilinear"
	}
	return fmt.Sprintf("FilterMode(%d)", int(m))
}

// TargetDesc describes the storage of a render target.
type TargetDesc struct {
	Width  int
	Height int
	Format Format
	Filter FilterMode
}

func (d TargetDesc) String() string {
	return fmt.Sprintf("%dx%d %s %s", d.Width, d.Height, d.Format, d.Filter)
}

// Bytes is the backing store size of a target with this descriptor.
func (d TargetDesc) Bytes() int {
	return d.Width * d.Height * d.Format.BytesPerPixel()
}

// TransientTarget is a target owned by a stage for one frame.
type TransientTarget struct {
	ID   TargetID
	Desc TargetDesc
}

// Camera is what the host hands a stage each frame: the scene color target
// and its descriptor.
type Camera struct {
	Name        string
	ColorTarget TargetID
	Descriptor  TargetDesc
	// Aspect overrides Descriptor.Width/Descriptor.Height when non-zero,
	// e.g. for anamorphic output or a viewport inside the target.
	Aspect float64
}

// AspectRatio returns width over height of the camera.
func (c Camera) AspectRatio() float64 {
	if c.Aspect != 0 {
		return c.Aspect
	}
	if c.Descriptor.Height == 0 {
		return 0
	}
	return float64(c.Descriptor.Width) / float64(c.Descriptor.Height)
}

// Pass indexes a sub-program of the pixelize shader.
type Pass int

const (
	// PassQuantize samples the source at block centers.
	PassQuantize Pass = 0
	// PassCopy is a plain format-preserving copy.
	PassCopy Pass = 1
)

// ShaderPass carries the program and its uniforms for one blit.
type ShaderPass struct {
	Pass   Pass
	Params ShaderParams
}

// Allocator is the host side of transient target allocation.
type Allocator interface {
	Allocate(id TargetID, desc TargetDesc) error
	Free(id TargetID) error
}

// CommandRecorder records blits. A nil pass means a plain copy.
type CommandRecorder interface {
	Blit(src, dst TargetID, pass *ShaderPass) error
}

// Submitter is implemented by recorders that buffer commands until asked
// to execute them.
type Submitter interface {
	Submit() error
}

// Discarder is implemented by buffering recorders that can drop commands
// recorded since the last Submit. A stage discards when its blit chain
// fails partway so the next frame does not replay the partial chain.
type Discarder interface {
	Discard()
}

// Profiler is implemented by recorders that can group commands under a
// named scope for frame debuggers.
type Profiler interface {
	BeginScope(name string)
	EndScope()
}
