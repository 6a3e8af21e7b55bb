// Package glhost runs the pixelize effect on OpenGL 4.1. Every target is a
// texture attached to its own framebuffer object; blits draw a full-screen
// quad into the destination framebuffer. All methods must be called on the
// thread that owns the GL context.
package glhost

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"pixelize/internal/logger"
	"pixelize/pkg/pixelize"
)

type target struct {
	desc      pixelize.TargetDesc
	texture   uint32
	fbo       uint32
	transient bool
}

// Device holds GL render targets and the two pixelize programs. It
// implements pixelize.Allocator, pixelize.CommandRecorder and
// pixelize.Profiler.
type Device struct {
	targets  map[pixelize.TargetID]*target
	quantize *program
	copy     *program
	quadVAO  uint32
	quadVBO  uint32
	scopes   []string
	log      *logger.Logger
}

// New compiles the programs and builds the quad. gl.Init must have been
// called with a current context.
func New(log *logger.Logger) (*Device, error) {
	d := &Device{
		targets: make(map[pixelize.TargetID]*target),
		log:     log,
	}

	var err error
	if d.quantize, err = newProgram(quadVertexShaderSource, quantizeFragmentShaderSource); err != nil {
		return nil, fmt.Errorf("glhost: quantize program: %w", err)
	}
	if d.copy, err = newProgram(quadVertexShaderSource, copyFragmentShaderSource); err != nil {
		d.quantize.delete()
		return nil, fmt.Errorf("glhost: copy program: %w", err)
	}
	d.setupQuad()

	return d, nil
}

// setupQuad creates the full-screen quad
func (d *Device) setupQuad() {
	vertices := []float32{
		// Positions  // Texture coords
		-1.0, -1.0, 0.0, 0.0,
		1.0, -1.0, 1.0, 0.0,
		1.0, 1.0, 1.0, 1.0,
		-1.0, 1.0, 0.0, 1.0,
	}

	gl.GenVertexArrays(1, &d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(2*4))
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
}

// CreateTarget makes a persistent target, typically the scene color
// buffer a camera renders into. Recreate it with the same id after
// DeleteTarget when the window is resized.
func (d *Device) CreateTarget(id pixelize.TargetID, desc pixelize.TargetDesc) error {
	return d.create(id, desc, false)
}

// DeleteTarget removes a persistent target.
func (d *Device) DeleteTarget(id pixelize.TargetID) error {
	t, ok := d.targets[id]
	if !ok || t.transient {
		return fmt.Errorf("glhost: delete %s: %w", id, pixelize.ErrUnknownTarget)
	}
	d.destroy(id, t)
	return nil
}

// Allocate implements pixelize.Allocator.
func (d *Device) Allocate(id pixelize.TargetID, desc pixelize.TargetDesc) error {
	return d.create(id, desc, true)
}

// Free implements pixelize.Allocator.
func (d *Device) Free(id pixelize.TargetID) error {
	t, ok := d.targets[id]
	if !ok || !t.transient {
		return fmt.Errorf("glhost: free %s: %w", id, pixelize.ErrUnknownTarget)
	}
	d.destroy(id, t)
	return nil
}

func (d *Device) create(id pixelize.TargetID, desc pixelize.TargetDesc, transient bool) error {
	if _, ok := d.targets[id]; ok {
		return fmt.Errorf("glhost: target %s already exists", id)
	}
	tf, err := textureFormat(desc.Format)
	if err != nil {
		return err
	}
	_ = drainErrors()

	t := &target{desc: desc, transient: transient}

	gl.GenTextures(1, &t.texture)
	gl.BindTexture(gl.TEXTURE_2D, t.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, tf.internal, int32(desc.Width), int32(desc.Height), 0, tf.format, tf.xtype, nil)
	filter := textureFilter(desc.Filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := drainErrors(); err != nil {
		gl.DeleteTextures(1, &t.texture)
		return fmt.Errorf("glhost: allocate %s (%s): %w", id, desc, err)
	}

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.texture, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &t.fbo)
		gl.DeleteTextures(1, &t.texture)
		return fmt.Errorf("glhost: framebuffer for %s not complete: 0x%04x", id, status)
	}

	d.targets[id] = t
	d.log.Debugf("created %s (%s) texture=%d fbo=%d", id, desc, t.texture, t.fbo)
	return nil
}

func (d *Device) destroy(id pixelize.TargetID, t *target) {
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.texture)
	delete(d.targets, id)
	d.log.Debugf("deleted %s", id)
}

// Camera describes a target as a camera for the effect.
func (d *Device) Camera(name string, id pixelize.TargetID) (pixelize.Camera, error) {
	t, ok := d.targets[id]
	if !ok {
		return pixelize.Camera{}, fmt.Errorf("glhost: camera %q: %w: %s", name, pixelize.ErrUnknownTarget, id)
	}
	return pixelize.Camera{Name: name, ColorTarget: id, Descriptor: t.desc}, nil
}

// Upload replaces the contents of an RGBA8 target with img, which must
// match its size. Row 0 of img lands at texture row 0.
func (d *Device) Upload(id pixelize.TargetID, img *image.RGBA) error {
	t, ok := d.targets[id]
	if !ok {
		return fmt.Errorf("glhost: upload: %w: %s", pixelize.ErrUnknownTarget, id)
	}
	b := img.Bounds()
	if b.Dx() != t.desc.Width || b.Dy() != t.desc.Height {
		return fmt.Errorf("glhost: upload %s: image is %dx%d, target is %s", id, b.Dx(), b.Dy(), t.desc)
	}
	if img.Stride != 4*b.Dx() {
		img = tight(img)
	}

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.BindTexture(gl.TEXTURE_2D, t.texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(b.Dx()), int32(b.Dy()), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return drainErrors()
}

// Read copies a target back into an RGBA image, the inverse of Upload.
func (d *Device) Read(id pixelize.TargetID) (*image.RGBA, error) {
	t, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("glhost: read: %w: %s", pixelize.ErrUnknownTarget, id)
	}
	img := image.NewRGBA(image.Rect(0, 0, t.desc.Width, t.desc.Height))

	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.fbo)
	gl.ReadPixels(0, 0, int32(t.desc.Width), int32(t.desc.Height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return img, drainErrors()
}

func tight(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

// Blit implements pixelize.CommandRecorder. The draw is issued to the GL
// command stream immediately.
func (d *Device) Blit(src, dst pixelize.TargetID, pass *pixelize.ShaderPass) error {
	s, ok := d.targets[src]
	if !ok {
		return fmt.Errorf("glhost: blit: %w: %s", pixelize.ErrUnknownTarget, src)
	}
	t, ok := d.targets[dst]
	if !ok {
		return fmt.Errorf("glhost: blit: %w: %s", pixelize.ErrUnknownTarget, dst)
	}
	if src == dst {
		return fmt.Errorf("glhost: blit: %s reads and writes the same target", src)
	}

	prog := d.copy
	if pass != nil && pass.Pass == pixelize.PassQuantize {
		prog = d.quantize
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.desc.Width), int32(t.desc.Height))
	d.draw(prog, s.texture, pass, false)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	d.log.Debugf("[%s] blit %s -> %s", strings.Join(d.scopes, "/"), src, dst)
	return drainErrors()
}

// Present copies a target to the default framebuffer of the given size,
// flipped so that images uploaded with Upload appear upright.
func (d *Device) Present(id pixelize.TargetID, width, height int) error {
	t, ok := d.targets[id]
	if !ok {
		return fmt.Errorf("glhost: present: %w: %s", pixelize.ErrUnknownTarget, id)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(width), int32(height))
	d.draw(d.copy, t.texture, nil, true)
	return drainErrors()
}

func (d *Device) draw(prog *program, texture uint32, pass *pixelize.ShaderPass, flip bool) {
	gl.UseProgram(prog.id)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.Uniform1i(prog.mainTexture, 0)

	flipY := float32(0)
	if flip {
		flipY = 1
	}
	gl.Uniform1f(prog.flipY, flipY)

	if pass != nil {
		p := pass.Params
		gl.Uniform2f(prog.blockCount, p.BlockCount.X, p.BlockCount.Y)
		gl.Uniform2f(prog.blockSize, p.BlockSize.X, p.BlockSize.Y)
		gl.Uniform2f(prog.halfBlockSize, p.HalfBlockSize.X, p.HalfBlockSize.Y)
	}

	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// BeginScope implements pixelize.Profiler. GL 4.1 has no debug groups, so
// scopes only label debug logs.
func (d *Device) BeginScope(name string) { d.scopes = append(d.scopes, name) }

// EndScope implements pixelize.Profiler.
func (d *Device) EndScope() {
	if n := len(d.scopes); n > 0 {
		d.scopes = d.scopes[:n-1]
	}
}

// Transient lists the transient targets currently allocated.
func (d *Device) Transient() []pixelize.TargetID {
	var ids []pixelize.TargetID
	for id, t := range d.targets {
		if t.transient {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close releases every GL object the device owns.
func (d *Device) Close() {
	for id, t := range d.targets {
		d.destroy(id, t)
	}
	gl.DeleteVertexArrays(1, &d.quadVAO)
	gl.DeleteBuffers(1, &d.quadVBO)
	d.quantize.delete()
	d.copy.delete()
}

var (
	_ pixelize.Allocator       = (*Device)(nil)
	_ pixelize.CommandRecorder = (*Device)(nil)
	_ pixelize.Profiler        = (*Device)(nil)
)
