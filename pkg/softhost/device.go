// Package softhost is a CPU render host for the pixelize effect. Targets are
// in-memory images; blits are recorded into a command buffer and realized
// on Submit.
package softhost

import (
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"pixelize/internal/logger"
	"pixelize/pkg/pixelize"
)

type texture struct {
	desc      pixelize.TargetDesc
	img       drawImage
	transient bool
}

type command struct {
	src, dst pixelize.TargetID
	pass     *pixelize.ShaderPass
	scope    string
}

// Stats counts the work a device has realized.
type Stats struct {
	Allocations int
	Frees       int
	Blits       int
	Submits     int
}

// Device holds render targets and a pending command buffer. It implements
// pixelize.Allocator, pixelize.CommandRecorder, pixelize.Submitter,
// pixelize.Discarder and pixelize.Profiler.
type Device struct {
	mu       sync.Mutex
	textures map[pixelize.TargetID]*texture
	budget   int
	used     int
	commands []command
	scopes   []string
	stats    Stats
	log      *logger.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithBudget limits the bytes available to transient targets. Allocations
// beyond it fail with pixelize.ErrOutOfMemory. Zero means unlimited.
func WithBudget(bytes int) Option {
	return func(d *Device) { d.budget = bytes }
}

// WithLogger sets the device's logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Device) { d.log = l }
}

// New creates an empty device.
func New(opts ...Option) *Device {
	d := &Device{textures: make(map[pixelize.TargetID]*texture)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Import registers img as a persistent target, typically a camera's color
// buffer. The device reads and writes img in place.
func (d *Device) Import(id pixelize.TargetID, img *image.RGBA, filter pixelize.FilterMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[id]; ok {
		return fmt.Errorf("softhost: target %s already exists", id)
	}
	b := img.Bounds()
	d.textures[id] = &texture{
		desc: pixelize.TargetDesc{Width: b.Dx(), Height: b.Dy(), Format: pixelize.FormatRGBA8, Filter: filter},
		img:  img,
	}
	return nil
}

// Camera describes an imported target as a camera for the effect.
func (d *Device) Camera(name string, id pixelize.TargetID) (pixelize.Camera, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return pixelize.Camera{}, fmt.Errorf("softhost: camera %q: %w: %s", name, pixelize.ErrUnknownTarget, id)
	}
	return pixelize.Camera{Name: name, ColorTarget: id, Descriptor: tex.desc}, nil
}

// Image returns the pixels of a target. Transient targets are only valid
// until freed.
func (d *Device) Image(id pixelize.TargetID) (image.Image, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return nil, false
	}
	return tex.img, true
}

// Allocate implements pixelize.Allocator.
func (d *Device) Allocate(id pixelize.TargetID, desc pixelize.TargetDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[id]; ok {
		return fmt.Errorf("softhost: target %s already exists", id)
	}
	size := desc.Bytes()
	if d.budget > 0 && d.used+size > d.budget {
		return fmt.Errorf("softhost: %d of %d bytes in use, %s needs %d: %w",
			d.used, d.budget, id, size, pixelize.ErrOutOfMemory)
	}

	d.textures[id] = &texture{desc: desc, img: newImage(desc), transient: true}
	d.used += size
	d.stats.Allocations++
	return nil
}

// Free implements pixelize.Allocator. Commands that read or write id must
// be submitted first.
func (d *Device) Free(id pixelize.TargetID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok || !tex.transient {
		return fmt.Errorf("softhost: free %s: %w", id, pixelize.ErrUnknownTarget)
	}
	delete(d.textures, id)
	d.used -= tex.desc.Bytes()
	d.stats.Frees++
	return nil
}

// Blit implements pixelize.CommandRecorder. Both targets must exist when
// the command is recorded.
func (d *Device) Blit(src, dst pixelize.TargetID, pass *pixelize.ShaderPass) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range []pixelize.TargetID{src, dst} {
		if _, ok := d.textures[id]; !ok {
			return fmt.Errorf("softhost: blit: %w: %s", pixelize.ErrUnknownTarget, id)
		}
	}
	if src == dst {
		return fmt.Errorf("softhost: blit: %s reads and writes the same target", src)
	}

	cmd := command{src: src, dst: dst, scope: strings.Join(d.scopes, "/")}
	if pass != nil {
		p := *pass
		cmd.pass = &p
	}
	d.commands = append(d.commands, cmd)
	return nil
}

// BeginScope implements pixelize.Profiler.
func (d *Device) BeginScope(name string) {
	d.mu.Lock()
	d.scopes = append(d.scopes, name)
	d.mu.Unlock()
}

// EndScope implements pixelize.Profiler.
func (d *Device) EndScope() {
	d.mu.Lock()
	if n := len(d.scopes); n > 0 {
		d.scopes = d.scopes[:n-1]
	}
	d.mu.Unlock()
}

// Pending returns the number of recorded, unsubmitted commands.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.commands)
}

// Submit realizes the pending commands in order. On error the remaining
// commands are dropped.
func (d *Device) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmds := d.commands
	d.commands = nil
	d.stats.Submits++

	for i, cmd := range cmds {
		src, ok := d.textures[cmd.src]
		if !ok {
			return fmt.Errorf("softhost: command %d: %w: %s", i, pixelize.ErrUnknownTarget, cmd.src)
		}
		dst, ok := d.textures[cmd.dst]
		if !ok {
			return fmt.Errorf("softhost: command %d: %w: %s", i, pixelize.ErrUnknownTarget, cmd.dst)
		}

		if cmd.pass != nil && cmd.pass.Pass == pixelize.PassQuantize {
			quantize(dst.img, src.img, cmd.pass.Params, src.desc.Filter)
		} else {
			copyScaled(dst.img, src.img, src.desc.Filter)
		}
		d.stats.Blits++
		d.log.Debugf("[%s] blit %s -> %s (%s)", cmd.scope, cmd.src, cmd.dst, passName(cmd.pass))
	}
	return nil
}

// Discard implements pixelize.Discarder. Pending commands are dropped
// without being realized.
func (d *Device) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.commands) > 0 {
		d.log.Debugf("discarding %d pending commands", len(d.commands))
	}
	d.commands = nil
}

func passName(p *pixelize.ShaderPass) string {
	if p == nil || p.Pass == pixelize.PassCopy {
		return "copy"
	}
	return "quantize"
}

// Stats returns the device's counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Transient lists the transient targets currently allocated.
func (d *Device) Transient() []pixelize.TargetID {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []pixelize.TargetID
	for id, tex := range d.textures {
		if tex.transient {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BytesInUse is the storage held by transient targets.
func (d *Device) BytesInUse() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

var (
	_ pixelize.Allocator       = (*Device)(nil)
	_ pixelize.CommandRecorder = (*Device)(nil)
	_ pixelize.Submitter       = (*Device)(nil)
	_ pixelize.Discarder       = (*Device)(nil)
	_ pixelize.Profiler        = (*Device)(nil)
)
