// Package pipeline is a minimal per-camera render graph. Scene draws and
// effect passes are registered at injection points and run in injection
// point order, insertion order breaking ties.
package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"pixelize/internal/logger"
	"pixelize/pkg/pixelize"
)

// Pass is an effect that brackets its work with Setup and Cleanup.
// *pixelize.Stage implements it.
type Pass interface {
	Name() string
	InjectionPoint() pixelize.InjectionPoint
	Setup(cam pixelize.Camera) error
	Execute() error
	Cleanup()
}

// DrawFunc renders scene content into the camera's color target.
type DrawFunc func(cam pixelize.Camera) error

type entry struct {
	name  string
	point pixelize.InjectionPoint
	pass  Pass
	draw  DrawFunc
}

// Pipeline runs its entries once per camera per frame. It is not safe for
// concurrent use.
type Pipeline struct {
	entries []entry
	log     *logger.Logger
	frames  uint64
}

// New creates an empty pipeline.
func New(log *logger.Logger) *Pipeline {
	return &Pipeline{log: log}
}

// AddPass registers p at its injection point.
func (p *Pipeline) AddPass(pass Pass) error {
	if pass == nil {
		return errors.New("pipeline: nil pass")
	}
	point := pass.InjectionPoint()
	if !point.Valid() {
		return fmt.Errorf("pipeline: pass %s: invalid injection point %d", pass.Name(), int(point))
	}
	p.insert(entry{name: pass.Name(), point: point, pass: pass})
	return nil
}

// AddDraw registers fn at point.
func (p *Pipeline) AddDraw(name string, point pixelize.InjectionPoint, fn DrawFunc) error {
	if fn == nil {
		return fmt.Errorf("pipeline: draw %s: nil func", name)
	}
	if !point.Valid() {
		return fmt.Errorf("pipeline: draw %s: invalid injection point %d", name, int(point))
	}
	p.insert(entry{name: name, point: point, draw: fn})
	return nil
}

func (p *Pipeline) insert(e entry) {
	p.entries = append(p.entries, e)
	sort.SliceStable(p.entries, func(i, j int) bool {
		return p.entries[i].point < p.entries[j].point
	})
}

// Remove drops every entry named name and reports whether any was found.
func (p *Pipeline) Remove(name string) bool {
	kept := p.entries[:0]
	for _, e := range p.entries {
		if e.name != name {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(p.entries)
	p.entries = kept
	return removed
}

// Names lists the entries in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.name
	}
	return names
}

// Frames is the number of cameras rendered so far.
func (p *Pipeline) Frames() uint64 { return p.frames }

// RenderCamera runs every entry for cam. A failing draw aborts the camera.
// A failing pass is logged and skipped; its Cleanup still runs and the
// remaining entries execute. The pass errors are returned joined.
func (p *Pipeline) RenderCamera(cam pixelize.Camera) error {
	p.frames++

	var passErrs []error
	for _, e := range p.entries {
		if e.draw != nil {
			if err := e.draw(cam); err != nil {
				return fmt.Errorf("pipeline: draw %s: %w", e.name, err)
			}
			continue
		}
		if err := runPass(e.pass, cam); err != nil {
			p.log.Debugf("pass %s on camera %q: %v", e.name, cam.Name, err)
			passErrs = append(passErrs, fmt.Errorf("pipeline: pass %s: %w", e.name, err))
		}
	}
	return errors.Join(passErrs...)
}

func runPass(pass Pass, cam pixelize.Camera) error {
	if err := pass.Setup(cam); err != nil {
		pass.Cleanup()
		return err
	}
	defer pass.Cleanup()
	return pass.Execute()
}

var _ Pass = (*pixelize.Stage)(nil)
