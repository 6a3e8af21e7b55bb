package pixelize

import (
	"errors"
	"fmt"
)

type fakeAllocator struct {
	allocs  []TargetID
	frees   []TargetID
	failOn  map[TargetID]error
	freeErr error
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{failOn: make(map[TargetID]error)}
}

func (a *fakeAllocator) Allocate(id TargetID, desc TargetDesc) error {
	if err, ok := a.failOn[id]; ok {
		return err
	}
	a.allocs = append(a.allocs, id)
	return nil
}

func (a *fakeAllocator) Free(id TargetID) error {
	a.frees = append(a.frees, id)
	return a.freeErr
}

type recordedBlit struct {
	src, dst TargetID
	pass     *ShaderPass
}

type fakeRecorder struct {
	blits     []recordedBlit
	failAt    int // 1-based blit index to fail, 0 for never
	submitted int
	discarded int
	scopes    []string
}

var errInjected = errors.New("injected blit failure")

func (r *fakeRecorder) Blit(src, dst TargetID, pass *ShaderPass) error {
	if r.failAt > 0 && len(r.blits)+1 == r.failAt {
		return errInjected
	}
	r.blits = append(r.blits, recordedBlit{src: src, dst: dst, pass: pass})
	return nil
}

func (r *fakeRecorder) Submit() error {
	r.submitted++
	return nil
}

func (r *fakeRecorder) Discard() { r.discarded++ }

func (r *fakeRecorder) BeginScope(name string) { r.scopes = append(r.scopes, "begin "+name) }
func (r *fakeRecorder) EndScope()              { r.scopes = append(r.scopes, "end") }

// plainRecorder implements only CommandRecorder.
type plainRecorder struct {
	n int
}

func (r *plainRecorder) Blit(src, dst TargetID, pass *ShaderPass) error {
	r.n++
	return nil
}

func testCamera(w, h int) Camera {
	return Camera{
		Name:        fmt.Sprintf("cam-%dx%d", w, h),
		ColorTarget: "_CameraColor",
		Descriptor:  TargetDesc{Width: w, Height: h, Format: FormatRGBA16F, Filter: FilterBilinear},
	}
}
