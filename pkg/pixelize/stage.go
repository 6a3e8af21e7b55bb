package pixelize

import (
	"errors"
	"fmt"

	"pixelize/internal/logger"
)

// ProfilerTag is the scope name blits are grouped under.
const ProfilerTag = "Pixel Pass"

// Transient target names. A stage prefixes them when configured with
// WithTargetPrefix.
const (
	TemporaryBufferID TargetID = "_TemporaryBuffer"
	PointBufferID     TargetID = "_PointBuffer"
	PixelBufferID     TargetID = "_PixelBuffer"
)

// Phase is the position of a stage within its per-frame sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSetup
	PhaseExecuting
	PhaseCleanup
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSetup:
		return "setup"
	case PhaseExecuting:
		return "executing"
	case PhaseCleanup:
		return "cleanup"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

type blitStep struct {
	src, dst TargetID
	quantize bool
}

// Stage is the pixelize effect. The host calls Setup, Execute and Cleanup
// once per camera per frame, in that order; Render does all three. A Stage
// is not safe for concurrent use.
type Stage struct {
	settings Settings
	pool     *TargetPool
	recorder CommandRecorder
	material *Material
	log      *logger.Logger
	metrics  *Metrics
	prefix   TargetID

	phase    Phase
	camera   Camera
	dims     GridDimensions
	params   ShaderParams
	acquired []TransientTarget
	blits    []blitStep
	skipped  bool
	failing  bool
}

// StageOption configures a Stage.
type StageOption func(*Stage)

// WithLogger sets the stage's logger.
func WithLogger(l *logger.Logger) StageOption {
	return func(s *Stage) { s.log = l }
}

// WithMetrics records frame and blit counts to m.
func WithMetrics(m *Metrics) StageOption {
	return func(s *Stage) { s.metrics = m }
}

// WithMaterial shares an existing parameter block with the stage.
func WithMaterial(m *Material) StageOption {
	return func(s *Stage) { s.material = m }
}

// WithTargetPrefix prefixes the stage's transient target ids, so several
// stages can share one allocator.
func WithTargetPrefix(prefix string) StageOption {
	return func(s *Stage) { s.prefix = TargetID(prefix) }
}

// NewStage validates settings and builds a stage over the given pool and
// recorder.
func NewStage(settings Settings, pool *TargetPool, recorder CommandRecorder, opts ...StageOption) (*Stage, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errors.New("pixelize: nil target pool")
	}
	if recorder == nil {
		return nil, errors.New("pixelize: nil command recorder")
	}

	s := &Stage{
		settings: settings,
		pool:     pool,
		recorder: recorder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.material == nil {
		s.material = NewMaterial()
	}
	return s, nil
}

// Name identifies the stage in logs and frame debuggers.
func (s *Stage) Name() string { return ProfilerTag }

func (s *Stage) Settings() Settings { return s.settings }

func (s *Stage) InjectionPoint() InjectionPoint { return s.settings.InjectionPoint }

func (s *Stage) Material() *Material { return s.material }

func (s *Stage) Phase() Phase { return s.phase }

// Dimensions returns the grid of the current or last set-up frame.
func (s *Stage) Dimensions() GridDimensions { return s.dims }

// Params returns the uniforms of the current or last set-up frame.
func (s *Stage) Params() ShaderParams { return s.params }

// Skipped reports whether the current frame's blits will be skipped.
func (s *Stage) Skipped() bool { return s.skipped }

// Setup resolves the frame's grid, writes the parameter block and acquires
// the strategy's targets. If the grid cannot be resolved or a target cannot
// be acquired the frame is skipped: nothing stays acquired, Execute records
// nothing and the error is returned. Cleanup must still be called.
func (s *Stage) Setup(cam Camera) error {
	if s.phase != PhaseIdle {
		violate("setup", "", "called in phase "+s.phase.String())
	}
	s.phase = PhaseSetup
	s.camera = cam
	s.skipped = false
	s.acquired = s.acquired[:0]
	s.blits = s.blits[:0]

	dims, err := Resolve(s.settings.PixelHeight, cam.AspectRatio())
	if err != nil {
		s.skip(cam, err)
		return err
	}
	s.dims = dims
	s.params = dims.ShaderParams()
	s.material.SetParams(s.params)

	targets, blits := s.plan(cam, dims)
	for _, t := range targets {
		acquired, err := s.pool.Acquire(t.ID, t.Desc)
		if err != nil {
			s.metrics.acquireFailed()
			s.releaseAcquired()
			s.skip(cam, err)
			return err
		}
		s.acquired = append(s.acquired, acquired)
	}
	s.blits = blits

	if s.failing {
		s.log.Infof("%s: rendering camera %q again", ProfilerTag, cam.Name)
		s.failing = false
	}
	s.log.Debugf("%s: camera %q grid %s strategy %s", ProfilerTag, cam.Name, dims, s.settings.Strategy)
	return nil
}

// skip marks the frame skipped. Only the first skip of a streak is
// logged at warn level; the streak ends when a frame sets up again.
func (s *Stage) skip(cam Camera, err error) {
	s.skipped = true
	s.metrics.frame(ResultSkipped)

	if s.failing {
		s.log.Debugf("%s: still skipping camera %q: %v", ProfilerTag, cam.Name, err)
		return
	}
	s.failing = true

	var acqErr *ResourceAcquisitionError
	if errors.As(err, &acqErr) {
		s.log.Warnf("%s: skipping camera %q until targets can be allocated: %v", ProfilerTag, cam.Name, err)
		return
	}
	s.log.Warnf("%s: skipping camera %q: %v", ProfilerTag, cam.Name, err)
}

// plan lists the targets to acquire and the blits to record for the
// configured strategy.
func (s *Stage) plan(cam Camera, dims GridDimensions) ([]TransientTarget, []blitStep) {
	scene := cam.ColorTarget
	grid := TargetDesc{
		Width:  dims.Width,
		Height: dims.Height,
		Format: cam.Descriptor.Format,
		Filter: FilterPoint,
	}

	switch s.settings.Strategy {
	case AntialiasSuppressing:
		point := TargetDesc{
			Width:  cam.Descriptor.Width,
			Height: cam.Descriptor.Height,
			Format: cam.Descriptor.Format,
			Filter: FilterPoint,
		}
		pointID, pixelID := s.prefix+PointBufferID, s.prefix+PixelBufferID
		return []TransientTarget{{ID: pointID, Desc: point}, {ID: pixelID, Desc: grid}},
			[]blitStep{
				{src: scene, dst: pointID},
				{src: pointID, dst: pixelID, quantize: true},
				{src: pixelID, dst: scene},
			}
	default:
		tmpID := s.prefix + TemporaryBufferID
		return []TransientTarget{{ID: tmpID, Desc: grid}},
			[]blitStep{
				{src: scene, dst: tmpID, quantize: true},
				{src: tmpID, dst: scene},
			}
	}
}

// Execute records the frame's blit chain. A skipped frame records nothing.
// The chain stops at the first failing blit and the blits already recorded
// are discarded when the recorder supports it.
func (s *Stage) Execute() error {
	if s.phase != PhaseSetup {
		violate("execute", "", "called in phase "+s.phase.String())
	}
	s.phase = PhaseExecuting

	if s.skipped {
		return nil
	}

	if err := s.record(); err != nil {
		if d, ok := s.recorder.(Discarder); ok {
			d.Discard()
		}
		s.metrics.frame(ResultFailed)
		s.log.Errorf("%s: camera %q: %v", ProfilerTag, s.camera.Name, err)
		return err
	}

	if sub, ok := s.recorder.(Submitter); ok {
		if err := sub.Submit(); err != nil {
			s.metrics.frame(ResultFailed)
			s.log.Errorf("%s: camera %q: submit: %v", ProfilerTag, s.camera.Name, err)
			return fmt.Errorf("pixelize: submit: %w", err)
		}
	}

	s.metrics.frame(ResultRendered)
	return nil
}

func (s *Stage) record() error {
	if prof, ok := s.recorder.(Profiler); ok {
		prof.BeginScope(ProfilerTag)
		defer prof.EndScope()
	}

	for _, b := range s.blits {
		var pass *ShaderPass
		if b.quantize {
			pass = &ShaderPass{Pass: PassQuantize, Params: s.material.Params()}
		}
		if err := s.recorder.Blit(b.src, b.dst, pass); err != nil {
			return fmt.Errorf("pixelize: blit %s -> %s: %w", b.src, b.dst, err)
		}
		s.metrics.blit(pass)
	}
	return nil
}

// Cleanup releases every target acquired by Setup. It must be called once
// after each Setup, including when Setup or Execute failed.
func (s *Stage) Cleanup() {
	if s.phase != PhaseSetup && s.phase != PhaseExecuting {
		violate("cleanup", "", "no matching setup")
	}
	s.phase = PhaseCleanup
	s.releaseAcquired()
	s.blits = s.blits[:0]
	s.phase = PhaseIdle
}

func (s *Stage) releaseAcquired() {
	for i := len(s.acquired) - 1; i >= 0; i-- {
		s.pool.Release(s.acquired[i].ID)
	}
	s.acquired = s.acquired[:0]
}

// Render runs Setup, Execute and Cleanup for one camera. Cleanup runs even
// if Execute fails or panics.
func (s *Stage) Render(cam Camera) error {
	setupErr := s.Setup(cam)
	defer s.Cleanup()
	if setupErr != nil {
		return setupErr
	}
	return s.Execute()
}
