package engine

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"pixelize/internal/logger"
	"pixelize/internal/pattern"
	"pixelize/pkg/config"
	"pixelize/pkg/glhost"
	"pixelize/pkg/pipeline"
	"pixelize/pkg/pixelize"
)

const (
	cameraTarget pixelize.TargetID = "_CameraColor"
	sceneTarget  pixelize.TargetID = "_SceneSource"

	sceneDownscale = 4
)

// Engine runs the windowed pixelize demo: a procedural scene is drawn into
// the camera target, the pixelize stage runs at its injection point and
// the result is presented to the window.
type Engine struct {
	window   *glfw.Window
	config   *config.Config
	logger   *logger.Logger
	metrics  *pixelize.Metrics
	device   *glhost.Device
	pool     *pixelize.TargetPool
	pipeline *pipeline.Pipeline
	stage    *pixelize.Stage
	input    *InputHandler
	scene    *pattern.Scene
	frame    *image.RGBA

	settings   pixelize.Settings
	enabled    bool
	paused     bool
	isRunning  bool
	resized    bool
	fbWidth    int
	fbHeight   int
	sceneTime  float64
	lastUpdate time.Time
	frameRate  int
}

// NewEngine creates the window, the GL host and the render pipeline. It
// must be called from the main thread.
func NewEngine(cfg *config.Config, log *logger.Logger, metrics *pixelize.Metrics) (*Engine, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var monitor *glfw.Monitor
	if cfg.Window.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if cfg.Window.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log.Infof("OpenGL %s", gl.GoStr(gl.GetString(gl.VERSION)))

	device, err := glhost.New(log.With("gl"))
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, err
	}

	e := &Engine{
		window:    window,
		config:    cfg,
		logger:    log,
		metrics:   metrics,
		device:    device,
		pipeline:  pipeline.New(log.With("pipeline")),
		scene:     pattern.NewScene(cfg.Scene.Seed),
		settings:  cfg.Effect,
		enabled:   true,
		frameRate: cfg.Window.FrameRate,
		input: NewInputHandler(window,
			glfw.KeyEscape, glfw.KeyUp, glfw.KeyDown, glfw.KeyTab,
			glfw.KeySpace, glfw.KeyP, glfw.KeyF12),
	}
	if cfg.Scene.Scale > 0 {
		e.scene.Scale = cfg.Scene.Scale
	}
	if cfg.Scene.Octaves > 0 {
		e.scene.Octaves = cfg.Scene.Octaves
	}
	e.pool = pixelize.NewTargetPool(device, pixelize.WithPoolLogger(log.With("pool")), pixelize.WithPoolMetrics(metrics))

	e.fbWidth, e.fbHeight = window.GetFramebufferSize()
	if err := e.createTargets(); err != nil {
		e.cleanup()
		return nil, err
	}
	if err := e.pipeline.AddDraw("scene", pixelize.BeforeOpaques, e.drawScene); err != nil {
		e.cleanup()
		return nil, err
	}
	if err := e.rebuildStage(); err != nil {
		e.cleanup()
		return nil, err
	}

	window.SetFramebufferSizeCallback(e.resizeCallback)
	return e, nil
}

// Run starts the main loop
func (e *Engine) Run() {
	e.isRunning = true
	e.lastUpdate = time.Now()

	for e.isRunning && !e.window.ShouldClose() {
		currentTime := time.Now()
		deltaTime := currentTime.Sub(e.lastUpdate).Seconds()
		e.lastUpdate = currentTime

		e.processInput()
		e.update(deltaTime)
		e.render()

		e.window.SwapBuffers()
		glfw.PollEvents()

		// Cap the frame rate
		if e.frameRate > 0 {
			frameTime := time.Since(currentTime)
			targetFrameTime := time.Second / time.Duration(e.frameRate)
			if frameTime < targetFrameTime {
				time.Sleep(targetFrameTime - frameTime)
			}
		}
	}

	e.cleanup()
}

// processInput handles keyboard controls
func (e *Engine) processInput() {
	e.input.Update()

	if e.input.IsKeyPressed(glfw.KeyEscape) {
		e.isRunning = false
	}

	settings := e.settings
	if e.input.IsKeyPressed(glfw.KeyUp) {
		settings.PixelHeight = stepPixelHeight(settings.PixelHeight, 1, e.fbHeight)
	}
	if e.input.IsKeyPressed(glfw.KeyDown) {
		settings.PixelHeight = stepPixelHeight(settings.PixelHeight, -1, e.fbHeight)
	}
	if e.input.IsKeyPressed(glfw.KeyTab) {
		settings.Strategy = nextStrategy(settings.Strategy)
	}
	if settings != e.settings {
		e.settings = settings
		if err := e.rebuildStage(); err != nil {
			e.logger.Errorf("Failed to rebuild pixelize stage: %v", err)
		}
	}

	if e.input.IsKeyPressed(glfw.KeyP) {
		e.enabled = !e.enabled
		if e.enabled {
			if err := e.pipeline.AddPass(e.stage); err != nil {
				e.logger.Errorf("Failed to enable pixelize stage: %v", err)
			}
		} else {
			e.pipeline.Remove(e.stage.Name())
		}
		e.logger.Infof("Pixelize %s", onOff(e.enabled))
	}
	if e.input.IsKeyPressed(glfw.KeySpace) {
		e.paused = !e.paused
	}
	if e.input.IsKeyPressed(glfw.KeyF12) {
		e.screenshot()
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// rebuildStage swaps in a stage built from the current settings. Stages
// are immutable, so a settings change always means a new stage.
func (e *Engine) rebuildStage() error {
	stage, err := pixelize.NewStage(e.settings, e.pool, e.device,
		pixelize.WithLogger(e.logger.With("pixelize")),
		pixelize.WithMetrics(e.metrics),
	)
	if err != nil {
		return err
	}
	if e.stage != nil {
		e.pipeline.Remove(e.stage.Name())
	}
	e.stage = stage
	if e.enabled {
		if err := e.pipeline.AddPass(stage); err != nil {
			return err
		}
	}
	e.logger.Infof("Pixelize: height %d, strategy %s, at %s",
		e.settings.PixelHeight, e.settings.Strategy, e.settings.InjectionPoint)
	return nil
}

// update advances the scene clock
func (e *Engine) update(deltaTime float64) {
	if !e.paused {
		e.sceneTime += deltaTime * e.config.Scene.Speed
	}
	if e.resized {
		e.resized = false
		if err := e.createTargets(); err != nil {
			e.logger.Errorf("Failed to resize targets: %v", err)
			e.isRunning = false
		}
	}
}

// render runs the pipeline for the window camera and presents the result
func (e *Engine) render() {
	cam, err := e.device.Camera("main", cameraTarget)
	if err != nil {
		e.logger.Errorf("No camera: %v", err)
		return
	}
	if err := e.pipeline.RenderCamera(cam); err != nil {
		e.logger.Debugf("Frame: %v", err)
	}
	if err := e.device.Present(cameraTarget, e.fbWidth, e.fbHeight); err != nil {
		e.logger.Warnf("Present failed: %v", err)
	}
}

// drawScene renders the procedural scene on the CPU at reduced size and
// scales it into the camera target.
func (e *Engine) drawScene(cam pixelize.Camera) error {
	e.scene.Render(e.frame, e.sceneTime)
	if err := e.device.Upload(sceneTarget, e.frame); err != nil {
		return err
	}
	return e.device.Blit(sceneTarget, cam.ColorTarget, nil)
}

// createTargets (re)creates the scene and camera targets for the current
// framebuffer size.
func (e *Engine) createTargets() error {
	for _, id := range []pixelize.TargetID{cameraTarget, sceneTarget} {
		_ = e.device.DeleteTarget(id)
	}

	w, h := e.fbWidth, e.fbHeight
	if w <= 0 || h <= 0 {
		// Minimized; keep a 1x1 camera so the pipeline still has a target.
		w, h = 1, 1
	}
	if err := e.device.CreateTarget(cameraTarget, pixelize.TargetDesc{
		Width: w, Height: h, Format: pixelize.FormatRGBA8, Filter: pixelize.FilterBilinear,
	}); err != nil {
		return err
	}

	sw, sh := sceneSize(w, h, sceneDownscale)
	if err := e.device.CreateTarget(sceneTarget, pixelize.TargetDesc{
		Width: sw, Height: sh, Format: pixelize.FormatRGBA8, Filter: pixelize.FilterBilinear,
	}); err != nil {
		return err
	}
	e.frame = image.NewRGBA(image.Rect(0, 0, sw, sh))
	return nil
}

func (e *Engine) resizeCallback(_ *glfw.Window, width int, height int) {
	e.logger.Infof("Framebuffer resized to %dx%d", width, height)
	e.fbWidth = width
	e.fbHeight = height
	e.resized = true
}

// screenshot writes the camera target to a timestamped PNG
func (e *Engine) screenshot() {
	img, err := e.device.Read(cameraTarget)
	if err != nil {
		e.logger.Errorf("Screenshot failed: %v", err)
		return
	}
	name := fmt.Sprintf("pixelize-%s.png", time.Now().Format("20060102-150405"))
	f, err := os.Create(name)
	if err != nil {
		e.logger.Errorf("Screenshot failed: %v", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		e.logger.Errorf("Screenshot failed: %v", err)
		return
	}
	e.logger.Infof("Saved %s", name)
}

// cleanup performs necessary cleanup before exiting
func (e *Engine) cleanup() {
	e.logger.Info("Shutting down engine...")
	if ids := e.pool.LiveIDs(); len(ids) > 0 {
		e.logger.Warnf("Targets still held at shutdown: %v", ids)
	}
	e.device.Close()
	e.window.Destroy()
	glfw.Terminate()
}
