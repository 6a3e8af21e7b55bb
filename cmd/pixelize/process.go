package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"pixelize/internal/logger"
	"pixelize/internal/pattern"
	"pixelize/pkg/config"
	"pixelize/pkg/pipeline"
	"pixelize/pkg/pixelize"
	"pixelize/pkg/softhost"
)

const sceneTarget pixelize.TargetID = "_CameraColor"

// loadImage decodes a PNG or JPEG into a fresh RGBA image at the origin.
func loadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	return dst, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// generateScene renders the procedural scene at the configured window size.
func generateScene(cfg *config.Config) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Window.Width, cfg.Window.Height))
	scene := pattern.NewScene(cfg.Scene.Seed)
	if cfg.Scene.Scale > 0 {
		scene.Scale = cfg.Scene.Scale
	}
	if cfg.Scene.Octaves > 0 {
		scene.Octaves = cfg.Scene.Octaves
	}
	scene.Render(img, 0)
	return img
}

// processImage runs the pixelize stage over img in place on the software
// host.
func processImage(img *image.RGBA, settings pixelize.Settings, log *logger.Logger, metrics *pixelize.Metrics) error {
	dev := softhost.New(softhost.WithLogger(log.With("softhost")))
	if err := dev.Import(sceneTarget, img, pixelize.FilterBilinear); err != nil {
		return err
	}
	cam, err := dev.Camera("offline", sceneTarget)
	if err != nil {
		return err
	}

	pool := pixelize.NewTargetPool(dev, pixelize.WithPoolLogger(log.With("pool")), pixelize.WithPoolMetrics(metrics))
	stage, err := pixelize.NewStage(settings, pool, dev,
		pixelize.WithLogger(log.With("pixelize")),
		pixelize.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	p := pipeline.New(log.With("pipeline"))
	if err := p.AddPass(stage); err != nil {
		return err
	}
	if err := p.RenderCamera(cam); err != nil {
		return err
	}

	if ids := pool.LiveIDs(); len(ids) > 0 {
		return fmt.Errorf("targets still held after render: %v", ids)
	}

	s := dev.Stats()
	log.Infof("Pixelized %dx%d to a %s grid (%s, %d blits)",
		cam.Descriptor.Width, cam.Descriptor.Height, stage.Dimensions(), settings.Strategy, s.Blits)
	return nil
}
