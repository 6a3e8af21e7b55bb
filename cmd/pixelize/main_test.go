package main

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelize/internal/logger"
	"pixelize/pkg/config"
	"pixelize/pkg/pixelize"
)

func TestApplyFlagsOverridesOnlySetFlags(t *testing.T) {
	opts, set, err := parseFlags([]string{"-height", "32", "-strategy", "antialias-suppressing", "-metrics-addr", ":9999"})
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "warn"
	require.NoError(t, applyFlags(cfg, opts, set))

	assert.Equal(t, 32, cfg.Effect.PixelHeight)
	assert.Equal(t, pixelize.AntialiasSuppressing, cfg.Effect.Strategy)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyFlagsRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"-height", "0"},
		{"-strategy", "triple-buffer"},
		{"-log-level", "loud"},
	} {
		opts, set, err := parseFlags(args)
		require.NoError(t, err)
		assert.Error(t, applyFlags(config.DefaultConfig(), opts, set), "%v", args)
	}
}

func TestFlagsRepairInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("effect:\n  pixel_height: 0\n"), 0o644))

	opts, set, err := parseFlags([]string{"-config", path})
	require.NoError(t, err)
	_, _, err = loadConfig(opts, set)
	assert.Error(t, err)

	opts, set, err = parseFlags([]string{"-config", path, "-height", "64"})
	require.NoError(t, err)
	cfg, missing, err := loadConfig(opts, set)
	require.NoError(t, err)
	assert.False(t, missing)
	assert.Equal(t, 64, cfg.Effect.PixelHeight)
}

func TestMissingConfigFileUsesDefaults(t *testing.T) {
	opts, set, err := parseFlags([]string{"-config", filepath.Join(t.TempDir(), "none.yaml")})
	require.NoError(t, err)

	cfg, missing, err := loadConfig(opts, set)
	require.NoError(t, err)
	assert.True(t, missing)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestProcessImageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")

	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 60), B: 9, A: 255})
		}
	}
	require.NoError(t, savePNG(in, src))

	img, err := loadImage(in)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, img.Pix)

	settings := pixelize.Settings{PixelHeight: 2, Strategy: pixelize.SingleBuffer}
	require.NoError(t, processImage(img, settings, logger.Discard(), nil))
	require.NoError(t, savePNG(out, img))

	got, err := loadImage(out)
	require.NoError(t, err)
	// The scene is imported bilinear, so single-buffer blends each 2x2
	// block. The gradient's block means are whole values.
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			bx, by := 2*(x/2), 2*(y/2)
			want := color.RGBA{R: uint8(30*bx + 15), G: uint8(60*by + 30), B: 9, A: 255}
			assert.Equal(t, want, got.RGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestGenerateSceneUsesWindowSize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Window.Width, cfg.Window.Height = 32, 18

	img := generateScene(cfg)
	assert.Equal(t, image.Rect(0, 0, 32, 18), img.Bounds())
	assert.Equal(t, uint8(255), img.RGBAAt(31, 17).A)
}

func TestLoadImageMissingFile(t *testing.T) {
	_, err := loadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
