package softhost

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelize/internal/logger"
	"pixelize/pkg/pixelize"
)

const sceneID pixelize.TargetID = "_CameraColor"

// gradientScene gives every pixel a distinct color.
func gradientScene(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

// blockAverage is the mean of the 2x2 block of img starting at (x, y).
// gradientScene blocks average to whole values, so the mean is exact.
func blockAverage(img *image.RGBA, x, y int) color.RGBA {
	var sum [4]int
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			c := img.RGBAAt(x+dx, y+dy)
			sum[0] += int(c.R)
			sum[1] += int(c.G)
			sum[2] += int(c.B)
			sum[3] += int(c.A)
		}
	}
	return color.RGBA{R: uint8(sum[0] / 4), G: uint8(sum[1] / 4), B: uint8(sum[2] / 4), A: uint8(sum[3] / 4)}
}

// pixelizeScene runs one stage over an 8x4 gradient on a 4x2 grid and
// returns the original and the result.
func pixelizeScene(t *testing.T, strategy pixelize.Strategy, filter pixelize.FilterMode) (orig, scene *image.RGBA, dev *Device) {
	t.Helper()

	scene = gradientScene(8, 4)
	orig = cloneRGBA(scene)

	dev = New()
	require.NoError(t, dev.Import(sceneID, scene, filter))
	cam, err := dev.Camera("main", sceneID)
	require.NoError(t, err)

	stage, err := pixelize.NewStage(
		pixelize.Settings{PixelHeight: 2, Strategy: strategy},
		pixelize.NewTargetPool(dev),
		dev,
	)
	require.NoError(t, err)

	require.NoError(t, stage.Render(cam))
	return orig, scene, dev
}

func TestPixelizeOutput(t *testing.T) {
	tests := []struct {
		strategy pixelize.Strategy
		filter   pixelize.FilterMode
		blits    int
		want     func(orig *image.RGBA, bx, by int) color.RGBA
	}{
		// Sampling a bilinear scene at a block center that falls on a texel
		// corner blends the four texels around it.
		{pixelize.SingleBuffer, pixelize.FilterBilinear, 2, func(orig *image.RGBA, bx, by int) color.RGBA {
			return blockAverage(orig, 2*bx, 2*by)
		}},
		// The point-filtered copy keeps the quantize pass from blending.
		{pixelize.AntialiasSuppressing, pixelize.FilterBilinear, 3, func(orig *image.RGBA, bx, by int) color.RGBA {
			return orig.RGBAAt(2*bx+1, 2*by+1)
		}},
		{pixelize.SingleBuffer, pixelize.FilterPoint, 2, func(orig *image.RGBA, bx, by int) color.RGBA {
			return orig.RGBAAt(2*bx+1, 2*by+1)
		}},
		{pixelize.AntialiasSuppressing, pixelize.FilterPoint, 3, func(orig *image.RGBA, bx, by int) color.RGBA {
			return orig.RGBAAt(2*bx+1, 2*by+1)
		}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.strategy, tt.filter), func(t *testing.T) {
			orig, scene, dev := pixelizeScene(t, tt.strategy, tt.filter)

			// Grid is 4x2, so each block covers 2x2 scene pixels.
			for y := 0; y < 4; y++ {
				for x := 0; x < 8; x++ {
					assert.Equal(t, tt.want(orig, x/2, y/2), scene.RGBAAt(x, y), "pixel %d,%d", x, y)
				}
			}

			stats := dev.Stats()
			assert.Equal(t, tt.blits, stats.Blits)
			assert.Equal(t, stats.Allocations, stats.Frees)
			assert.Empty(t, dev.Transient())
			assert.Zero(t, dev.BytesInUse())
			assert.Zero(t, dev.Pending())
		})
	}
}

func TestStrategiesDifferOnlyOnBilinearScenes(t *testing.T) {
	_, single, _ := pixelizeScene(t, pixelize.SingleBuffer, pixelize.FilterBilinear)
	_, suppressed, _ := pixelizeScene(t, pixelize.AntialiasSuppressing, pixelize.FilterBilinear)
	assert.NotEqual(t, single.Pix, suppressed.Pix)
	assert.Equal(t, color.RGBA{R: 8, G: 16, B: 1, A: 255}, single.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 16, G: 32, B: 2, A: 255}, suppressed.RGBAAt(0, 0))

	_, single, _ = pixelizeScene(t, pixelize.SingleBuffer, pixelize.FilterPoint)
	_, suppressed, _ = pixelizeScene(t, pixelize.AntialiasSuppressing, pixelize.FilterPoint)
	assert.Equal(t, single.Pix, suppressed.Pix)
}

// flakyDevice fails one blit and otherwise forwards to the device.
type flakyDevice struct {
	*Device
	failAt int // 1-based
	blits  int
}

var errLost = errors.New("device lost")

func (f *flakyDevice) Blit(src, dst pixelize.TargetID, pass *pixelize.ShaderPass) error {
	f.blits++
	if f.blits == f.failAt {
		return errLost
	}
	return f.Device.Blit(src, dst, pass)
}

func TestFailedChainDoesNotLeakIntoNextFrame(t *testing.T) {
	for _, failAt := range []int{2, 3} {
		t.Run(fmt.Sprintf("fail-%d", failAt), func(t *testing.T) {
			scene := gradientScene(8, 4)
			orig := cloneRGBA(scene)

			dev := New()
			require.NoError(t, dev.Import(sceneID, scene, pixelize.FilterBilinear))
			cam, err := dev.Camera("main", sceneID)
			require.NoError(t, err)
			pool := pixelize.NewTargetPool(dev)

			flaky := &flakyDevice{Device: dev, failAt: failAt}
			broken, err := pixelize.NewStage(pixelize.Settings{PixelHeight: 2, Strategy: pixelize.AntialiasSuppressing}, pool, flaky)
			require.NoError(t, err)

			err = broken.Render(cam)
			require.ErrorIs(t, err, errLost)
			assert.Zero(t, dev.Pending())
			assert.Zero(t, dev.Stats().Blits)
			assert.Empty(t, dev.Transient())
			assert.Equal(t, orig.Pix, scene.Pix)

			// A healthy stage with the other strategy on the same device
			// renders its own chain only.
			healthy, err := pixelize.NewStage(pixelize.Settings{PixelHeight: 2, Strategy: pixelize.SingleBuffer}, pool, dev)
			require.NoError(t, err)

			require.NoError(t, healthy.Render(cam))
			assert.Equal(t, 2, dev.Stats().Blits)
			assert.Zero(t, dev.Pending())
			assert.Equal(t, blockAverage(orig, 0, 0), scene.RGBAAt(0, 0))
		})
	}
}

func TestDiscardDropsPendingCommands(t *testing.T) {
	scene := gradientScene(4, 4)
	orig := cloneRGBA(scene)
	dev := New()
	require.NoError(t, dev.Import(sceneID, scene, pixelize.FilterPoint))
	require.NoError(t, dev.Allocate("tmp", pixelize.TargetDesc{Width: 2, Height: 2}))
	require.NoError(t, dev.Blit(sceneID, "tmp", nil))
	require.NoError(t, dev.Blit("tmp", sceneID, nil))

	dev.Discard()

	assert.Zero(t, dev.Pending())
	require.NoError(t, dev.Submit())
	assert.Zero(t, dev.Stats().Blits)
	assert.Equal(t, orig.Pix, scene.Pix)
}

func TestOutOfMemoryLeavesSceneUntouched(t *testing.T) {
	var logs bytes.Buffer
	log := logger.New(&logs, logger.WARN)

	scene := gradientScene(64, 36)
	orig := cloneRGBA(scene)

	dev := New(WithBudget(16), WithLogger(log))
	require.NoError(t, dev.Import(sceneID, scene, pixelize.FilterBilinear))
	cam, err := dev.Camera("main", sceneID)
	require.NoError(t, err)

	pool := pixelize.NewTargetPool(dev, pixelize.WithPoolLogger(log))
	stage, err := pixelize.NewStage(pixelize.Settings{PixelHeight: 16}, pool, dev, pixelize.WithLogger(log))
	require.NoError(t, err)

	err = stage.Render(cam)

	require.Error(t, err)
	assert.True(t, errors.Is(err, pixelize.ErrOutOfMemory))
	assert.Equal(t, orig.Pix, scene.Pix)
	assert.Equal(t, 1, strings.Count(logs.String(), "\n"), logs.String())
	assert.Empty(t, dev.Transient())
	assert.Zero(t, pool.Live())
	assert.Zero(t, dev.Stats().Blits)
}

func TestBudgetAllowsExactFit(t *testing.T) {
	dev := New(WithBudget(4 * 4 * 4))
	desc := pixelize.TargetDesc{Width: 4, Height: 4, Format: pixelize.FormatRGBA8}

	require.NoError(t, dev.Allocate("a", desc))
	assert.Equal(t, 64, dev.BytesInUse())
	assert.ErrorIs(t, dev.Allocate("b", pixelize.TargetDesc{Width: 1, Height: 1}), pixelize.ErrOutOfMemory)

	require.NoError(t, dev.Free("a"))
	require.NoError(t, dev.Allocate("b", desc))
}

func TestBlitValidation(t *testing.T) {
	dev := New()
	require.NoError(t, dev.Import(sceneID, gradientScene(4, 4), pixelize.FilterPoint))

	assert.ErrorIs(t, dev.Blit(sceneID, "missing", nil), pixelize.ErrUnknownTarget)
	assert.ErrorIs(t, dev.Blit("missing", sceneID, nil), pixelize.ErrUnknownTarget)
	assert.Error(t, dev.Blit(sceneID, sceneID, nil))
	assert.Zero(t, dev.Pending())

	assert.ErrorIs(t, dev.Free(sceneID), pixelize.ErrUnknownTarget, "imported targets are not transient")
	assert.Error(t, dev.Import(sceneID, gradientScene(1, 1), pixelize.FilterPoint))
	assert.Error(t, dev.Allocate(sceneID, pixelize.TargetDesc{Width: 1, Height: 1}))

	_, err := dev.Camera("nobody", "missing")
	assert.ErrorIs(t, err, pixelize.ErrUnknownTarget)
}

func TestSubmitAfterFreeFails(t *testing.T) {
	dev := New()
	require.NoError(t, dev.Import(sceneID, gradientScene(4, 4), pixelize.FilterPoint))
	require.NoError(t, dev.Allocate("tmp", pixelize.TargetDesc{Width: 2, Height: 2}))
	require.NoError(t, dev.Blit(sceneID, "tmp", nil))
	require.NoError(t, dev.Free("tmp"))

	assert.ErrorIs(t, dev.Submit(), pixelize.ErrUnknownTarget)
	assert.Zero(t, dev.Pending())
}

func TestQuantizeHighPrecisionTarget(t *testing.T) {
	scene := gradientScene(8, 4)
	dev := New()
	require.NoError(t, dev.Import(sceneID, scene, pixelize.FilterPoint))
	require.NoError(t, dev.Allocate("grid", pixelize.TargetDesc{Width: 4, Height: 2, Format: pixelize.FormatRGBA16F}))

	params := pixelize.GridDimensions{Width: 4, Height: 2}.ShaderParams()
	require.NoError(t, dev.Blit(sceneID, "grid", &pixelize.ShaderPass{Pass: pixelize.PassQuantize, Params: params}))
	require.NoError(t, dev.Submit())

	img, ok := dev.Image("grid")
	require.True(t, ok)
	_, isRGBA64 := img.(*image.RGBA64)
	require.True(t, isRGBA64)

	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			want := scene.RGBAAt(2*x+1, 2*y+1)
			assert.Equal(t, color.Color(want), color.RGBAModel.Convert(img.At(x, y)), "texel %d,%d", x, y)
		}
	}
}

func TestScopesLabelCommands(t *testing.T) {
	var logs bytes.Buffer
	dev := New(WithLogger(logger.New(&logs, logger.DEBUG)))
	require.NoError(t, dev.Import(sceneID, gradientScene(4, 4), pixelize.FilterPoint))
	require.NoError(t, dev.Allocate("tmp", pixelize.TargetDesc{Width: 2, Height: 2}))

	dev.BeginScope(pixelize.ProfilerTag)
	require.NoError(t, dev.Blit(sceneID, "tmp", nil))
	dev.EndScope()
	dev.EndScope() // unbalanced end is ignored
	require.NoError(t, dev.Submit())

	assert.Contains(t, logs.String(), "[Pixel Pass] blit _CameraColor -> tmp (copy)")
}
