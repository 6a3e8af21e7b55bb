// Package pattern draws procedural test scenes: noise terrain under a sky
// with a moon, plus hard edges that make pixelization easy to see.
package pattern

import (
	"image"
	"image/color"
	"math"

	"pixelize/internal/util"
)

// Scene renders an animated landscape. The zero value is usable.
type Scene struct {
	noise Noise

	// Scale is how many noise cells span the image height.
	Scale float64
	// Octaves of the terrain noise.
	Octaves int
}

// NewScene creates a scene with the given seed.
func NewScene(seed int64) *Scene {
	return &Scene{noise: Noise{Seed: seed}, Scale: 4, Octaves: 5}
}

var (
	skyTop     = color.RGBA{R: 10, G: 12, B: 40, A: 255}
	skyHorizon = color.RGBA{R: 120, G: 60, B: 90, A: 255}
	moonColor  = color.RGBA{R: 240, G: 230, B: 200, A: 255}
	groundLow  = color.RGBA{R: 20, G: 40, B: 30, A: 255}
	groundHigh = color.RGBA{R: 90, G: 130, B: 70, A: 255}
)

// Render draws the scene at time t (seconds) over the whole of img.
func (s *Scene) Render(img *image.RGBA, t float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}

	scale := s.Scale
	if scale <= 0 {
		scale = 4
	}
	octaves := s.Octaves
	if octaves <= 0 {
		octaves = 1
	}

	fw, fh := float64(w), float64(h)
	moonX, moonY, moonR := 0.75*fw, 0.25*fh, 0.12*fh

	for x := 0; x < w; x++ {
		// Horizon height in pixels for this column.
		nx := float64(x)/fh*scale + t*0.2
		ridge := s.noise.FBM2D(nx, 0.5, octaves, 2.0, 0.5)
		horizon := fh * util.Clamp(0.6-0.25*ridge, 0.2, 0.95)

		for y := 0; y < h; y++ {
			fy := float64(y)
			var c color.RGBA
			switch {
			case fy >= horizon:
				depth := (fy - horizon) / (fh - horizon + 1)
				detail := s.noise.Cellular2D(float64(x)/fh*scale*4, fy/fh*scale*4+t*0.1)
				c = mix(groundHigh, groundLow, util.Clamp(depth+0.3*detail, 0, 1))
			case math.Hypot(float64(x)-moonX, fy-moonY) <= moonR:
				c = moonColor
			default:
				c = mix(skyTop, skyHorizon, util.Clamp(fy/horizon, 0, 1))
			}
			img.SetRGBA(b.Min.X+x, b.Min.Y+y, c)
		}
	}
}

func mix(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(util.Lerp(float64(a.R), float64(b.R), t)),
		G: uint8(util.Lerp(float64(a.G), float64(b.G), t)),
		B: uint8(util.Lerp(float64(a.B), float64(b.B), t)),
		A: 255,
	}
}
