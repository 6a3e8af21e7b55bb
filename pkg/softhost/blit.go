package softhost

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"pixelize/pkg/pixelize"
)

type drawImage = draw.Image

// newImage backs a target. RGBA16F is stored with 16 bits per channel.
func newImage(desc pixelize.TargetDesc) drawImage {
	r := image.Rect(0, 0, desc.Width, desc.Height)
	if desc.Format == pixelize.FormatRGBA16F {
		return image.NewRGBA64(r)
	}
	return image.NewRGBA(r)
}

// copyScaled is the plain blit: same-size copies are exact, resizing uses
// the source's filter.
func copyScaled(dst, src drawImage, filter pixelize.FilterMode) {
	db, sb := dst.Bounds(), src.Bounds()
	if db.Size() == sb.Size() {
		draw.Copy(dst, db.Min, src, sb, draw.Src, nil)
		return
	}

	var scaler draw.Scaler = draw.NearestNeighbor
	if filter == pixelize.FilterBilinear {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, db, src, sb, draw.Src, nil)
}

// quantize is the CPU rendition of the pixelize shader's first pass: each
// destination texel samples the source at the center of its block, using
// the source's filter.
func quantize(dst, src drawImage, p pixelize.ShaderParams, filter pixelize.FilterMode) {
	db, sb := dst.Bounds(), src.Bounds()
	dw, dh := db.Dx(), db.Dy()
	sw, sh := sb.Dx(), sb.Dy()
	if dw == 0 || dh == 0 || sw == 0 || sh == 0 {
		return
	}

	drgba, dok := dst.(*image.RGBA)
	srgba, sok := src.(*image.RGBA)
	fast := dok && sok && filter != pixelize.FilterBilinear

	for y := 0; y < dh; y++ {
		v := (float32(y) + 0.5) / float32(dh)
		for x := 0; x < dw; x++ {
			u := (float32(x) + 0.5) / float32(dw)
			cu, cv := p.BlockCenter(u, v)

			if filter == pixelize.FilterBilinear {
				dst.Set(db.Min.X+x, db.Min.Y+y, sampleBilinear(src, cu, cv))
				continue
			}

			sx := clamp(int(cu*float32(sw)), sw-1)
			sy := clamp(int(cv*float32(sh)), sh-1)
			if fast {
				di := drgba.PixOffset(db.Min.X+x, db.Min.Y+y)
				si := srgba.PixOffset(sb.Min.X+sx, sb.Min.Y+sy)
				copy(drgba.Pix[di:di+4], srgba.Pix[si:si+4])
				continue
			}
			dst.Set(db.Min.X+x, db.Min.Y+y, src.At(sb.Min.X+sx, sb.Min.Y+sy))
		}
	}
}

// sampleBilinear reads src at normalized (u, v) like a linear texture
// sampler with clamp-to-edge addressing: texel centers sit at half-integer
// coordinates and the four nearest texels are weighted by distance.
func sampleBilinear(src image.Image, u, v float32) color.RGBA64 {
	b := src.Bounds()
	fx := float64(u)*float64(b.Dx()) - 0.5
	fy := float64(v)*float64(b.Dy()) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	wx, wy := fx-x0, fy-y0

	xs := [2]int{clamp(int(x0), b.Dx()-1), clamp(int(x0)+1, b.Dx()-1)}
	ys := [2]int{clamp(int(y0), b.Dy()-1), clamp(int(y0)+1, b.Dy()-1)}
	weights := [2][2]float64{
		{(1 - wx) * (1 - wy), wx * (1 - wy)},
		{(1 - wx) * wy, wx * wy},
	}

	var acc [4]float64
	for j, sy := range ys {
		for i, sx := range xs {
			w := weights[j][i]
			if w == 0 {
				continue
			}
			r, g, bl, a := src.At(b.Min.X+sx, b.Min.Y+sy).RGBA()
			acc[0] += w * float64(r)
			acc[1] += w * float64(g)
			acc[2] += w * float64(bl)
			acc[3] += w * float64(a)
		}
	}
	return color.RGBA64{
		R: uint16(acc[0] + 0.5),
		G: uint16(acc[1] + 0.5),
		B: uint16(acc[2] + 0.5),
		A: uint16(acc[3] + 0.5),
	}
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
