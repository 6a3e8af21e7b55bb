package pattern

import "math"

// Noise generates deterministic gradient noise. The zero value uses seed 0.
type Noise struct {
	Seed int64
}

// NewNoise creates a noise source with the given seed
func NewNoise(seed int64) *Noise {
	return &Noise{Seed: seed}
}

// Perlin2D returns 2D Perlin noise, roughly in [-1, 1]. It is zero on
// integer lattice points.
func (n *Noise) Perlin2D(x, y float64) float64 {
	return n.perlin(x, y, n.Seed)
}

func (n *Noise) perlin(x, y float64, seed int64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	x1 := x0 + 1.0
	y1 := y0 + 1.0

	sx := fade(x - x0)
	sy := fade(y - y0)

	g00 := gradient(hash(int(x0), int(y0), 0, seed))
	g10 := gradient(hash(int(x1), int(y0), 0, seed))
	g01 := gradient(hash(int(x0), int(y1), 0, seed))
	g11 := gradient(hash(int(x1), int(y1), 0, seed))

	dp00 := g00[0]*(x-x0) + g00[1]*(y-y0)
	dp10 := g10[0]*(x-x1) + g10[1]*(y-y0)
	dp01 := g01[0]*(x-x0) + g01[1]*(y-y1)
	dp11 := g11[0]*(x-x1) + g11[1]*(y-y1)

	v0 := lerp(dp00, dp10, sx)
	v1 := lerp(dp01, dp11, sx)
	return lerp(v0, v1, sy)
}

// FBM2D sums octaves of Perlin noise (fractal Brownian motion), normalized
// by the total amplitude.
func (n *Noise) FBM2D(x, y float64, octaves int, lacunarity, gain float64) float64 {
	if octaves <= 0 {
		return 0
	}
	result := 0.0
	amplitude := 1.0
	frequency := 1.0
	total := 0.0

	for i := 0; i < octaves; i++ {
		result += n.perlin(x*frequency, y*frequency, n.Seed+int64(i)) * amplitude
		total += amplitude
		amplitude *= gain
		frequency *= lacunarity
	}
	return result / total
}

// Ridge2D folds Perlin noise into sharp ridges in [0, 1].
func (n *Noise) Ridge2D(x, y float64) float64 {
	r := 1.0 - math.Abs(n.Perlin2D(x, y))
	if r < 0 {
		r = 0
	}
	return r * r
}

// Cellular2D is Worley noise: the distance to the nearest feature point,
// capped at 1.
func (n *Noise) Cellular2D(x, y float64) float64 {
	ix := int(math.Floor(x))
	iy := int(math.Floor(y))
	minDist := 1.0

	for nx := -1; nx <= 1; nx++ {
		for ny := -1; ny <= 1; ny++ {
			cx, cy := ix+nx, iy+ny
			px := float64(cx) + unit(hash(cx, cy, 0, n.Seed))
			py := float64(cy) + unit(hash(cx, cy, 1, n.Seed))
			minDist = math.Min(minDist, math.Hypot(px-x, py-y))
		}
	}
	return minDist
}

func hash(x, y, z int, seed int64) int {
	h := int(seed) + x*374761393 + y*668265263 + z*2147483647
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

// unit maps a hash to [0, 1)
func unit(h int) float64 {
	return float64(h&0xFFFFFF) / 16777216.0
}

var gradients = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
}

func gradient(h int) [2]float64 {
	return gradients[h&7]
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// fade is the quintic 6t^5 - 15t^4 + 10t^3
func fade(t float64) float64 {
	return t * t * t * (t*(t*6.0-15.0) + 10.0)
}
