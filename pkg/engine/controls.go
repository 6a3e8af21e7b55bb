package engine

import "pixelize/pkg/pixelize"

// Pixel heights cycled by the arrow keys.
const (
	minPixelHeight = 4
	maxPixelHeight = 1080
)

// stepPixelHeight doubles (dir > 0) or halves (dir < 0) the grid height,
// staying within [minPixelHeight, limit].
func stepPixelHeight(current, dir, limit int) int {
	if limit < minPixelHeight {
		limit = minPixelHeight
	}
	if limit > maxPixelHeight {
		limit = maxPixelHeight
	}

	next := current
	switch {
	case dir > 0:
		next = current * 2
	case dir < 0:
		next = current / 2
	}
	if next < minPixelHeight {
		next = minPixelHeight
	}
	if next > limit {
		next = limit
	}
	return next
}

// nextStrategy cycles through the strategies.
func nextStrategy(s pixelize.Strategy) pixelize.Strategy {
	if s == pixelize.SingleBuffer {
		return pixelize.AntialiasSuppressing
	}
	return pixelize.SingleBuffer
}

// sceneSize is the resolution the CPU scene is rendered at for a
// framebuffer of the given size.
func sceneSize(width, height, downscale int) (int, int) {
	if downscale < 1 {
		downscale = 1
	}
	w, h := width/downscale, height/downscale
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
