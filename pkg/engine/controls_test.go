package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pixelize/pkg/pixelize"
)

func TestStepPixelHeight(t *testing.T) {
	tests := []struct {
		name                string
		current, dir, limit int
		want                int
	}{
		{"double", 144, 1, 720, 288},
		{"halve", 144, -1, 720, 72},
		{"hold", 144, 0, 720, 144},
		{"clamp to framebuffer", 512, 1, 720, 720},
		{"clamp to minimum", 5, -1, 720, minPixelHeight},
		{"tiny framebuffer", 4, 1, 2, minPixelHeight},
		{"huge framebuffer", 1024, 1, 4320, maxPixelHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stepPixelHeight(tt.current, tt.dir, tt.limit))
		})
	}
}

func TestNextStrategy(t *testing.T) {
	assert.Equal(t, pixelize.AntialiasSuppressing, nextStrategy(pixelize.SingleBuffer))
	assert.Equal(t, pixelize.SingleBuffer, nextStrategy(pixelize.AntialiasSuppressing))
}

func TestSceneSize(t *testing.T) {
	w, h := sceneSize(1280, 720, 4)
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)

	w, h = sceneSize(3, 2, 4)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	w, h = sceneSize(10, 10, 0)
	assert.Equal(t, 10, w)
	assert.Equal(t, 10, h)
}
