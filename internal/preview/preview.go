// Package preview shows images in a terminal using half-block cells: each
// cell carries two vertically stacked pixels, the upper half as the
// foreground color of '▀' and the lower half as the background.
package preview

import (
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"
)

// UpperHalf is the glyph every image cell is drawn with.
const UpperHalf = '▀'

// Presenter draws images onto a tcell screen.
type Presenter struct {
	screen tcell.Screen
	buf    *image.RGBA
	rect   image.Rectangle // last drawn area, in pixels
}

// NewPresenter creates a presenter for an initialized screen.
func NewPresenter(screen tcell.Screen) *Presenter {
	return &Presenter{screen: screen}
}

// Fit returns the largest rectangle with src's aspect ratio that fits a
// cols x rows terminal, in half-block pixels, centered.
func Fit(src image.Rectangle, cols, rows int) image.Rectangle {
	w, h := cols, rows*2
	sw, sh := src.Dx(), src.Dy()
	if w <= 0 || h <= 0 || sw <= 0 || sh <= 0 {
		return image.Rectangle{}
	}

	dw, dh := w, sh*w/sw
	if dh > h {
		dw, dh = sw*h/sh, h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	x0 := (w - dw) / 2
	y0 := ((h - dh) / 2) &^ 1 // keep rows aligned to cells
	return image.Rect(x0, y0, x0+dw, y0+dh)
}

// Draw scales src to the screen with nearest-neighbor sampling and shows
// it. Areas outside the image are cleared.
func (p *Presenter) Draw(src image.Image) {
	cols, rows := p.screen.Size()
	p.rect = Fit(src.Bounds(), cols, rows)

	if p.buf == nil || p.buf.Bounds().Dx() != cols || p.buf.Bounds().Dy() != rows*2 {
		p.buf = image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	} else {
		for i := range p.buf.Pix {
			p.buf.Pix[i] = 0
		}
	}
	if !p.rect.Empty() {
		draw.NearestNeighbor.Scale(p.buf, p.rect, src, src.Bounds(), draw.Src, nil)
	}

	p.screen.Clear()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := p.buf.RGBAAt(x, y*2)
			bottom := p.buf.RGBAAt(x, y*2+1)
			style := tcell.StyleDefault.Foreground(toColor(top)).Background(toColor(bottom))
			p.screen.SetContent(x, y, UpperHalf, nil, style)
		}
	}
	p.screen.Show()
}

// Area is the pixel rectangle of the last drawn image.
func (p *Presenter) Area() image.Rectangle { return p.rect }

func toColor(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Show draws img and redraws it on resize until the user presses Escape,
// Enter, q or Ctrl-C, or an interrupt is posted to the screen. The screen
// must be initialized; Show does not call Fini.
func Show(screen tcell.Screen, img image.Image) {
	p := NewPresenter(screen)
	p.Draw(img)

	for {
		switch ev := screen.PollEvent().(type) {
		case nil, *tcell.EventInterrupt:
			return
		case *tcell.EventResize:
			screen.Sync()
			p.Draw(img)
		case *tcell.EventKey:
			if isQuit(ev) {
				return
			}
		}
	}
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyEnter, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}
