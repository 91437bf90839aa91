// Package canvas is a paged drawing surface for tri-color e-paper panels.
//
// The frame is never held in memory at once: drawing goes into a horizontal
// band of the frame, and NextPage hands the finished band to a PageSink
// before moving to the next one. Callers redraw the whole frame for every
// band; anything outside the current band is clipped.
//
//	c.FirstPage()
//	for {
//		c.FillScreen(canvas.White)
//		draw(c)
//		more, err := c.NextPage()
//		if err != nil || !more {
//			break
//		}
//	}
package canvas

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Palette indexes.
const (
	White uint8 = iota
	Black
	Red
)

var Palette = color.Palette{
	color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
	color.RGBA{0x00, 0x00, 0x00, 0xFF},
	color.RGBA{0xFF, 0x00, 0x00, 0xFF},
}

// PageSink receives finished bands. The band is reused after WritePage
// returns, so sinks that keep pixels must copy them. Refresh is called once
// after the last band of a frame.
type PageSink interface {
	WritePage(band *image.Paletted) error
	Refresh() error
}

type Canvas struct {
	frame      image.Rectangle
	pageHeight int
	sink       PageSink

	page int
	band *image.Paletted

	face   font.Face
	ink    uint8
	cursor image.Point
}

// New returns a canvas of width x height pixels that flushes pageHeight rows
// at a time. A pageHeight of 0 or larger than the frame uses a single page.
func New(width, height, pageHeight int, sink PageSink) *Canvas {
	if pageHeight <= 0 || pageHeight > height {
		pageHeight = height
	}
	c := &Canvas{
		frame:      image.Rect(0, 0, width, height),
		pageHeight: pageHeight,
		sink:       sink,
		face:       basicfont.Face7x13,
		ink:        Black,
	}
	c.FirstPage()
	return c
}

func (c *Canvas) Bounds() image.Rectangle { return c.frame }

func (c *Canvas) Width() int { return c.frame.Dx() }

func (c *Canvas) Height() int { return c.frame.Dy() }

// Pages is the number of bands per frame.
func (c *Canvas) Pages() int {
	return (c.frame.Dy() + c.pageHeight - 1) / c.pageHeight
}

// Page returns the current band index and its rectangle within the frame.
func (c *Canvas) Page() (int, image.Rectangle) { return c.page, c.band.Rect }

// FirstPage rewinds to the top band.
func (c *Canvas) FirstPage() {
	c.page = 0
	c.setBand()
}

// NextPage flushes the current band. It returns false once the last band
// has been written and the sink refreshed.
func (c *Canvas) NextPage() (bool, error) {
	if err := c.sink.WritePage(c.band); err != nil {
		return false, fmt.Errorf("write page %d: %w", c.page, err)
	}
	if c.page+1 >= c.Pages() {
		if err := c.sink.Refresh(); err != nil {
			return false, fmt.Errorf("refresh: %w", err)
		}
		return false, nil
	}
	c.page++
	c.setBand()
	return true, nil
}

func (c *Canvas) setBand() {
	y0 := c.frame.Min.Y + c.page*c.pageHeight
	y1 := min(y0+c.pageHeight, c.frame.Max.Y)
	r := image.Rect(c.frame.Min.X, y0, c.frame.Max.X, y1)
	if c.band != nil && c.band.Rect.Dx() == r.Dx() && c.band.Rect.Dy() == r.Dy() {
		c.band.Rect = r
		return
	}
	c.band = image.NewPaletted(r, Palette)
}
