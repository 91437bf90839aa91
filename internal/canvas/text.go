package canvas

import (
	"image"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

func (c *Canvas) SetFont(f font.Face) {
	if f != nil {
		c.face = f
	}
}

func (c *Canvas) Font() font.Face { return c.face }

func (c *Canvas) SetTextColor(idx uint8) { c.ink = idx }

// SetCursor places the text origin; y is the baseline.
func (c *Canvas) SetCursor(x, y int) { c.cursor = image.Pt(x, y) }

func (c *Canvas) Cursor() image.Point { return c.cursor }

// TextBounds returns the ink box of s relative to the cursor.
func (c *Canvas) TextBounds(s string) image.Rectangle {
	b, _ := font.BoundString(c.face, s)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}

// Advance is how far Print(s) moves the cursor.
func (c *Canvas) Advance(s string) int {
	return font.MeasureString(c.face, s).Round()
}

// Print draws s at the cursor and moves the cursor past it.
func (c *Canvas) Print(s string) {
	r := c.TextBounds(s)
	if !r.Empty() && r.Add(c.cursor).Overlaps(c.band.Rect) {
		mask := image.NewAlpha(r)
		d := font.Drawer{
			Dst:  mask,
			Src:  image.Opaque,
			Face: c.face,
			Dot:  fixed.P(0, 0),
		}
		d.DrawString(s)
		c.DrawBitmap(c.cursor.X+r.Min.X, c.cursor.Y+r.Min.Y, mask, c.ink)
	}
	c.cursor.X += c.Advance(s)
}

// PrintFloat prints v with a fixed number of decimals.
func (c *Canvas) PrintFloat(v float64, decimals int) {
	c.Print(strconv.FormatFloat(v, 'f', decimals, 64))
}
