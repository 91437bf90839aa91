package canvas

import "image"

func (c *Canvas) set(x, y int, idx uint8) {
	c.band.SetColorIndex(x, y, idx)
}

// FillScreen paints the current band.
func (c *Canvas) FillScreen(idx uint8) {
	for i := range c.band.Pix {
		c.band.Pix[i] = idx
	}
}

// FillRect fills the w x h rectangle whose top-left corner is (x, y).
func (c *Canvas) FillRect(x, y, w, h int, idx uint8) {
	r := image.Rect(x, y, x+w, y+h).Intersect(c.band.Rect)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		off := c.band.PixOffset(r.Min.X, py)
		for i := 0; i < r.Dx(); i++ {
			c.band.Pix[off+i] = idx
		}
	}
}

// DrawRect outlines the w x h rectangle whose top-left corner is (x, y).
func (c *Canvas) DrawRect(x, y, w, h int, idx uint8) {
	if w <= 0 || h <= 0 {
		return
	}
	c.FillRect(x, y, w, 1, idx)
	c.FillRect(x, y+h-1, w, 1, idx)
	c.FillRect(x, y, 1, h, idx)
	c.FillRect(x+w-1, y, 1, h, idx)
}

// Line draws a one pixel line between both end points, inclusive.
func (c *Canvas) Line(x0, y0, x1, y1 int, idx uint8) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		c.set(x0, y0, idx)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Circle draws a circle of radius r, filled or as a one pixel ring.
func (c *Canvas) Circle(cx, cy, r int, idx uint8, fill bool) {
	if !image.Rect(cx-r, cy-r, cx+r+1, cy+r+1).Overlaps(c.band.Rect) {
		return
	}
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			d := x*x + y*y
			if fill {
				if d <= r*r {
					c.set(cx+x, cy+y, idx)
				}
			} else if d >= (r-1)*(r-1) && d <= r*r {
				c.set(cx+x, cy+y, idx)
			}
		}
	}
}

// DrawBitmap stamps mask with its top-left corner at (x, y). Pixels with
// at least half coverage take the color; the rest are left untouched.
func (c *Canvas) DrawBitmap(x, y int, mask *image.Alpha, idx uint8) {
	if mask == nil {
		return
	}
	mb := mask.Bounds()
	dst := image.Rect(x, y, x+mb.Dx(), y+mb.Dy()).Intersect(c.band.Rect)
	for py := dst.Min.Y; py < dst.Max.Y; py++ {
		for px := dst.Min.X; px < dst.Max.X; px++ {
			a := mask.AlphaAt(mb.Min.X+px-x, mb.Min.Y+py-y).A
			if a >= 0x80 {
				c.band.SetColorIndex(px, py, idx)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
