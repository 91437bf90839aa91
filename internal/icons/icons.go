// Package icons rasterizes the dashboard's weather glyphs. Shapes are laid
// out on a 64 unit grid and scaled to the requested size, so every size
// comes from the same outlines.
package icons

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/dailypush/inkdash/internal/iconmap"
)

const grid = 64

// Glyph is a two-ink icon: Accent is drawn first in the accent color, Ink
// on top of it in black.
type Glyph struct {
	Ink    *image.Alpha
	Accent *image.Alpha
}

// Set caches glyphs per size. It is not safe for concurrent use.
type Set struct {
	cache map[key]Glyph
}

type key struct {
	icon iconmap.Icon
	size int
}

func NewSet() *Set { return &Set{cache: make(map[key]Glyph)} }

// Weather returns the glyph for icon at size x size pixels.
func (s *Set) Weather(icon iconmap.Icon, size int) Glyph {
	k := key{icon, size}
	if g, ok := s.cache[k]; ok {
		return g
	}
	g := Weather(icon, size)
	s.cache[k] = g
	return g
}

// Weather rasterizes icon at size x size pixels.
func Weather(icon iconmap.Icon, size int) Glyph {
	p := newPen(size)
	ink := image.NewAlpha(image.Rect(0, 0, size, size))
	accent := image.NewAlpha(image.Rect(0, 0, size, size))

	switch icon {
	case iconmap.Sun:
		p.sun(accent, 32, 32, 12, 17, 26)
	case iconmap.SunCloud:
		p.sun(accent, 22, 22, 9, 13, 19)
		p.cloud(ink, 6, 8)
	case iconmap.Fog:
		p.cloud(ink, 0, -8)
		for _, y := range []float32{46, 53, 60} {
			p.stroke(ink, 12, y, 52, y, 3)
		}
	case iconmap.Drizzle:
		p.cloud(ink, 0, -8)
		for _, x := range []float32{20, 32, 44} {
			p.stroke(ink, x, 47, x-2, 53, 3)
		}
	case iconmap.Rain:
		p.cloud(ink, 0, -8)
		for _, x := range []float32{18, 28, 38, 48} {
			p.stroke(ink, x, 46, x-5, 60, 3)
		}
	case iconmap.Snow:
		p.cloud(ink, 0, -8)
		for _, c := range [][2]float32{{18, 50}, {32, 56}, {46, 50}} {
			p.flake(ink, c[0], c[1], 5)
		}
	case iconmap.Storm:
		p.cloud(ink, 0, -8)
		p.polygon(accent, []float32{34, 40, 24, 54, 31, 54, 27, 63, 40, 49, 33, 49, 38, 40})
	default:
		p.cloud(ink, 0, 0)
	}
	return Glyph{Ink: ink, Accent: accent}
}

// Battery returns a horizontal battery outline of w x h pixels with its
// body filled to percent.
func Battery(w, h, percent int) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	tip := max(w/12, 2)
	body := w - tip
	line := max(h/10, 2)
	fillRect(m, 0, 0, body, line)
	fillRect(m, 0, h-line, body, h)
	fillRect(m, 0, 0, line, h)
	fillRect(m, body-line, 0, body, h)
	fillRect(m, body, h/3, w, h-h/3)

	percent = min(max(percent, 0), 100)
	inner := body - 4*line
	level := inner * percent / 100
	fillRect(m, 2*line, 2*line, 2*line+level, h-2*line)
	return m
}

func fillRect(m *image.Alpha, x0, y0, x1, y1 int) {
	r := image.Rect(x0, y0, x1, y1).Intersect(m.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[m.PixOffset(x, y)] = 0xFF
		}
	}
}

type pen struct {
	size  int
	scale float32
	z     *vector.Rasterizer
}

func newPen(size int) *pen {
	return &pen{size: size, scale: float32(size) / grid, z: vector.NewRasterizer(size, size)}
}

// Each shape is rasterized on its own and composited with Over, so
// overlapping outlines never cancel regardless of their winding.
func (p *pen) fill(dst *image.Alpha, path func(z *vector.Rasterizer, s float32)) {
	p.z.Reset(p.size, p.size)
	path(p.z, p.scale)
	p.z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
}

func (p *pen) circle(dst *image.Alpha, cx, cy, r float32) {
	p.fill(dst, func(z *vector.Rasterizer, s float32) {
		cx, cy, r := cx*s, cy*s, r*s
		k := r * 0.5522847
		z.MoveTo(cx+r, cy)
		z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
		z.ClosePath()
	})
}

func (p *pen) polygon(dst *image.Alpha, pts []float32) {
	if len(pts) < 6 {
		return
	}
	p.fill(dst, func(z *vector.Rasterizer, s float32) {
		z.MoveTo(pts[0]*s, pts[1]*s)
		for i := 2; i+1 < len(pts); i += 2 {
			z.LineTo(pts[i]*s, pts[i+1]*s)
		}
		z.ClosePath()
	})
}

func (p *pen) stroke(dst *image.Alpha, x0, y0, x1, y1, width float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	p.polygon(dst, []float32{x0 + nx, y0 + ny, x1 + nx, y1 + ny, x1 - nx, y1 - ny, x0 - nx, y0 - ny})
}

func (p *pen) sun(dst *image.Alpha, cx, cy, r, r0, r1 float32) {
	p.circle(dst, cx, cy, r)
	for i := 0; i < 8; i++ {
		a := float64(i) * math.Pi / 4
		c, s := float32(math.Cos(a)), float32(math.Sin(a))
		p.stroke(dst, cx+c*r0, cy+s*r0, cx+c*r1, cy+s*r1, 3)
	}
}

func (p *pen) cloud(dst *image.Alpha, ox, oy float32) {
	p.circle(dst, 20+ox, 38+oy, 10)
	p.circle(dst, 33+ox, 30+oy, 13)
	p.circle(dst, 46+ox, 39+oy, 9)
	p.polygon(dst, []float32{20 + ox, 38 + oy, 46 + ox, 38 + oy, 46 + ox, 48 + oy, 20 + ox, 48 + oy})
}

func (p *pen) flake(dst *image.Alpha, cx, cy, r float32) {
	for i := 0; i < 3; i++ {
		a := float64(i) * math.Pi / 3
		c, s := float32(math.Cos(a))*r, float32(math.Sin(a))*r
		p.stroke(dst, cx-c, cy-s, cx+c, cy+s, 2)
	}
}
