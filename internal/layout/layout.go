// Package layout draws the dashboard's five fixed panels onto a paged
// canvas. Rendering only reads the cycle it is given, so drawing the same
// cycle twice yields the same pixels.
package layout

import (
	"fmt"
	"image"
	"strconv"

	"github.com/dailypush/inkdash/internal/canvas"
	"github.com/dailypush/inkdash/internal/datefmt"
	"github.com/dailypush/inkdash/internal/icons"
	"github.com/dailypush/inkdash/internal/locale"
	"github.com/dailypush/inkdash/internal/model"
)

const (
	titleHeight = 32

	currentIconSize  = 96
	forecastIconSize = 48

	// forecastColumns are the days after today shown in the forecast panel.
	forecastColumns = 4

	unavailable = "--"

	// lowBattery is the percentage at or below which the gauge turns red.
	lowBattery = 15
)

// Box is one fixed panel of the dashboard.
type Box struct {
	X, Y, W, H int
	Title      string
}

func (b Box) Rect() image.Rectangle { return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H) }

func (b Box) CenterX() int { return b.X + b.W/2 }

// Top is the first row below the title bar.
func (b Box) Top() int { return b.Y + titleHeight }

// Panels is the 800x480 dashboard geometry.
type Panels struct {
	Current  Box
	Forecast Box
	Sensors  Box
	Crypto   Box
	Battery  Box
}

func NewPanels(loc locale.Table) Panels {
	return Panels{
		Current:  Box{X: 0, Y: 0, W: 320, H: 240, Title: loc.Today},
		Forecast: Box{X: 320, Y: 0, W: 480, H: 240, Title: loc.Forecast},
		Sensors:  Box{X: 0, Y: 240, W: 320, H: 240, Title: loc.Sensors},
		Crypto:   Box{X: 320, Y: 240, W: 240, H: 240, Title: loc.Crypto},
		Battery:  Box{X: 560, Y: 240, W: 240, H: 240, Title: loc.Battery},
	}
}

func (p Panels) All() []Box {
	return []Box{p.Current, p.Forecast, p.Sensors, p.Crypto, p.Battery}
}

type Options struct {
	Locale locale.Table
	Faces  *canvas.Faces
	Icons  *icons.Set
	// UnavailableAsZero prints missing readings as zero instead of "--".
	UnavailableAsZero bool
}

// DefaultOptions loads the fonts and uses the build's default locale.
func DefaultOptions() (Options, error) {
	faces, err := canvas.LoadFaces()
	if err != nil {
		return Options{}, err
	}
	return Options{Locale: locale.Default, Faces: faces, Icons: icons.NewSet()}, nil
}

func (o Options) resolve() Options {
	if o.Locale.Name == "" {
		o.Locale = locale.Default
	}
	if o.Faces == nil {
		if f, err := canvas.LoadFaces(); err == nil {
			o.Faces = f
		} else {
			o.Faces = canvas.BasicFaces()
		}
	}
	if o.Icons == nil {
		o.Icons = icons.NewSet()
	}
	return o
}

// Paint runs the full paged repaint of cy on c.
func Paint(c *canvas.Canvas, cy *model.Cycle, opts Options) error {
	opts = opts.resolve()
	c.FirstPage()
	for page := 0; ; page++ {
		c.FillScreen(canvas.White)
		Render(c, cy, opts)
		more, err := c.NextPage()
		if err != nil {
			return fmt.Errorf("paint page %d: %w", page, err)
		}
		if !more {
			return nil
		}
	}
}

// Render draws every panel into the canvas' current page.
func Render(c *canvas.Canvas, cy *model.Cycle, opts Options) {
	opts = opts.resolve()
	r := renderer{c: c, cy: cy, opts: opts, faces: opts.Faces}
	p := NewPanels(opts.Locale)

	for _, b := range p.All() {
		r.frame(b)
	}
	if cy.WeatherOK {
		r.current(p.Current)
		r.forecast(p.Forecast)
	}
	r.sensors(p.Sensors)
	r.crypto(p.Crypto)
	r.battery(p.Battery)
}

type renderer struct {
	c     *canvas.Canvas
	cy    *model.Cycle
	opts  Options
	faces *canvas.Faces
}

// frame draws the red title bar with its white title and the black border.
func (r *renderer) frame(b Box) {
	r.c.FillRect(b.X, b.Y, b.W, titleHeight, canvas.Red)
	r.c.DrawRect(b.X, b.Y, b.W, b.H, canvas.Black)
	r.c.DrawRect(b.X+1, b.Y+1, b.W-2, b.H-2, canvas.Black)

	r.c.SetFont(r.faces.Bold)
	tb := r.c.TextBounds(b.Title)
	baseline := b.Y + (titleHeight-tb.Dy())/2 - tb.Min.Y
	r.centered(b.Title, b.CenterX(), baseline, canvas.White)
}

// centered prints s so that its ink is horizontally centered on cx and
// returns the ink box.
func (r *renderer) centered(s string, cx, baseline int, ink uint8) image.Rectangle {
	tb := r.c.TextBounds(s)
	x := cx - tb.Dx()/2 - tb.Min.X
	r.c.SetTextColor(ink)
	r.c.SetCursor(x, baseline)
	r.c.Print(s)
	return tb.Add(image.Pt(x, baseline))
}

// temperature prints s centered on cx followed by a degree mark sized to the
// current font. No mark follows the unavailable placeholder.
func (r *renderer) temperature(s string, cx, baseline int, ink uint8) {
	if s == unavailable {
		r.centered(s, cx, baseline, ink)
		return
	}
	tb := r.c.TextBounds(s)
	rad := max(tb.Dy()/8, 2)
	gap := max(rad/2, 2)
	total := tb.Dx() + gap + 2*rad + 1
	x := cx - total/2 - tb.Min.X
	r.c.SetTextColor(ink)
	r.c.SetCursor(x, baseline)
	r.c.Print(s)

	dx := x + tb.Max.X + gap + rad
	dy := baseline + tb.Min.Y + rad
	r.c.Circle(dx, dy, rad, ink, false)
	r.c.Circle(dx, dy, rad-1, ink, false)
}

func (r *renderer) value(m model.Measurement, decimals int) string {
	switch {
	case m.Valid:
		return strconv.FormatFloat(m.Value, 'f', decimals, 64)
	case r.opts.UnavailableAsZero:
		return strconv.FormatFloat(0, 'f', decimals, 64)
	default:
		return unavailable
	}
}

func (r *renderer) price(p model.Price) string {
	switch {
	case p.Valid:
		return "$" + groupThousands(p.USD)
	case r.opts.UnavailableAsZero:
		return "$0"
	default:
		return unavailable
	}
}

func (r *renderer) glyph(g icons.Glyph, x, y int) {
	r.c.DrawBitmap(x, y, g.Accent, canvas.Red)
	r.c.DrawBitmap(x, y, g.Ink, canvas.Black)
}

func (r *renderer) current(b Box) {
	cur := r.cy.Weather.Current

	r.c.SetFont(r.faces.Regular)
	r.centered(r.cy.Date, b.CenterX(), b.Top()+30, canvas.Black)

	iconY := b.Top() + 46
	r.glyph(r.opts.Icons.Weather(cur.Icon(), currentIconSize), b.X+24, iconY)

	r.c.SetFont(r.faces.Huge)
	r.temperature(strconv.Itoa(cur.Temperature), b.X+b.W*2/3+10, iconY+currentIconSize-16, canvas.Black)

	if r.cy.UpdatedAt != "" {
		r.c.SetFont(r.faces.Tiny)
		r.centered(r.opts.Locale.Updated+" "+r.cy.UpdatedAt, b.CenterX(), b.Y+b.H-10, canvas.Black)
	}
}

func (r *renderer) forecast(b Box) {
	colW := b.W / forecastColumns
	for i := 0; i < forecastColumns; i++ {
		day := r.cy.Weather.Days[i+1]
		cx := b.X + colW*i + colW/2
		if i > 0 {
			r.c.Line(b.X+colW*i, b.Top()+12, b.X+colW*i, b.Y+b.H-12, canvas.Black)
		}

		r.c.SetFont(r.faces.Bold)
		name := r.opts.Locale.ShortDays[datefmt.ForecastWeekday(r.cy.Today, day.DayOffset)]
		r.centered(name, cx, b.Top()+34, canvas.Black)

		r.glyph(r.opts.Icons.Weather(day.Icon(), forecastIconSize), cx-forecastIconSize/2, b.Top()+52)

		r.c.SetFont(r.faces.Regular)
		r.temperature(strconv.Itoa(day.MaxTemp), cx, b.Top()+136, canvas.Red)
		r.temperature(strconv.Itoa(day.MinTemp), cx, b.Top()+170, canvas.Black)
	}
}

func (r *renderer) sensors(b Box) {
	env := r.cy.Env
	indoorT, indoorH := model.Unavailable(), model.Unavailable()
	if env.Indoor.Valid {
		indoorT, indoorH = model.Available(env.Indoor.Temperature), model.Available(env.Indoor.Humidity)
	}
	rows := []struct {
		label    string
		temp     model.Measurement
		humidity *model.Measurement
	}{
		{r.opts.Locale.Indoor, indoorT, &indoorH},
		{r.opts.Locale.Outdoor, env.Outdoor, &env.OutdoorHumidity},
		{r.opts.Locale.Other, env.Greenhouse, nil},
	}

	rowH := (b.H - titleHeight) / len(rows)
	for i, row := range rows {
		top := b.Top() + rowH*i
		r.c.SetFont(r.faces.Small)
		r.c.SetTextColor(canvas.Red)
		r.c.SetCursor(b.X+12, top+22)
		r.c.Print(row.label)

		r.c.SetFont(r.faces.Regular)
		if row.humidity == nil {
			r.temperature(r.value(row.temp, 1), b.CenterX(), top+54, canvas.Black)
			continue
		}
		r.temperature(r.value(row.temp, 1), b.X+b.W/4+8, top+54, canvas.Black)
		h := r.value(*row.humidity, 1)
		if h != unavailable {
			h += "%"
		}
		r.centered(h, b.X+b.W*3/4-8, top+54, canvas.Black)
	}
}

func (r *renderer) crypto(b Box) {
	rows := []struct {
		label string
		price model.Price
	}{
		{"BTC", r.cy.Prices.BTC},
		{"ETH", r.cy.Prices.ETH},
	}
	rowH := (b.H - titleHeight) / len(rows)
	for i, row := range rows {
		top := b.Top() + rowH*i
		r.c.SetFont(r.faces.Bold)
		r.centered(row.label, b.CenterX(), top+34, canvas.Red)
		r.c.SetFont(r.faces.Large)
		r.centered(r.price(row.price), b.CenterX(), top+78, canvas.Black)
	}
}

func (r *renderer) battery(b Box) {
	st := r.cy.Battery
	const w, h = 120, 56
	ink := canvas.Black
	pct, volts := unavailable, unavailable
	switch {
	case st.Valid:
		pct = strconv.Itoa(st.Percentage) + "%"
		volts = strconv.FormatFloat(st.Voltage, 'f', 2, 64) + " V"
		if st.Percentage <= lowBattery {
			ink = canvas.Red
		}
	case r.opts.UnavailableAsZero:
		pct, volts = "0%", "0.00 V"
	}
	r.c.DrawBitmap(b.CenterX()-w/2, b.Top()+26, icons.Battery(w, h, st.Percentage), ink)

	r.c.SetFont(r.faces.Large)
	r.centered(pct, b.CenterX(), b.Top()+130, ink)

	r.c.SetFont(r.faces.Regular)
	r.centered(volts, b.CenterX(), b.Top()+170, canvas.Black)
}

// groupThousands formats n with comma separators.
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
