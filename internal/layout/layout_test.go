package layout

import (
	"bytes"
	"image"
	"testing"

	"github.com/dailypush/inkdash/internal/canvas"
	"github.com/dailypush/inkdash/internal/icons"
	"github.com/dailypush/inkdash/internal/locale"
	"github.com/dailypush/inkdash/internal/model"
)

const width, height = 800, 480

func fixture() *model.Cycle {
	return &model.Cycle{
		Wake:    model.WakeTimer,
		Battery: model.BatteryState{Voltage: 3.92, Percentage: 76, Valid: true},
		Env: model.EnvironmentalReadings{
			Indoor:          model.Climate{Temperature: 21.5, Humidity: 42.5, Valid: true},
			Outdoor:         model.Available(12.7),
			OutdoorHumidity: model.Available(81),
			Greenhouse:      model.Unavailable(),
		},
		Prices: model.MarketPrices{
			BTC: model.Price{USD: 61235, Valid: true},
			ETH: model.Price{USD: 2411, Valid: true},
		},
		Weather: model.Weather{
			Current: model.CurrentReading{Timestamp: "2025-10-04 13:45", Temperature: 15, WeatherCode: 2},
			Days: [model.ForecastDays]model.ForecastSample{
				{DayOffset: 0, MinTemp: 8, MaxTemp: 16, WeatherCode: 3},
				{DayOffset: 1, MinTemp: 7, MaxTemp: 13, WeatherCode: 61},
				{DayOffset: 2, MinTemp: 6, MaxTemp: 18, WeatherCode: 0},
				{DayOffset: 3, MinTemp: 11, MaxTemp: 20, WeatherCode: 95},
				{DayOffset: 4, MinTemp: -3, MaxTemp: 3, WeatherCode: 71},
			},
		},
		WeatherOK: true,
		Today:     6,
		Date:      "Saturday 04 October",
		UpdatedAt: "13:45",
	}
}

var testOpts Options

func opts(t *testing.T) Options {
	t.Helper()
	if testOpts.Faces == nil {
		o, err := DefaultOptions()
		if err != nil {
			t.Fatalf("DefaultOptions: %v", err)
		}
		o.Locale = locale.English
		testOpts = o
	}
	return testOpts
}

func paint(t *testing.T, cy *model.Cycle, o Options, pageHeight int) *canvas.FrameSink {
	t.Helper()
	sink := canvas.NewFrameSink(width, height)
	c := canvas.New(width, height, pageHeight, sink)
	if err := Paint(c, cy, o); err != nil {
		t.Fatalf("Paint: %v", err)
	}
	return sink
}

func interior(b Box) image.Rectangle {
	return image.Rect(b.X+2, b.Top(), b.X+b.W-2, b.Y+b.H-2)
}

func TestPanelsTileTheScreen(t *testing.T) {
	p := NewPanels(locale.English)
	area := 0
	all := p.All()
	for i, b := range all {
		if !b.Rect().In(image.Rect(0, 0, width, height)) {
			t.Errorf("panel %q %v outside the screen", b.Title, b.Rect())
		}
		for _, o := range all[i+1:] {
			if b.Rect().Overlaps(o.Rect()) {
				t.Errorf("panels %q and %q overlap", b.Title, o.Title)
			}
		}
		area += b.W * b.H
	}
	if area != width*height {
		t.Errorf("panels cover %d pixels; want %d", area, width*height)
	}
	if p.Forecast.Title != "Forecast" {
		t.Errorf("forecast title = %q", p.Forecast.Title)
	}
}

func TestPaintPages(t *testing.T) {
	sink := paint(t, fixture(), opts(t), 60)
	if sink.Pages != 8 {
		t.Errorf("pages = %d; want 8", sink.Pages)
	}
	if sink.Refreshes != 1 {
		t.Errorf("refreshes = %d; want 1", sink.Refreshes)
	}
}

func TestPaintIsIdempotent(t *testing.T) {
	a := paint(t, fixture(), opts(t), 60)
	b := paint(t, fixture(), opts(t), 60)
	if !bytes.Equal(a.Frame.Pix, b.Frame.Pix) {
		t.Fatal("same cycle painted twice produced different frames")
	}
}

func TestPagingDoesNotChangeOutput(t *testing.T) {
	paged := paint(t, fixture(), opts(t), 48)
	whole := paint(t, fixture(), opts(t), 0)
	if !bytes.Equal(paged.Frame.Pix, whole.Frame.Pix) {
		t.Fatal("paged frame differs from single-page frame")
	}
}

func TestFrames(t *testing.T) {
	sink := paint(t, fixture(), opts(t), 60)
	for _, b := range NewPanels(locale.English).All() {
		if got := sink.Frame.ColorIndexAt(b.X+4, b.Y+4); got != canvas.Red {
			t.Errorf("%s title bar pixel = %d; want red", b.Title, got)
		}
		if got := sink.Frame.ColorIndexAt(b.X, b.Y+b.H/2); got != canvas.Black {
			t.Errorf("%s border pixel = %d; want black", b.Title, got)
		}
		bar := image.Rect(b.X+2, b.Y+2, b.X+b.W-2, b.Y+titleHeight)
		if sink.Count(bar, canvas.White) == 0 {
			t.Errorf("%s title text missing", b.Title)
		}
	}
}

func TestContentDrawn(t *testing.T) {
	sink := paint(t, fixture(), opts(t), 60)
	for _, b := range NewPanels(locale.English).All() {
		if sink.Count(interior(b), canvas.Black)+sink.Count(interior(b), canvas.Red) == 0 {
			t.Errorf("%s panel is empty", b.Title)
		}
	}
}

func TestWeatherFailureLeavesPanelsEmpty(t *testing.T) {
	cy := fixture()
	cy.WeatherOK = false
	sink := paint(t, cy, opts(t), 60)

	p := NewPanels(locale.English)
	for _, b := range []Box{p.Current, p.Forecast} {
		r := interior(b)
		if n := sink.Count(r, canvas.Black) + sink.Count(r, canvas.Red); n != 0 {
			t.Errorf("%s panel has %d inked pixels; want frame only", b.Title, n)
		}
		if got := sink.Frame.ColorIndexAt(b.X+4, b.Y+4); got != canvas.Red {
			t.Errorf("%s title bar missing", b.Title)
		}
	}
	if sink.Count(interior(p.Battery), canvas.Black) == 0 {
		t.Error("battery panel not drawn")
	}
}

func TestUnavailableValues(t *testing.T) {
	tests := []struct {
		name     string
		asZero   bool
		m        model.Measurement
		decimals int
		want     string
	}{
		{"valid", false, model.Available(21.46), 1, "21.5"},
		{"valid zero", false, model.Available(0), 1, "0.0"},
		{"missing", false, model.Unavailable(), 1, "--"},
		{"missing as zero", true, model.Unavailable(), 1, "0.0"},
		{"missing as zero integer", true, model.Unavailable(), 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := renderer{opts: Options{UnavailableAsZero: tt.asZero}}
			if got := r.value(tt.m, tt.decimals); got != tt.want {
				t.Errorf("value() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestUnavailableAsZeroChangesSensorPanel(t *testing.T) {
	cy := fixture()
	cy.Env.Outdoor = model.Unavailable()
	cy.Env.OutdoorHumidity = model.Unavailable()

	o := opts(t)
	dashes := paint(t, cy, o, 60)
	o.UnavailableAsZero = true
	zeros := paint(t, cy, o, 60)

	box := interior(NewPanels(locale.English).Sensors)
	if dashes.Count(box, canvas.Black) == zeros.Count(box, canvas.Black) {
		t.Error("sensor panel identical with and without UnavailableAsZero")
	}
	crypto := interior(NewPanels(locale.English).Crypto)
	if dashes.Count(crypto, canvas.Black) != zeros.Count(crypto, canvas.Black) {
		t.Error("valid prices rendered differently")
	}
}

func TestBatteryPanel(t *testing.T) {
	box := interior(NewPanels(locale.English).Battery)
	tests := []struct {
		name    string
		st      model.BatteryState
		wantRed bool
	}{
		{"healthy", model.BatteryState{Voltage: 3.92, Percentage: 76, Valid: true}, false},
		{"low", model.BatteryState{Voltage: 3.1, Percentage: 8, Valid: true}, true},
		{"unavailable", model.BatteryState{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cy := fixture()
			cy.Battery = tt.st
			sink := paint(t, cy, opts(t), 60)
			if red := sink.Count(box, canvas.Red) > 0; red != tt.wantRed {
				t.Errorf("low battery alarm drawn = %v; want %v", red, tt.wantRed)
			}
			if sink.Count(box, canvas.Black) == 0 {
				t.Error("battery panel empty")
			}
		})
	}

	cy := fixture()
	cy.Battery = model.BatteryState{}
	o := opts(t)
	dashes := paint(t, cy, o, 60)
	o.UnavailableAsZero = true
	zeros := paint(t, cy, o, 60)
	if dashes.Count(box, canvas.Black) == zeros.Count(box, canvas.Black) {
		t.Error("battery panel identical with and without UnavailableAsZero")
	}
}

func TestPrice(t *testing.T) {
	r := renderer{}
	tests := []struct {
		p    model.Price
		want string
	}{
		{model.Price{USD: 61235, Valid: true}, "$61,235"},
		{model.Price{USD: 999, Valid: true}, "$999"},
		{model.Price{USD: 1000000, Valid: true}, "$1,000,000"},
		{model.Price{}, "--"},
	}
	for _, tt := range tests {
		if got := r.price(tt.p); got != tt.want {
			t.Errorf("price(%+v) = %q; want %q", tt.p, got, tt.want)
		}
	}
	if got := groupThousands(-4200); got != "-4,200" {
		t.Errorf("groupThousands(-4200) = %q", got)
	}
}

func TestRenderWithoutOptions(t *testing.T) {
	sink := canvas.NewFrameSink(width, height)
	c := canvas.New(width, height, 0, sink)
	c.FillScreen(canvas.White)
	Render(c, fixture(), Options{Icons: icons.NewSet()})
	if _, err := c.NextPage(); err != nil {
		t.Fatal(err)
	}
	if sink.Count(sink.Frame.Rect, canvas.Red) == 0 {
		t.Fatal("nothing rendered with default options")
	}
}
