// Package app runs the dashboard's wake cycle: boot, gather readings,
// repaint the panel, put it to sleep, then wait for the next wake.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dailypush/inkdash/internal/canvas"
	"github.com/dailypush/inkdash/internal/datefmt"
	"github.com/dailypush/inkdash/internal/epd"
	"github.com/dailypush/inkdash/internal/icons"
	"github.com/dailypush/inkdash/internal/layout"
	"github.com/dailypush/inkdash/internal/locale"
	"github.com/dailypush/inkdash/internal/model"
	"github.com/dailypush/inkdash/internal/network"
)

// ErrRestart is returned when the device cannot reach the network at boot.
// The process should exit and be restarted from scratch.
var ErrRestart = errors.New("app: network unavailable at boot, restart required")

const (
	DefaultConnectTimeout = 15 * time.Second
	DefaultConnectPoll    = 500 * time.Millisecond

	publishTimeout = 10 * time.Second

	btcAsset = "bitcoin"
	ethAsset = "ethereum"
)

type ClimateReader interface {
	Read() (model.Climate, error)
}

type BatteryReader interface {
	Read() (model.BatteryState, error)
}

type Fetcher interface {
	Forecast(ctx context.Context) (model.Weather, error)
	NamedSensor(ctx context.Context, entityID string) (model.Measurement, error)
	SpotPrice(ctx context.Context, url, asset string) (model.Price, error)
}

// Display is a paged panel that can be initialized and put into its
// lowest-power hold.
type Display interface {
	canvas.PageSink
	Init() error
	Sleep() error
}

type Network interface {
	network.Link
	Join(ctx context.Context) error
}

type Sleeper interface {
	Arm() error
	Sleep(ctx context.Context) (model.WakeSource, error)
}

type Publisher interface {
	PublishStatus(ctx context.Context, cy *model.Cycle) error
}

// Deps are the device's collaborators. Publisher may be nil.
type Deps struct {
	Climate   ClimateReader
	Battery   BatteryReader
	Fetcher   Fetcher
	Display   Display
	Network   Network
	Sleeper   Sleeper
	Publisher Publisher

	Clock  clockwork.Clock
	Logger *slog.Logger
}

type Settings struct {
	OutdoorEntity         string
	OutdoorHumidityEntity string
	GreenhouseEntity      string
	BTCURL                string
	ETHURL                string

	PageHeight     int
	ConnectTimeout time.Duration
	ConnectPoll    time.Duration

	Layout layout.Options
}

type Device struct {
	Deps
	settings Settings
	canvas   *canvas.Canvas
	wake     model.WakeSource
}

func New(deps Deps, s Settings) *Device {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if s.ConnectTimeout <= 0 {
		s.ConnectTimeout = DefaultConnectTimeout
	}
	if s.ConnectPoll <= 0 {
		s.ConnectPoll = DefaultConnectPoll
	}
	if s.Layout.Locale.Name == "" {
		s.Layout.Locale = locale.Default
	}
	if s.Layout.Faces == nil {
		if f, err := canvas.LoadFaces(); err == nil {
			s.Layout.Faces = f
		}
	}
	if s.Layout.Icons == nil {
		s.Layout.Icons = icons.NewSet()
	}
	return &Device{
		Deps:     deps,
		settings: s,
		canvas:   canvas.New(epd.Width, epd.Height, s.PageHeight, deps.Display),
	}
}

// Run repeats boot, cycle and sleep until ctx ends or boot fails.
func (d *Device) Run(ctx context.Context) error {
	for {
		if err := d.Boot(ctx); err != nil {
			return err
		}
		cy, err := d.Cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.Logger.Error("cycle incomplete", "error", err)
		}
		if err := d.Sleep(ctx, cy); err != nil {
			return err
		}
	}
}

// Once boots, runs a single cycle and publishes its status without
// sleeping afterwards.
func (d *Device) Once(ctx context.Context) (*model.Cycle, error) {
	if err := d.Boot(ctx); err != nil {
		return nil, err
	}
	cy, err := d.Cycle(ctx)
	d.publish(ctx, cy)
	return cy, err
}

// Boot arms the wake sources, initializes the display and waits for the
// network. A network that does not come up yields ErrRestart.
func (d *Device) Boot(ctx context.Context) error {
	if err := d.Sleeper.Arm(); err != nil {
		return fmt.Errorf("arm wake sources: %w", err)
	}
	if err := d.Display.Init(); err != nil {
		return fmt.Errorf("init display: %w", err)
	}

	if d.Network.Connected() {
		return nil
	}
	start := d.Clock.Now()
	if err := d.Network.Join(ctx); err != nil {
		d.Logger.Warn("wifi join failed", "error", err)
	}
	err := network.WaitConnected(ctx, d.Network, d.Clock, d.settings.ConnectTimeout, d.settings.ConnectPoll)
	switch {
	case err == nil:
		d.Logger.Info("network connected", "duration", d.Clock.Since(start))
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %v", ErrRestart, err)
	}
}

// Cycle gathers readings and repaints the panel. A failed forecast skips
// the repaint; every other failure is logged and rendered as unavailable.
// The display is put to sleep on every return path. The returned cycle is
// never nil.
func (d *Device) Cycle(ctx context.Context) (cy *model.Cycle, err error) {
	cy = &model.Cycle{Wake: d.wake, Started: d.Clock.Now()}
	log := d.Logger.With("wake", cy.Wake.String())
	log.Info("cycle start")
	defer func() {
		if sleepErr := d.Display.Sleep(); sleepErr != nil {
			err = errors.Join(err, fmt.Errorf("display sleep: %w", sleepErr))
		}
	}()

	indoor, err := d.Climate.Read()
	if err != nil {
		log.Warn("climate read failed", "error", err)
	}
	cy.Env.Indoor = indoor

	if cy.Battery, err = d.Battery.Read(); err != nil {
		log.Warn("battery read failed", "error", err)
	}

	cy.Prices.BTC = d.price(ctx, log, d.settings.BTCURL, btcAsset)
	cy.Prices.ETH = d.price(ctx, log, d.settings.ETHURL, ethAsset)

	w, err := d.Fetcher.Forecast(ctx)
	if err != nil {
		log.Error("forecast fetch failed, skipping repaint", "error", err)
		return cy, nil
	}

	year, month, day, err := datefmt.ParseDate(w.Current.Timestamp)
	if err != nil {
		return cy, fmt.Errorf("forecast timestamp: %w", err)
	}
	cy.Weather, cy.WeatherOK = w, true
	cy.Today = datefmt.WeekdayOf(year, month, day)
	cy.Date = datefmt.FormatDate(d.settings.Layout.Locale, cy.Today, day, month-1)
	cy.UpdatedAt = datefmt.ClockOf(w.Current.Timestamp)

	cy.Env.Outdoor = d.sensor(ctx, log, d.settings.OutdoorEntity)
	cy.Env.OutdoorHumidity = d.sensor(ctx, log, d.settings.OutdoorHumidityEntity)
	cy.Env.Greenhouse = d.sensor(ctx, log, d.settings.GreenhouseEntity)

	if err := layout.Paint(d.canvas, cy, d.settings.Layout); err != nil {
		return cy, fmt.Errorf("repaint: %w", err)
	}
	log.Info("cycle rendered",
		"battery_pct", cy.Battery.Percentage,
		"date", cy.Date,
		"duration", d.Clock.Since(cy.Started),
	)
	return cy, nil
}

// Sleep publishes the cycle status, re-arms the wake sources and blocks
// until one of them fires.
func (d *Device) Sleep(ctx context.Context, cy *model.Cycle) error {
	d.publish(ctx, cy)
	if err := d.Sleeper.Arm(); err != nil {
		return fmt.Errorf("arm wake sources: %w", err)
	}
	wake, err := d.Sleeper.Sleep(ctx)
	if err != nil {
		return err
	}
	d.wake = wake
	d.Logger.Info("woke", "source", wake.String())
	return nil
}

func (d *Device) publish(ctx context.Context, cy *model.Cycle) {
	if d.Publisher == nil || cy == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := d.Publisher.PublishStatus(ctx, cy); err != nil {
		d.Logger.Warn("status publish failed", "error", err)
	}
}

func (d *Device) price(ctx context.Context, log *slog.Logger, url, asset string) model.Price {
	p, err := d.Fetcher.SpotPrice(ctx, url, asset)
	if err != nil {
		log.Warn("price fetch failed", "asset", asset, "error", err)
	}
	return p
}

func (d *Device) sensor(ctx context.Context, log *slog.Logger, entityID string) model.Measurement {
	if entityID == "" {
		return model.Unavailable()
	}
	m, err := d.Fetcher.NamedSensor(ctx, entityID)
	if err != nil {
		log.Warn("named sensor fetch failed", "entity", entityID, "error", err)
		return model.Unavailable()
	}
	return m
}
