package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/dailypush/inkdash/internal/app"
	"github.com/dailypush/inkdash/internal/config"
	"github.com/dailypush/inkdash/internal/epd"
	"github.com/dailypush/inkdash/internal/fetch"
	"github.com/dailypush/inkdash/internal/layout"
	"github.com/dailypush/inkdash/internal/locale"
	"github.com/dailypush/inkdash/internal/logging"
	"github.com/dailypush/inkdash/internal/model"
	"github.com/dailypush/inkdash/internal/network"
	"github.com/dailypush/inkdash/internal/power"
	"github.com/dailypush/inkdash/internal/sensors"
	"github.com/dailypush/inkdash/internal/telemetry"
)

var version = "dev"
var appName = "inkdash"

func main() {
	configPath := flag.String("config", "", "settings file path (JSON)")
	preview := flag.String("preview", "", "write frames to this .png or .bmp file instead of the panel")
	once := flag.Bool("once", false, "run a single cycle and exit")
	writeConfig := flag.String("write-config", "", "write the effective settings to this file and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *preview != "" {
		cfg.Display.Driver = "png"
		cfg.Display.PreviewPath = *preview
	}
	if *writeConfig != "" {
		if err := config.Save(*writeConfig, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
		"display", cfg.Display.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, app.ErrRestart) {
			slog.Error("network unavailable, exiting for restart", "err", err)
		} else {
			slog.Error("run failed", "err", err)
		}
		os.Exit(1)
	}

	slog.Info("shutting down")
}

func run(ctx context.Context, cfg config.Config, once bool) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init: %w", err)
	}

	loc := locale.Default
	if cfg.Locale != "" {
		l, ok := locale.Lookup(cfg.Locale)
		if !ok {
			return fmt.Errorf("unknown locale %q", cfg.Locale)
		}
		loc = l
	}

	display, closeDisplay, err := openDisplay(cfg.Display)
	if err != nil {
		return err
	}
	defer closeDisplay()

	climate, battery, closeSensors := openSensors(cfg)
	defer closeSensors()

	wlan := network.NewInterface(cfg.WiFi.Interface, cfg.WiFi.SSID, cfg.WiFi.Password, slog.Default())
	fetcher := fetch.NewClient(fetch.Options{
		ForecastURL:        cfg.ForecastURL(),
		HomeAssistantURL:   cfg.HomeAssistant.URL,
		HomeAssistantToken: cfg.HomeAssistant.Token,
		Timeout:            cfg.HTTPTimeout.Duration,
		Link:               wlan,
	})

	button := gpioreg.ByName(cfg.WakePin)
	if button == nil {
		slog.Warn("wake button unavailable, waking on the timer only", "pin", cfg.WakePin)
	}
	sleeper := power.NewSleeper(button, power.Opts{Interval: cfg.WakeInterval.Duration})

	var publisher interface {
		app.Publisher
		Disconnect()
	} = telemetry.Nop{}
	if cfg.MQTT.Broker != "" {
		publisher = telemetry.NewClient(telemetry.Options{
			Broker:   cfg.MQTT.Broker,
			Port:     cfg.MQTT.Port,
			ClientID: cfg.MQTT.ClientID,
			DeviceID: cfg.DeviceID,
		})
	}
	defer publisher.Disconnect()

	layoutOpts, err := layout.DefaultOptions()
	if err != nil {
		return err
	}
	layoutOpts.Locale = loc
	layoutOpts.UnavailableAsZero = cfg.Display.UnavailableAsZero

	dev := app.New(app.Deps{
		Climate:   climate,
		Battery:   battery,
		Fetcher:   fetcher,
		Display:   display,
		Network:   wlan,
		Sleeper:   sleeper,
		Publisher: publisher,
	}, app.Settings{
		OutdoorEntity:         cfg.HomeAssistant.OutdoorEntity,
		OutdoorHumidityEntity: cfg.HomeAssistant.OutdoorHumidityEntity,
		GreenhouseEntity:      cfg.HomeAssistant.GreenhouseEntity,
		BTCURL:                cfg.Prices.BTCURL,
		ETHURL:                cfg.Prices.ETHURL,
		PageHeight:            cfg.Display.PageHeight,
		Layout:                layoutOpts,
	})

	if once {
		_, err := dev.Once(ctx)
		return err
	}
	return dev.Run(ctx)
}

func openDisplay(cfg config.Display) (app.Display, func(), error) {
	if cfg.Driver == "png" {
		slog.Info("writing frames to file", "path", cfg.PreviewPath)
		return epd.NewPreview(cfg.PreviewPath), func() {}, nil
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, nil, fmt.Errorf("open spi %q: %w", cfg.SPIPort, err)
	}
	dc, rst, busy := gpioreg.ByName(cfg.DCPin), gpioreg.ByName(cfg.RSTPin), gpioreg.ByName(cfg.BusyPin)
	for _, p := range []struct {
		name string
		pin  gpio.PinIO
	}{{cfg.DCPin, dc}, {cfg.RSTPin, rst}, {cfg.BusyPin, busy}} {
		if p.pin == nil {
			port.Close()
			return nil, nil, fmt.Errorf("epd pin %s not found", p.name)
		}
	}
	dev, err := epd.NewSPI(port, dc, rst, busy, nil)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	return dev, func() {
		if err := dev.Halt(); err != nil {
			slog.Warn("display halt failed", "err", err)
		}
		port.Close()
	}, nil
}

type missingClimate struct{ err error }

func (m missingClimate) Read() (model.Climate, error) { return model.Climate{}, m.err }

type missingBattery struct{ err error }

func (m missingBattery) Read() (model.BatteryState, error) { return model.BatteryState{}, m.err }

// openSensors binds the BME280 and the battery ADC. A sensor that cannot be
// opened reads as failed on every cycle instead of stopping the dashboard.
func openSensors(cfg config.Config) (app.ClimateReader, app.BatteryReader, func()) {
	bus, err := i2creg.Open(cfg.Climate.I2CBus)
	if err != nil {
		slog.Warn("i2c bus unavailable", "bus", cfg.Climate.I2CBus, "err", err)
		err = &sensors.SensorError{Sensor: "i2c", Err: err}
		return missingClimate{err}, missingBattery{err}, func() {}
	}

	var closers []func() error
	var climate app.ClimateReader
	if c, closeFn, err := sensors.OpenClimate(bus, cfg.Climate.BME280Address, cfg.Climate.TempOffset); err != nil {
		slog.Warn("climate sensor unavailable", "err", err)
		climate = missingClimate{&sensors.SensorError{Sensor: "bme280", Err: err}}
	} else {
		climate = c
		closers = append(closers, closeFn)
	}

	var battery app.BatteryReader
	enable := gpioreg.ByName(cfg.Battery.EnablePin)
	b, closeFn, err := sensors.OpenBattery(bus, cfg.Battery.ADCAddress, enable, sensors.BatteryConfig{
		MinVoltage: cfg.Battery.MinVoltage,
		MaxVoltage: cfg.Battery.MaxVoltage,
		Divider:    cfg.Battery.Divider,
		Settle:     cfg.Battery.Settle.Duration,
	})
	if err != nil {
		slog.Warn("battery monitor unavailable", "err", err)
		battery = missingBattery{&sensors.SensorError{Sensor: "battery", Err: err}}
	} else {
		battery = b
		closers = append(closers, closeFn)
	}

	return climate, battery, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("sensor halt failed", "err", err)
			}
		}
		bus.Close()
	}
}
