// Package sensors reads the two local sensors: the battery voltage through
// a switched divider on an ADC, and the onboard BME280.
package sensors

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/dailypush/inkdash/internal/iconmap"
	"github.com/dailypush/inkdash/internal/model"
)

// MinSettle is the shortest delay the divider needs after being enabled.
const MinSettle = 5 * time.Millisecond

type SensorError struct {
	Sensor string
	Err    error
}

func (e *SensorError) Error() string { return fmt.Sprintf("sensor %s: %v", e.Sensor, e.Err) }

func (e *SensorError) Unwrap() error { return e.Err }

// ADC is the part of analog.PinADC the battery reader needs.
type ADC interface {
	Read() (analog.Sample, error)
}

type BatteryConfig struct {
	MinVoltage float64
	MaxVoltage float64
	// Divider scales the ADC reading back to the cell voltage.
	Divider float64
	Settle  time.Duration
}

type Battery struct {
	enable gpio.PinOut
	adc    ADC
	cfg    BatteryConfig
	clock  clockwork.Clock
}

// NewBattery returns a reader that powers the divider through enable only
// for the duration of a read. A nil clock uses the wall clock.
func NewBattery(enable gpio.PinOut, adc ADC, cfg BatteryConfig, clock clockwork.Clock) *Battery {
	if cfg.Settle < MinSettle {
		cfg.Settle = MinSettle
	}
	if cfg.Divider == 0 {
		cfg.Divider = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Battery{enable: enable, adc: adc, cfg: cfg, clock: clock}
}

// Read samples the cell voltage. The enable line is driven low again on
// every return path.
func (b *Battery) Read() (state model.BatteryState, err error) {
	if err := b.enable.Out(gpio.High); err != nil {
		_ = b.enable.Out(gpio.Low)
		return model.BatteryState{}, &SensorError{Sensor: "battery", Err: fmt.Errorf("enable: %w", err)}
	}
	defer func() {
		if offErr := b.enable.Out(gpio.Low); offErr != nil && err == nil {
			state, err = model.BatteryState{}, &SensorError{Sensor: "battery", Err: fmt.Errorf("disable: %w", offErr)}
		}
	}()

	b.clock.Sleep(b.cfg.Settle)
	s, err := b.adc.Read()
	if err != nil {
		return model.BatteryState{}, &SensorError{Sensor: "battery", Err: err}
	}
	v := float64(s.V) / float64(physic.Volt) * b.cfg.Divider
	return model.BatteryState{
		Voltage:    v,
		Percentage: iconmap.BatteryPercent(v, b.cfg.MinVoltage, b.cfg.MaxVoltage),
		Valid:      true,
	}, nil
}

// Sensor is satisfied by *bmxx80.Dev.
type Sensor interface {
	Sense(e *physic.Env) error
}

type Climate struct {
	dev    Sensor
	offset float64
}

// NewClimate applies offset (°C) to every temperature read; the sensor sits
// next to the board and reads warm.
func NewClimate(dev Sensor, offset float64) *Climate {
	return &Climate{dev: dev, offset: offset}
}

// Read takes one measurement. On failure the returned value is marked
// invalid and must not be shown as a number.
func (c *Climate) Read() (model.Climate, error) {
	var env physic.Env
	if err := c.dev.Sense(&env); err != nil {
		return model.Climate{}, &SensorError{Sensor: "bme280", Err: err}
	}
	return model.Climate{
		Temperature: env.Temperature.Celsius() + c.offset,
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
		Valid:       true,
	}, nil
}
