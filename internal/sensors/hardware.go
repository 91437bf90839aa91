package sensors

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
)

// OpenClimate binds a BME280 at addr on bus.
func OpenClimate(bus i2c.Bus, addr uint16, offset float64) (*Climate, func() error, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("bmxx80.NewI2C: %w", err)
	}
	return NewClimate(dev, offset), dev.Halt, nil
}

// OpenBattery binds channel 0 of an ADS1115 at addr on bus and the divider
// enable line.
func OpenBattery(bus i2c.Bus, addr uint16, enable gpio.PinOut, cfg BatteryConfig) (*Battery, func() error, error) {
	if enable == nil {
		return nil, nil, errors.New("battery enable pin not found")
	}
	if err := enable.Out(gpio.Low); err != nil {
		return nil, nil, fmt.Errorf("battery enable pin: %w", err)
	}
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, nil, fmt.Errorf("ads1x15.NewADS1115: %w", err)
	}
	pin, err := adc.PinForChannel(ads1x15.Channel0, 4096*physic.MilliVolt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		_ = adc.Halt()
		return nil, nil, fmt.Errorf("ads1x15 channel 0: %w", err)
	}
	closeFn := func() error {
		return errors.Join(pin.Halt(), adc.Halt())
	}
	return NewBattery(enable, pin, cfg, nil), closeFn, nil
}
