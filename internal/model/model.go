// Package model holds the values gathered during one wake cycle. Nothing in
// here outlives the cycle that built it.
package model

import (
	"time"

	"github.com/dailypush/inkdash/internal/iconmap"
)

// ForecastDays is the number of daily samples served per forecast, today
// included.
const ForecastDays = 5

// Measurement is a reading that may be missing. The zero value is
// unavailable.
type Measurement struct {
	Value float64
	Valid bool
}

func Available(v float64) Measurement { return Measurement{Value: v, Valid: true} }

func Unavailable() Measurement { return Measurement{} }

// Price is a spot price in whole US dollars.
type Price struct {
	USD   int
	Valid bool
}

type Climate struct {
	Temperature float64
	Humidity    float64
	Valid       bool
}

type ForecastSample struct {
	DayOffset   int
	MinTemp     int
	MaxTemp     int
	WeatherCode int
}

func (s ForecastSample) Icon() iconmap.Icon { return iconmap.WeatherIcon(s.WeatherCode) }

type CurrentReading struct {
	Timestamp   string
	Temperature int
	WeatherCode int
}

func (c CurrentReading) Icon() iconmap.Icon { return iconmap.WeatherIcon(c.WeatherCode) }

type Weather struct {
	Current CurrentReading
	Days    [ForecastDays]ForecastSample
}

type EnvironmentalReadings struct {
	Indoor          Climate
	Outdoor         Measurement
	OutdoorHumidity Measurement
	Greenhouse      Measurement
}

type MarketPrices struct {
	BTC Price
	ETH Price
}

// BatteryState is the cell reading. The zero value is unavailable.
type BatteryState struct {
	Voltage    float64
	Percentage int
	Valid      bool
}

// WakeSource records which armed event ended the previous sleep.
type WakeSource int

const (
	WakeUnknown WakeSource = iota
	WakeButton
	WakeTimer
)

func (w WakeSource) String() string {
	switch w {
	case WakeButton:
		return "button"
	case WakeTimer:
		return "timer"
	default:
		return "cold-boot"
	}
}

// Cycle is everything one wake cycle measured and fetched. The orchestrator
// builds a fresh one per cycle and hands it to the renderer.
type Cycle struct {
	Wake    WakeSource
	Started time.Time

	Battery BatteryState
	Env     EnvironmentalReadings
	Prices  MarketPrices

	Weather   Weather
	WeatherOK bool

	// Today is the weekday index (0 = Sunday) of the forecast's current date.
	Today     int
	Date      string
	UpdatedAt string
}
