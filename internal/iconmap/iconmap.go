// Package iconmap turns raw provider codes and sensor values into the small
// enumerations the dashboard draws.
package iconmap

import "math"

// Icon identifies one of the weather glyphs the renderer knows how to draw.
type Icon int

const (
	Sun Icon = iota
	SunCloud
	Cloud
	Fog
	Drizzle
	Rain
	Snow
	Storm
)

var iconNames = [...]string{"sun", "sun-cloud", "cloud", "fog", "drizzle", "rain", "snow", "storm"}

func (i Icon) String() string {
	if i < 0 || int(i) >= len(iconNames) {
		return "unknown"
	}
	return iconNames[i]
}

// WeatherIcon maps a WMO weather interpretation code (as served by
// Open-Meteo) to an icon. Unknown codes fall back to Cloud.
func WeatherIcon(code int) Icon {
	switch {
	case code == 0:
		return Sun
	case code == 1 || code == 2:
		return SunCloud
	case code == 3:
		return Cloud
	case code == 45 || code == 48:
		return Fog
	case code >= 51 && code <= 57:
		return Drizzle
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return Rain
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return Snow
	case code == 95 || code == 96 || code == 99:
		return Storm
	default:
		return Cloud
	}
}

const percentEpsilon = 1e-9

// BatteryPercent maps voltage linearly onto [minV, maxV] and clamps the
// result to 0..100, rounding down to a whole percent. A tolerance of 1e-9
// absorbs float error so that 3.3 on [3, 4] is 30, not 29. A degenerate
// range yields 0.
func BatteryPercent(voltage, minV, maxV float64) int {
	if maxV <= minV {
		return 0
	}
	if voltage <= minV {
		return 0
	}
	if voltage >= maxV {
		return 100
	}
	return int(math.Floor((voltage-minV)*100/(maxV-minV) + percentEpsilon))
}
