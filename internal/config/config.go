// Package config resolves the dashboard's settings: built-in defaults, then
// an optional JSON file, then environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MinBatterySettle is the shortest divider settle time the hardware allows.
const MinBatterySettle = 5 * time.Millisecond

type Config struct {
	AppEnv   string     `json:"app_env"`
	LogLevel slog.Level `json:"log_level"`
	DeviceID string     `json:"device_id"`
	// Locale overrides the build's language when set ("en", "fr").
	Locale string `json:"locale,omitempty"`

	WiFi          WiFi          `json:"wifi"`
	Weather       Weather       `json:"weather"`
	HomeAssistant HomeAssistant `json:"home_assistant"`
	Prices        Prices        `json:"prices"`
	HTTPTimeout   Duration      `json:"http_timeout"`

	WakeInterval Duration `json:"wake_interval"`
	WakePin      string   `json:"wake_pin"`

	Battery Battery `json:"battery"`
	Climate Climate `json:"climate"`
	Display Display `json:"display"`
	MQTT    MQTT    `json:"mqtt"`
}

type WiFi struct {
	Interface string `json:"interface"`
	SSID      string `json:"ssid,omitempty"`
	Password  string `json:"password,omitempty"`
}

type Weather struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// URL replaces the Open-Meteo request built from the coordinates.
	URL string `json:"url,omitempty"`
}

type HomeAssistant struct {
	URL                   string `json:"url"`
	Token                 string `json:"token,omitempty"`
	OutdoorEntity         string `json:"outdoor_entity"`
	OutdoorHumidityEntity string `json:"outdoor_humidity_entity"`
	GreenhouseEntity      string `json:"greenhouse_entity"`
}

type Prices struct {
	BTCURL string `json:"btc_url"`
	ETHURL string `json:"eth_url"`
}

type Battery struct {
	EnablePin  string   `json:"enable_pin"`
	ADCAddress uint16   `json:"adc_address"`
	MinVoltage float64  `json:"min_voltage"`
	MaxVoltage float64  `json:"max_voltage"`
	Divider    float64  `json:"divider"`
	Settle     Duration `json:"settle"`
}

type Climate struct {
	I2CBus        string  `json:"i2c_bus"`
	BME280Address uint16  `json:"bme280_address"`
	TempOffset    float64 `json:"temp_offset"`
}

type Display struct {
	// Driver is "epd" for the panel or "png" to write PreviewPath instead.
	Driver            string `json:"driver"`
	PreviewPath       string `json:"preview_path"`
	SPIPort           string `json:"spi_port"`
	DCPin             string `json:"dc_pin"`
	RSTPin            string `json:"rst_pin"`
	BusyPin           string `json:"busy_pin"`
	PageHeight        int    `json:"page_height"`
	UnavailableAsZero bool   `json:"unavailable_as_zero"`
}

type MQTT struct {
	// Broker left empty disables status publishing.
	Broker   string `json:"broker,omitempty"`
	Port     int    `json:"port"`
	ClientID string `json:"client_id"`
}

// Duration is a time.Duration written as "10s" in JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string such as \"10s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		AppEnv:   "dev",
		LogLevel: slog.LevelInfo,
		DeviceID: "inkdash",
		WiFi:     WiFi{Interface: "wlan0"},
		Weather:  Weather{Latitude: 48.58, Longitude: 7.75},
		HomeAssistant: HomeAssistant{
			URL:                   "http://homeassistant.local:8123",
			OutdoorEntity:         "sensor.outdoor_temperature",
			OutdoorHumidityEntity: "sensor.outdoor_humidity",
			GreenhouseEntity:      "sensor.greenhouse_temperature",
		},
		Prices: Prices{
			BTCURL: "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd",
			ETHURL: "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd",
		},
		HTTPTimeout:  Duration{10 * time.Second},
		WakeInterval: Duration{60 * time.Minute},
		WakePin:      "GPIO27",
		Battery: Battery{
			EnablePin:  "GPIO22",
			ADCAddress: 0x48,
			MinVoltage: 3.0,
			MaxVoltage: 4.2,
			Divider:    2.0,
			Settle:     Duration{10 * time.Millisecond},
		},
		Climate: Climate{BME280Address: 0x76, TempOffset: -2.0},
		Display: Display{
			Driver:      "epd",
			PreviewPath: "inkdash.png",
			DCPin:       "GPIO25",
			RSTPin:      "GPIO17",
			BusyPin:     "GPIO24",
			PageHeight:  60,
		},
		MQTT: MQTT{Port: 1883, ClientID: "inkdash"},
	}
}

// Load returns the defaults overlaid with the JSON file at path (skipped
// when path is empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as indented JSON, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

func (c *Config) Validate() error {
	var errs []error
	switch c.AppEnv {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", c.AppEnv))
	}
	if c.Battery.MaxVoltage <= c.Battery.MinVoltage {
		errs = append(errs, fmt.Errorf("battery max voltage %v must exceed min voltage %v", c.Battery.MaxVoltage, c.Battery.MinVoltage))
	}
	if c.Battery.Divider <= 0 {
		errs = append(errs, fmt.Errorf("battery divider must be positive, got %v", c.Battery.Divider))
	}
	if c.Battery.Settle.Duration < MinBatterySettle {
		errs = append(errs, fmt.Errorf("battery settle %v is below the %v minimum", c.Battery.Settle, MinBatterySettle))
	}
	if c.HTTPTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout))
	}
	if c.WakeInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("WAKE_INTERVAL must be positive, got %v", c.WakeInterval))
	}
	switch c.Display.Driver {
	case "epd", "png":
	default:
		errs = append(errs, fmt.Errorf("invalid DISPLAY_DRIVER %q (allowed: epd, png)", c.Display.Driver))
	}
	if c.Display.PageHeight < 0 {
		errs = append(errs, fmt.Errorf("PAGE_HEIGHT must not be negative, got %d", c.Display.PageHeight))
	}
	if c.Weather.URL == "" && (c.Weather.Latitude < -90 || c.Weather.Latitude > 90 || c.Weather.Longitude < -180 || c.Weather.Longitude > 180) {
		errs = append(errs, fmt.Errorf("coordinates %v,%v out of range", c.Weather.Latitude, c.Weather.Longitude))
	}
	if c.MQTT.Broker != "" && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		errs = append(errs, fmt.Errorf("invalid MQTT_PORT %d", c.MQTT.Port))
	}
	return errors.Join(errs...)
}

// ForecastURL is the Open-Meteo request for the configured coordinates
// unless an explicit URL was set.
func (c *Config) ForecastURL() string {
	if c.Weather.URL != "" {
		return c.Weather.URL
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.Weather.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.Weather.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,weather_code")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "5")
	return "https://api.open-meteo.com/v1/forecast?" + q.Encode()
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	parse := func(name string, set func(string) error) {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			return
		}
		if err := set(v); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, v, err))
		}
	}
	float := func(name string, dst *float64) {
		parse(name, func(v string) (err error) {
			*dst, err = strconv.ParseFloat(v, 64)
			return err
		})
	}
	integer := func(name string, dst *int) {
		parse(name, func(v string) (err error) {
			*dst, err = strconv.Atoi(v)
			return err
		})
	}
	duration := func(name string, dst *Duration) {
		parse(name, func(v string) (err error) {
			dst.Duration, err = time.ParseDuration(v)
			return err
		})
	}
	address := func(name string, dst *uint16) {
		parse(name, func(v string) error {
			a, err := strconv.ParseUint(v, 0, 16)
			*dst = uint16(a)
			return err
		})
	}
	boolean := func(name string, dst *bool) {
		parse(name, func(v string) (err error) {
			*dst, err = strconv.ParseBool(v)
			return err
		})
	}

	str("APP_ENV", &c.AppEnv)
	parse("LOG_LEVEL", func(v string) (err error) {
		c.LogLevel, err = parseLogLevel(v)
		return err
	})
	str("DEVICE_ID", &c.DeviceID)
	str("LOCALE", &c.Locale)

	str("WIFI_INTERFACE", &c.WiFi.Interface)
	str("WIFI_SSID", &c.WiFi.SSID)
	str("WIFI_PASSWORD", &c.WiFi.Password)

	float("LATITUDE", &c.Weather.Latitude)
	float("LONGITUDE", &c.Weather.Longitude)
	str("FORECAST_URL", &c.Weather.URL)
	str("HA_URL", &c.HomeAssistant.URL)
	str("HA_TOKEN", &c.HomeAssistant.Token)
	str("HA_OUTDOOR_ENTITY", &c.HomeAssistant.OutdoorEntity)
	str("HA_OUTDOOR_HUMIDITY_ENTITY", &c.HomeAssistant.OutdoorHumidityEntity)
	str("HA_GREENHOUSE_ENTITY", &c.HomeAssistant.GreenhouseEntity)
	str("BTC_URL", &c.Prices.BTCURL)
	str("ETH_URL", &c.Prices.ETHURL)
	duration("HTTP_TIMEOUT", &c.HTTPTimeout)

	duration("WAKE_INTERVAL", &c.WakeInterval)
	str("WAKE_PIN", &c.WakePin)

	str("BATTERY_ENABLE_PIN", &c.Battery.EnablePin)
	float("BATTERY_MIN_V", &c.Battery.MinVoltage)
	float("BATTERY_MAX_V", &c.Battery.MaxVoltage)
	float("BATTERY_DIVIDER", &c.Battery.Divider)
	duration("BATTERY_SETTLE", &c.Battery.Settle)
	address("ADC_ADDRESS", &c.Battery.ADCAddress)

	str("I2C_BUS", &c.Climate.I2CBus)
	address("BME280_ADDRESS", &c.Climate.BME280Address)
	float("TEMP_OFFSET", &c.Climate.TempOffset)

	str("DISPLAY_DRIVER", &c.Display.Driver)
	str("PREVIEW_PATH", &c.Display.PreviewPath)
	str("SPI_PORT", &c.Display.SPIPort)
	str("EPD_DC_PIN", &c.Display.DCPin)
	str("EPD_RST_PIN", &c.Display.RSTPin)
	str("EPD_BUSY_PIN", &c.Display.BusyPin)
	integer("PAGE_HEIGHT", &c.Display.PageHeight)
	boolean("UNAVAILABLE_AS_ZERO", &c.Display.UnavailableAsZero)

	str("MQTT_BROKER", &c.MQTT.Broker)
	integer("MQTT_PORT", &c.MQTT.Port)
	str("MQTT_CLIENT_ID", &c.MQTT.ClientID)

	return errors.Join(errs...)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("allowed: debug, info, warn, error")
	}
}
