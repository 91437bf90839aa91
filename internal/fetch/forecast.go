package fetch

import (
	"context"
	"fmt"
	"math"

	"github.com/dailypush/inkdash/internal/datefmt"
	"github.com/dailypush/inkdash/internal/model"
)

type forecastPayload struct {
	Current *struct {
		Time          *string  `json:"time"`
		WeatherCode   *int     `json:"weather_code"`
		Temperature   *float64 `json:"temperature"`
		Temperature2m *float64 `json:"temperature_2m"`
	} `json:"current"`
	Daily *struct {
		Min  []*float64 `json:"temperature_2m_min"`
		Max  []*float64 `json:"temperature_2m_max"`
		Code []*int     `json:"weather_code"`
	} `json:"daily"`
}

// Forecast fetches current conditions and the five day forecast. On any
// error the returned Weather is the zero value.
func (c *Client) Forecast(ctx context.Context) (model.Weather, error) {
	var p forecastPayload
	if err := c.getJSON(ctx, c.forecastURL, nil, &p); err != nil {
		return model.Weather{}, err
	}
	w, err := p.weather()
	if err != nil {
		return model.Weather{}, err
	}
	return w, nil
}

func (p *forecastPayload) weather() (model.Weather, error) {
	var w model.Weather

	cur := p.Current
	if cur == nil {
		return w, missing("current")
	}
	if cur.Time == nil {
		return w, missing("current.time")
	}
	if _, _, _, err := datefmt.ParseDate(*cur.Time); err != nil {
		return w, &DecodeError{Field: "current.time", Err: err}
	}
	if cur.WeatherCode == nil {
		return w, missing("current.weather_code")
	}
	temp := cur.Temperature
	if temp == nil {
		temp = cur.Temperature2m
	}
	if temp == nil {
		return w, missing("current.temperature")
	}
	w.Current = model.CurrentReading{
		Timestamp:   *cur.Time,
		Temperature: round(*temp),
		WeatherCode: *cur.WeatherCode,
	}

	d := p.Daily
	if d == nil {
		return model.Weather{}, missing("daily")
	}
	for _, arr := range []struct {
		name string
		n    int
	}{
		{"daily.temperature_2m_min", len(d.Min)},
		{"daily.temperature_2m_max", len(d.Max)},
		{"daily.weather_code", len(d.Code)},
	} {
		if arr.n < model.ForecastDays {
			return model.Weather{}, &DecodeError{Field: arr.name, Err: fmt.Errorf("%d entries, need %d", arr.n, model.ForecastDays)}
		}
	}
	for i := 0; i < model.ForecastDays; i++ {
		if d.Min[i] == nil || d.Max[i] == nil || d.Code[i] == nil {
			return model.Weather{}, &DecodeError{Field: "daily", Err: fmt.Errorf("null entry at day %d", i)}
		}
		w.Days[i] = model.ForecastSample{
			DayOffset:   i,
			MinTemp:     round(*d.Min[i]),
			MaxTemp:     round(*d.Max[i]),
			WeatherCode: *d.Code[i],
		}
	}
	return w, nil
}

func round(v float64) int { return int(math.Round(v)) }
