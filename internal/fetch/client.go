// Package fetch pulls the dashboard's remote data: the Open-Meteo forecast,
// Home Assistant entity states and CoinGecko spot prices. Every call is a
// single GET with no retry; failures come back as ErrNoNetwork, *HTTPError
// or *DecodeError.
package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Link reports whether the network is up.
type Link interface {
	Connected() bool
}

type Options struct {
	ForecastURL        string
	HomeAssistantURL   string
	HomeAssistantToken string
	Timeout            time.Duration
	// Link is checked before every request; nil assumes connectivity.
	Link Link
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

type Client struct {
	httpClient  *http.Client
	link        Link
	forecastURL string
	haURL       string
	haToken     string
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient:  hc,
		link:        opts.Link,
		forecastURL: opts.ForecastURL,
		haURL:       opts.HomeAssistantURL,
		haToken:     opts.HomeAssistantToken,
	}
}

func (c *Client) getJSON(ctx context.Context, url string, header http.Header, dst any) error {
	if c.link != nil && !c.link.Connected() {
		return ErrNoNetwork
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &HTTPError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "inkdash")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &HTTPError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &DecodeError{Field: "body", Err: err}
	}
	return nil
}
