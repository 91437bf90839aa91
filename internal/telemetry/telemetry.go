// Package telemetry publishes a retained status message after every wake
// cycle so that the dashboard's health can be watched from a broker.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dailypush/inkdash/internal/model"
)

const publishTimeout = 5 * time.Second

var ErrStopped = errors.New("telemetry: client stopped")

// Status is the JSON body published on Topic.
type Status struct {
	DeviceID          string    `json:"device_id"`
	Timestamp         time.Time `json:"timestamp"`
	Wake              string    `json:"wake"`
	BatteryV          *float64  `json:"battery_v,omitempty"`
	BatteryPct        *int      `json:"battery_pct,omitempty"`
	IndoorTempC       *float64  `json:"indoor_temp_c,omitempty"`
	IndoorHumidityPct *float64  `json:"indoor_humidity_pct,omitempty"`
	WeatherOK         bool      `json:"weather_ok"`
}

func StatusOf(deviceID string, cy *model.Cycle) Status {
	s := Status{
		DeviceID:  deviceID,
		Timestamp: cy.Started.UTC(),
		Wake:      cy.Wake.String(),
		WeatherOK: cy.WeatherOK,
	}
	if b := cy.Battery; b.Valid {
		v, pct := b.Voltage, b.Percentage
		s.BatteryV, s.BatteryPct = &v, &pct
	}
	if in := cy.Env.Indoor; in.Valid {
		t, h := in.Temperature, in.Humidity
		s.IndoorTempC, s.IndoorHumidityPct = &t, &h
	}
	return s
}

func Topic(deviceID string) string { return fmt.Sprintf("inkdash/%s/status", deviceID) }

type Options struct {
	Broker   string
	Port     int
	ClientID string
	DeviceID string
	Logger   *slog.Logger
}

type Client struct {
	client   mqtt.Client
	deviceID string
	logger   *slog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(o Options) *Client {
	c := newClient(nil, o)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", o.Broker, o.Port))
	opts.SetClientID(o.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// The device sleeps for an hour between publishes.
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", o.Broker, "port", o.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

func newClient(mc mqtt.Client, o Options) *Client {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:   mc,
		deviceID: o.DeviceID,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Connect waits for the broker connection, honoring ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			c.setConnected(true)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}
	}
}

// PublishStatus publishes the cycle summary, retained, at QoS 1. It
// connects first if needed.
func (c *Client) PublishStatus(ctx context.Context, cy *model.Cycle) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	topic := Topic(c.deviceID)
	data, err := json.Marshal(StatusOf(c.deviceID, cy))
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	token := c.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}

	c.logger.Debug("published status", "topic", topic, "wake", cy.Wake.String())
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client. It is safe to call more than once.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Nop is used when no broker is configured.
type Nop struct{}

func (Nop) PublishStatus(context.Context, *model.Cycle) error { return nil }

func (Nop) Disconnect() {}
