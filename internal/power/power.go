// Package power parks the process in a low-power wait until either the wake
// button is pressed or the wake interval elapses.
package power

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"

	"github.com/dailypush/inkdash/internal/model"
)

const (
	DefaultInterval = 60 * time.Minute
	// DefaultSlice bounds how long a single edge wait runs before the
	// context is checked again.
	DefaultSlice = time.Second
)

type Opts struct {
	Interval time.Duration
	Slice    time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Sleeper waits on an active-low push button with the internal pull-up. A
// nil button leaves the interval as the only wake source.
type Sleeper struct {
	button   gpio.PinIn
	interval time.Duration
	slice    time.Duration
	clock    clockwork.Clock
	log      *slog.Logger
	armed    bool
}

func NewSleeper(button gpio.PinIn, opts Opts) *Sleeper {
	s := &Sleeper{
		button:   button,
		interval: opts.Interval,
		slice:    opts.Slice,
		clock:    opts.Clock,
		log:      opts.Logger,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.slice <= 0 {
		s.slice = DefaultSlice
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *Sleeper) Interval() time.Duration { return s.interval }

// Arm configures the button for falling-edge detection. Edges that arrived
// before Arm are discarded.
func (s *Sleeper) Arm() error {
	if s.button == nil {
		s.armed = true
		return nil
	}
	if err := s.button.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("arm wake button %s: %w", s.button, err)
	}
	s.armed = true
	return nil
}

// Sleep blocks until the button fires or the interval elapses and reports
// which one it was. It arms the button first if Arm has not been called.
func (s *Sleeper) Sleep(ctx context.Context) (model.WakeSource, error) {
	if !s.armed {
		if err := s.Arm(); err != nil {
			return model.WakeUnknown, err
		}
	}
	s.armed = false

	if s.button == nil {
		s.log.Info("sleeping", slog.Duration("interval", s.interval))
		select {
		case <-ctx.Done():
			return model.WakeUnknown, ctx.Err()
		case <-s.clock.After(s.interval):
			return model.WakeTimer, nil
		}
	}

	deadline := s.clock.Now().Add(s.interval)
	s.log.Info("sleeping", slog.Duration("interval", s.interval), slog.String("button", s.button.String()))
	for {
		if err := ctx.Err(); err != nil {
			return model.WakeUnknown, err
		}
		remaining := deadline.Sub(s.clock.Now())
		if remaining <= 0 {
			return model.WakeTimer, nil
		}
		if s.button.WaitForEdge(min(remaining, s.slice)) {
			return model.WakeButton, nil
		}
	}
}
