package power

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/dailypush/inkdash/internal/model"
)

func newButton(clock clockwork.Clock) *gpiotest.Pin {
	return &gpiotest.Pin{N: "WAKE", Clock: clock, EdgesChan: make(chan gpio.Level, 1)}
}

type result struct {
	src model.WakeSource
	err error
}

func TestArmConfiguresPullUp(t *testing.T) {
	p := newButton(clockwork.NewFakeClock())
	s := NewSleeper(p, Opts{})
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm() err = %v", err)
	}
	if p.Pull() != gpio.PullUp {
		t.Errorf("pull = %v; want PullUp", p.Pull())
	}
	if p.Read() != gpio.High {
		t.Errorf("idle level = %v; want High", p.Read())
	}
}

func TestArmDiscardsStaleEdges(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newButton(clock)
	p.EdgesChan <- gpio.Low
	s := NewSleeper(p, Opts{Interval: time.Minute, Slice: time.Minute, Clock: clock})
	if err := s.Arm(); err != nil {
		t.Fatal(err)
	}
	if len(p.EdgesChan) != 0 {
		t.Fatal("edge from before Arm still queued")
	}
}

func TestSleepButton(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newButton(clock)
	s := NewSleeper(p, Opts{Clock: clock})
	if err := s.Arm(); err != nil {
		t.Fatal(err)
	}
	p.EdgesChan <- gpio.Low

	src, err := s.Sleep(context.Background())
	if err != nil {
		t.Fatalf("Sleep() err = %v", err)
	}
	if src != model.WakeButton {
		t.Errorf("Sleep() = %v; want button", src)
	}
}

func TestSleepTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newButton(clock)
	s := NewSleeper(p, Opts{Interval: 60 * time.Minute, Slice: 15 * time.Minute, Clock: clock})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan result, 1)
	go func() {
		src, err := s.Sleep(ctx)
		done <- result{src, err}
	}()

	for advanced := time.Duration(0); ; {
		select {
		case r := <-done:
			if r.err != nil {
				t.Fatalf("Sleep() err = %v", r.err)
			}
			if r.src != model.WakeTimer {
				t.Errorf("Sleep() = %v; want timer", r.src)
			}
			if advanced != 60*time.Minute {
				t.Errorf("woke after %v; want 1h0m0s", advanced)
			}
			return
		case <-ctx.Done():
			t.Fatal("Sleep did not return")
		default:
		}
		wctx, wcancel := context.WithTimeout(ctx, 20*time.Millisecond)
		err := clock.BlockUntilContext(wctx, 1)
		wcancel()
		if err == nil {
			clock.Advance(15 * time.Minute)
			advanced += 15 * time.Minute
		}
	}
}

func TestSleepCanceled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSleeper(newButton(clock), Opts{Clock: clock})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Sleep(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() err = %v; want context.Canceled", err)
	}
}

func TestSleepArmFailure(t *testing.T) {
	p := &gpiotest.Pin{N: "WAKE"}
	s := NewSleeper(p, Opts{Clock: clockwork.NewFakeClock()})
	if _, err := s.Sleep(context.Background()); err == nil {
		t.Fatal("expected error arming a pin without edge support")
	}
}

func TestSleepTimerOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSleeper(nil, Opts{Interval: 30 * time.Minute, Clock: clock})
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm() err = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan result, 1)
	go func() {
		src, err := s.Sleep(ctx)
		done <- result{src, err}
	}()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(30 * time.Minute)

	select {
	case r := <-done:
		if r.err != nil || r.src != model.WakeTimer {
			t.Errorf("Sleep() = %v, %v; want timer", r.src, r.err)
		}
	case <-ctx.Done():
		t.Fatal("Sleep did not return")
	}
}
