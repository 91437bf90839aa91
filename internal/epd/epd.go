// Package epd drives the Waveshare 7.5" V2 tri-color (B) e-paper panel,
// 800x480 black/white/red, over SPI.
//
// Frames are written band by band through the controller's partial window,
// so the panel never needs a full frame buffer on the host side. Dev
// implements canvas.PageSink.
package epd

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/dailypush/inkdash/internal/canvas"
)

const (
	Width  = 800
	Height = 480
)

const (
	cmdPanelSetting   = 0x00
	cmdPowerSetting   = 0x01
	cmdPowerOff       = 0x02
	cmdPowerOn        = 0x04
	cmdDeepSleep      = 0x07
	cmdDataBlack      = 0x10
	cmdRefresh        = 0x12
	cmdDataRed        = 0x13
	cmdDualSPI        = 0x15
	cmdVCOMInterval   = 0x50
	cmdTCON           = 0x60
	cmdResolution     = 0x61
	cmdGateStart      = 0x65
	cmdGetStatus      = 0x71
	cmdPartialWindow  = 0x90
	cmdPartialIn      = 0x91
	cmdPartialOut     = 0x92
	deepSleepCheckKey = 0xA5
)

// spidev refuses transfers larger than its default buffer.
const maxTx = 4096

var ErrBusyTimeout = errors.New("epd: busy timeout")

type Opts struct {
	// BusyTimeout bounds every wait on the BUSY line. A tri-color refresh
	// takes around 20s.
	BusyTimeout time.Duration
	// Clock drives delays; nil uses the wall clock.
	Clock clockwork.Clock
}

var DefaultOpts = Opts{BusyTimeout: 45 * time.Second}

type Dev struct {
	c     conn.Conn
	dc    gpio.PinOut
	rst   gpio.PinOut
	busy  gpio.PinIn
	opts  Opts
	clock clockwork.Clock

	black []byte
	red   []byte
}

// NewSPI connects to the panel on p. dc selects command (low) or data
// (high), rst resets the controller, busy reads low while the panel works.
func NewSPI(p spi.Port, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd: spi connect: %w", err)
	}
	return New(c, dc, rst, busy, opts)
}

func New(c conn.Conn, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	d := &Dev{c: c, dc: dc, rst: rst, busy: busy, opts: *opts, clock: opts.Clock}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.opts.BusyTimeout <= 0 {
		d.opts.BusyTimeout = DefaultOpts.BusyTimeout
	}
	if err := dc.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("epd: dc pin: %w", err)
	}
	if err := rst.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("epd: rst pin: %w", err)
	}
	if busy != nil {
		if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("epd: busy pin: %w", err)
		}
	}
	return d, nil
}

func (d *Dev) String() string { return "epd7in5b_V2" }

func (d *Dev) Bounds() image.Rectangle { return image.Rect(0, 0, Width, Height) }

// Init resets the controller and powers the panel up. It must be called
// after every Sleep.
func (d *Dev) Init() error {
	if err := d.reset(); err != nil {
		return err
	}
	if err := d.send(cmdPowerSetting, 0x07, 0x07, 0x3F, 0x3F); err != nil {
		return err
	}
	if err := d.send(cmdPowerOn); err != nil {
		return err
	}
	d.clock.Sleep(100 * time.Millisecond)
	if err := d.waitIdle(); err != nil {
		return err
	}
	steps := []struct {
		cmd  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x0F}},
		{cmdResolution, []byte{Width >> 8, Width & 0xFF, Height >> 8, Height & 0xFF}},
		{cmdDualSPI, []byte{0x00}},
		{cmdVCOMInterval, []byte{0x11, 0x07}},
		{cmdTCON, []byte{0x22}},
		{cmdGateStart, []byte{0x00, 0x00, 0x00, 0x00}},
	}
	for _, s := range steps {
		if err := d.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	return nil
}

// WritePage loads one horizontal band of the frame into panel RAM.
func (d *Dev) WritePage(band *image.Paletted) error {
	r := band.Rect
	if r.Min.X != 0 || r.Dx() != Width || r.Min.Y < 0 || r.Max.Y > Height {
		return fmt.Errorf("epd: band %v outside %dx%d panel", r, Width, Height)
	}
	d.pack(band)

	y0, y1 := r.Min.Y, r.Max.Y-1
	if err := d.send(cmdPartialIn); err != nil {
		return err
	}
	window := []byte{
		0, 0, (Width - 1) >> 8, (Width - 1) & 0xFF,
		byte(y0 >> 8), byte(y0), byte(y1 >> 8), byte(y1),
		0x01,
	}
	if err := d.send(cmdPartialWindow, window...); err != nil {
		return err
	}
	if err := d.send(cmdDataBlack, d.black...); err != nil {
		return err
	}
	if err := d.send(cmdDataRed, d.red...); err != nil {
		return err
	}
	return d.send(cmdPartialOut)
}

// Refresh shows what has been written and waits for the panel to finish.
func (d *Dev) Refresh() error {
	if err := d.send(cmdRefresh); err != nil {
		return err
	}
	d.clock.Sleep(100 * time.Millisecond)
	return d.waitIdle()
}

// Sleep powers the panel off and puts the controller into deep sleep. The
// image stays on the glass.
func (d *Dev) Sleep() error {
	if err := d.send(cmdPowerOff); err != nil {
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	return d.send(cmdDeepSleep, deepSleepCheckKey)
}

func (d *Dev) Halt() error { return d.Sleep() }

// pack converts a band into the two 1bpp planes, MSB first. In the black
// plane 0 is black; in the red plane 1 is red.
func (d *Dev) pack(band *image.Paletted) {
	n := band.Rect.Dy() * Width / 8
	if cap(d.black) < n {
		d.black = make([]byte, n)
		d.red = make([]byte, n)
	}
	d.black, d.red = d.black[:n], d.red[:n]
	i := 0
	for y := band.Rect.Min.Y; y < band.Rect.Max.Y; y++ {
		row := band.Pix[band.PixOffset(0, y):band.PixOffset(Width, y)]
		for x := 0; x < Width; x += 8 {
			var b, r byte = 0xFF, 0x00
			for bit := 0; bit < 8; bit++ {
				switch row[x+bit] {
				case canvas.Black:
					b &^= 0x80 >> bit
				case canvas.Red:
					r |= 0x80 >> bit
				}
			}
			d.black[i], d.red[i] = b, r
			i++
		}
	}
}

func (d *Dev) reset() error {
	for _, s := range []struct {
		l gpio.Level
		t time.Duration
	}{
		{gpio.High, 20 * time.Millisecond},
		{gpio.Low, 4 * time.Millisecond},
		{gpio.High, 20 * time.Millisecond},
	} {
		if err := d.rst.Out(s.l); err != nil {
			return fmt.Errorf("epd: reset: %w", err)
		}
		d.clock.Sleep(s.t)
	}
	return nil
}

func (d *Dev) send(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("epd: dc: %w", err)
	}
	if err := d.c.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("epd: command 0x%02X: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("epd: dc: %w", err)
	}
	for len(data) > 0 {
		chunk := data[:min(len(data), maxTx)]
		if err := d.c.Tx(chunk, nil); err != nil {
			return fmt.Errorf("epd: data for 0x%02X: %w", cmd, err)
		}
		data = data[len(chunk):]
	}
	return nil
}

// waitIdle polls the controller status until BUSY goes high.
func (d *Dev) waitIdle() error {
	if d.busy == nil {
		return nil
	}
	start := d.clock.Now()
	for {
		if err := d.send(cmdGetStatus); err != nil {
			return err
		}
		if d.busy.Read() == gpio.High {
			return nil
		}
		if d.clock.Since(start) >= d.opts.BusyTimeout {
			return fmt.Errorf("%w after %s", ErrBusyTimeout, d.opts.BusyTimeout)
		}
		d.clock.Sleep(10 * time.Millisecond)
	}
}
