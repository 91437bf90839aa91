package epd

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/dailypush/inkdash/internal/canvas"
)

// dcPin remembers the op index of every level change so a recorded SPI
// stream can be split back into commands and data.
type dcPin struct {
	gpiotest.Pin
	rec     *spitest.Record
	changes []change
}

type change struct {
	at    int
	level gpio.Level
}

func (p *dcPin) Out(l gpio.Level) error {
	p.rec.Lock()
	at := len(p.rec.Ops)
	p.rec.Unlock()
	p.changes = append(p.changes, change{at, l})
	return p.Pin.Out(l)
}

func (p *dcPin) levelAt(op int) gpio.Level {
	l := gpio.Low
	for _, c := range p.changes {
		if c.at <= op {
			l = c.level
		}
	}
	return l
}

type command struct {
	code byte
	data []byte
}

func decode(t *testing.T, rec *spitest.Record, dc *dcPin) []command {
	t.Helper()
	var out []command
	for i, op := range rec.Ops {
		if dc.levelAt(i) == gpio.Low {
			if len(op.W) != 1 {
				t.Fatalf("op %d: command of %d bytes", i, len(op.W))
			}
			out = append(out, command{code: op.W[0]})
			continue
		}
		if len(out) == 0 {
			t.Fatalf("op %d: data before any command", i)
		}
		out[len(out)-1].data = append(out[len(out)-1].data, op.W...)
	}
	return out
}

func codes(cmds []command) []byte {
	b := make([]byte, len(cmds))
	for i, c := range cmds {
		b[i] = c.code
	}
	return b
}

type rig struct {
	dev  *Dev
	rec  *spitest.Record
	dc   *dcPin
	rst  *gpiotest.Pin
	busy *gpiotest.Pin
}

func newRig(t *testing.T, opts *Opts) *rig {
	t.Helper()
	rec := &spitest.Record{}
	r := &rig{
		rec:  rec,
		dc:   &dcPin{Pin: gpiotest.Pin{N: "DC"}, rec: rec},
		rst:  &gpiotest.Pin{N: "RST"},
		busy: &gpiotest.Pin{N: "BUSY"},
	}
	dev, err := NewSPI(rec, r.dc, r.rst, r.busy, opts)
	if err != nil {
		t.Fatalf("NewSPI: %v", err)
	}
	r.dev = dev
	return r
}

func TestInit(t *testing.T) {
	r := newRig(t, nil)
	if err := r.dev.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	cmds := decode(t, r.rec, r.dc)
	want := []byte{cmdPowerSetting, cmdPowerOn, cmdGetStatus, cmdPanelSetting, cmdResolution, cmdDualSPI, cmdVCOMInterval, cmdTCON, cmdGateStart}
	if !bytes.Equal(codes(cmds), want) {
		t.Fatalf("Init commands = % X; want % X", codes(cmds), want)
	}
	if got := cmds[4].data; !bytes.Equal(got, []byte{0x03, 0x20, 0x01, 0xE0}) {
		t.Errorf("resolution = % X; want 03 20 01 E0", got)
	}
	if r.rst.Read() != gpio.High {
		t.Error("reset line left asserted")
	}
}

func TestWritePagePacksPlanes(t *testing.T) {
	r := newRig(t, nil)
	band := image.NewPaletted(image.Rect(0, 10, Width, 12), canvas.Palette)
	band.SetColorIndex(0, 10, canvas.Black)
	band.SetColorIndex(8, 10, canvas.Red)
	band.SetColorIndex(799, 11, canvas.Black)

	if err := r.dev.WritePage(band); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	cmds := decode(t, r.rec, r.dc)
	want := []byte{cmdPartialIn, cmdPartialWindow, cmdDataBlack, cmdDataRed, cmdPartialOut}
	if !bytes.Equal(codes(cmds), want) {
		t.Fatalf("commands = % X; want % X", codes(cmds), want)
	}
	if got, want := cmds[1].data, []byte{0, 0, 0x03, 0x1F, 0, 10, 0, 11, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("window = % X; want % X", got, want)
	}

	black, red := cmds[2].data, cmds[3].data
	if len(black) != 2*Width/8 || len(red) != 2*Width/8 {
		t.Fatalf("plane sizes = %d, %d; want %d", len(black), len(red), 2*Width/8)
	}
	if black[0] != 0x7F || black[1] != 0xFF {
		t.Errorf("black plane row 0 = %02X %02X; want 7F FF", black[0], black[1])
	}
	if red[0] != 0x00 || red[1] != 0x80 {
		t.Errorf("red plane row 0 = %02X %02X; want 00 80", red[0], red[1])
	}
	if last := black[len(black)-1]; last != 0xFE {
		t.Errorf("black plane last byte = %02X; want FE", last)
	}
}

func TestWritePageChunksLargeBands(t *testing.T) {
	r := newRig(t, nil)
	band := image.NewPaletted(image.Rect(0, 0, Width, Height), canvas.Palette)
	if err := r.dev.WritePage(band); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	for i, op := range r.rec.Ops {
		if len(op.W) > maxTx {
			t.Fatalf("op %d is %d bytes; limit %d", i, len(op.W), maxTx)
		}
	}
	cmds := decode(t, r.rec, r.dc)
	if got := len(cmds[2].data); got != Width*Height/8 {
		t.Errorf("black plane = %d bytes; want %d", got, Width*Height/8)
	}
}

func TestWritePageRejectsWrongWidth(t *testing.T) {
	r := newRig(t, nil)
	band := image.NewPaletted(image.Rect(0, 0, 400, 10), canvas.Palette)
	if err := r.dev.WritePage(band); err == nil {
		t.Fatal("expected error for a narrow band")
	}
}

func TestRefreshAndSleep(t *testing.T) {
	r := newRig(t, nil)
	if err := r.dev.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := r.dev.Sleep(); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	cmds := decode(t, r.rec, r.dc)
	want := []byte{cmdRefresh, cmdGetStatus, cmdPowerOff, cmdGetStatus, cmdDeepSleep}
	if !bytes.Equal(codes(cmds), want) {
		t.Fatalf("commands = % X; want % X", codes(cmds), want)
	}
	if got := cmds[4].data; !bytes.Equal(got, []byte{deepSleepCheckKey}) {
		t.Errorf("deep sleep data = % X; want A5", got)
	}
}

func TestBusyTimeout(t *testing.T) {
	r := newRig(t, &Opts{BusyTimeout: 30 * time.Millisecond})
	if err := r.busy.Out(gpio.Low); err != nil {
		t.Fatal(err)
	}
	err := r.dev.Refresh()
	if !errors.Is(err, ErrBusyTimeout) {
		t.Fatalf("Refresh err = %v; want ErrBusyTimeout", err)
	}
}

func TestPreviewWritesImage(t *testing.T) {
	for _, name := range []string{"frame.png", "frame.bmp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			p := NewPreview(path)
			c := canvas.New(Width, Height, 120, p)
			c.FirstPage()
			for {
				c.FillScreen(canvas.White)
				c.FillRect(0, 0, 10, 10, canvas.Red)
				more, err := c.NextPage()
				if err != nil {
					t.Fatalf("NextPage: %v", err)
				}
				if !more {
					break
				}
			}
			fi, err := os.Stat(path)
			if err != nil {
				t.Fatalf("preview not written: %v", err)
			}
			if fi.Size() == 0 {
				t.Fatal("preview is empty")
			}
			if p.Pages != 4 {
				t.Errorf("preview saw %d pages; want 4", p.Pages)
			}
		})
	}
}
