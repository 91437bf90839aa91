package epd

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/dailypush/inkdash/internal/canvas"
)

// Preview stands in for the panel: it assembles the bands and writes the
// finished frame to an image file on every refresh. A .bmp path writes BMP,
// anything else PNG.
type Preview struct {
	*canvas.FrameSink
	path string
}

func NewPreview(path string) *Preview {
	return &Preview{FrameSink: canvas.NewFrameSink(Width, Height), path: path}
}

func (p *Preview) String() string { return "preview:" + p.path }

func (p *Preview) Init() error { return nil }

func (p *Preview) Sleep() error { return nil }

func (p *Preview) Refresh() error {
	if err := p.FrameSink.Refresh(); err != nil {
		return err
	}
	return writeImage(p.path, p.Frame)
}

// writeImage replaces path atomically so a viewer never sees a torn file.
func writeImage(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preview-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	var enc func(io.Writer, image.Image) error = png.Encode
	if strings.EqualFold(filepath.Ext(path), ".bmp") {
		enc = bmp.Encode
	}
	if err := enc(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
