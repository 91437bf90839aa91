package canvas

import "image"

// FrameSink reassembles bands into one full frame. It backs previews and
// tests.
type FrameSink struct {
	Frame     *image.Paletted
	Pages     int
	Refreshes int
}

func NewFrameSink(width, height int) *FrameSink {
	return &FrameSink{Frame: image.NewPaletted(image.Rect(0, 0, width, height), Palette)}
}

func (s *FrameSink) WritePage(band *image.Paletted) error {
	r := band.Rect.Intersect(s.Frame.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(s.Frame.Pix[s.Frame.PixOffset(r.Min.X, y):s.Frame.PixOffset(r.Max.X, y)],
			band.Pix[band.PixOffset(r.Min.X, y):band.PixOffset(r.Max.X, y)])
	}
	s.Pages++
	return nil
}

func (s *FrameSink) Refresh() error {
	s.Refreshes++
	return nil
}

// Count returns how many frame pixels hold idx inside r.
func (s *FrameSink) Count(r image.Rectangle, idx uint8) int {
	r = r.Intersect(s.Frame.Rect)
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if s.Frame.ColorIndexAt(x, y) == idx {
				n++
			}
		}
	}
	return n
}
