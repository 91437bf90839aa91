package canvas

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Faces is the set of type sizes the dashboard uses.
type Faces struct {
	Tiny    font.Face
	Small   font.Face
	Regular font.Face
	Bold    font.Face
	Large   font.Face
	Huge    font.Face
}

// LoadFaces builds the Go font faces at the dashboard's sizes.
func LoadFaces() (*Faces, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}

	f := &Faces{Tiny: basicfont.Face7x13}
	for _, s := range []struct {
		dst  *font.Face
		src  *opentype.Font
		size float64
	}{
		{&f.Small, regular, 16},
		{&f.Regular, regular, 22},
		{&f.Bold, bold, 22},
		{&f.Large, bold, 34},
		{&f.Huge, bold, 64},
	} {
		face, err := opentype.NewFace(s.src, &opentype.FaceOptions{
			Size:    s.size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("font face %vpx: %w", s.size, err)
		}
		*s.dst = face
	}
	return f, nil
}

// BasicFaces uses the built-in bitmap face for every size.
func BasicFaces() *Faces {
	f := basicfont.Face7x13
	return &Faces{Tiny: f, Small: f, Regular: f, Bold: f, Large: f, Huge: f}
}
