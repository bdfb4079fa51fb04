package mirror

import (
	"image"
	"image/color"
	"math/rand"
)

// Painter produces the random rectangles drawn into the capture source.
type Painter struct {
	rng *rand.Rand
}

func NewPainter(seed int64) *Painter {
	return &Painter{rng: rand.New(rand.NewSource(seed))}
}

// Next returns a rectangle anchored inside a width×height window whose
// sides are at least half and at most the full window size, and an opaque
// colour for it.
func (p *Painter) Next(width, height int) (image.Rectangle, color.RGBA) {
	c := color.RGBA{
		R: uint8(p.rng.Float64() * 256),
		G: uint8(p.rng.Float64() * 256),
		B: uint8(p.rng.Float64() * 256),
		A: 0xff,
	}
	if width < 1 || height < 1 {
		return image.Rectangle{}, c
	}

	x := p.rng.Intn(width)
	y := p.rng.Intn(height)
	w := width/2 + p.rng.Intn(width-width/2+1)
	h := height/2 + p.rng.Intn(height-height/2+1)
	return image.Rect(x, y, x+w, y+h), c
}
