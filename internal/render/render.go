// Package render draws a loaded chart as a PNG image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"golang.org/x/image/colornames"

	"github.com/beetlebugorg/seacharts/pkg/enc"
)

// Scheme defines how chart features are coloured.
type Scheme struct {
	Background   color.Color
	ShallowWater color.Color // shallowest depth bin
	DeepWater    color.Color // deepest depth bin
	Land         color.Color
	Shore        color.Color
	Shallows     color.Color
	Rocks        color.Color
	Border       color.Color // nil draws no border
}

// DefaultScheme returns a nautical colour scheme.
func DefaultScheme() *Scheme {
	return &Scheme{
		Background:   colornames.White,
		ShallowWater: colornames.Lightcyan,
		DeepWater:    colornames.Midnightblue,
		Land:         colornames.Darkolivegreen,
		Shore:        colornames.Khaki,
		Shallows:     colornames.Orange,
		Rocks:        colornames.Black,
		Border:       colornames.Dimgray,
	}
}

// Image renders chart into an image width pixels wide. The height follows
// the window's aspect ratio.
func Image(chart *enc.ENC, width int, scheme *Scheme) (image.Image, error) {
	if width <= 0 {
		return nil, fmt.Errorf("image width must be positive, got %d", width)
	}
	if scheme == nil {
		scheme = DefaultScheme()
	}

	b := chart.Window()
	scale := float64(width) / (b.Max[0] - b.Min[0])
	height := int(math.Ceil((b.Max[1] - b.Min[1]) * scale))
	if height < 1 {
		height = 1
	}

	c := &canvas{ctx: gg.NewContext(width, height), bound: b, scale: scale, height: float64(height)}
	c.ctx.SetColor(scheme.Background)
	c.ctx.Clear()

	depths := chart.Depths()
	for _, f := range chart.Ocean.Seabed() {
		d, _ := f.Depth()
		c.fillPolygons(f.Geometry(), depthColor(scheme, depths, d))
	}
	for _, f := range chart.Surface.Shore() {
		c.fillPolygons(f.Geometry(), scheme.Shore)
	}
	for _, f := range chart.Surface.Land() {
		c.fillPolygons(f.Geometry(), scheme.Land)
	}
	for _, f := range chart.Details.Shallows() {
		c.dots(f.Geometry(), scheme.Shallows, 3)
	}
	for _, f := range chart.Details.Rocks() {
		c.dots(f.Geometry(), scheme.Rocks, 2)
	}

	if scheme.Border != nil {
		c.ctx.SetColor(scheme.Border)
		c.ctx.SetLineWidth(2)
		c.ctx.DrawRectangle(0, 0, float64(width), float64(height))
		c.ctx.Stroke()
	}
	return c.ctx.Image(), nil
}

// SavePNG renders chart and writes it to path.
func SavePNG(chart *enc.ENC, path string, width int, scheme *Scheme) error {
	im, err := Image(chart, width, scheme)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, im); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

type canvas struct {
	ctx    *gg.Context
	bound  orb.Bound
	scale  float64
	height float64
}

// project maps UTM coordinates to pixels, north up.
func (c *canvas) project(p orb.Point) (float64, float64) {
	x := (p[0] - c.bound.Min[0]) * c.scale
	y := c.height - (p[1]-c.bound.Min[1])*c.scale
	return x, y
}

func (c *canvas) fillPolygons(g orb.Geometry, col color.Color) {
	mp, ok := g.(orb.MultiPolygon)
	if !ok {
		return
	}
	c.ctx.SetFillRuleEvenOdd()
	for _, poly := range mp {
		for _, ring := range poly {
			c.ctx.NewSubPath()
			for i, p := range ring {
				x, y := c.project(p)
				if i == 0 {
					c.ctx.MoveTo(x, y)
				} else {
					c.ctx.LineTo(x, y)
				}
			}
			c.ctx.ClosePath()
		}
	}
	c.ctx.SetColor(col)
	c.ctx.Fill()
}

func (c *canvas) dots(g orb.Geometry, col color.Color, radius float64) {
	mp, ok := g.(orb.MultiPoint)
	if !ok {
		return
	}
	c.ctx.SetColor(col)
	for _, p := range mp {
		x, y := c.project(p)
		c.ctx.DrawCircle(x, y, radius)
		c.ctx.Fill()
	}
}

// depthColor shades from ShallowWater to DeepWater by bin position.
func depthColor(s *Scheme, depths []float64, depth float64) color.Color {
	if len(depths) < 2 {
		return s.ShallowWater
	}
	idx := 0
	for i, d := range depths {
		if d == depth {
			idx = i
		}
	}
	return lerp(s.ShallowWater, s.DeepWater, float64(idx)/float64(len(depths)-1))
}

func lerp(a, b color.Color, t float64) color.Color {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	mix := func(x, y uint32) uint8 {
		return uint8((float64(x)*(1-t) + float64(y)*t) / 257)
	}
	return color.NRGBA{R: mix(ar, br), G: mix(ag, bg), B: mix(ab, bb), A: mix(aa, ba)}
}
