// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.



package preview

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mlnoga/hpxgrid/internal/sparse"
	"github.com/mlnoga/hpxgrid/internal/stats"
)

// A color at a position in [0,1] of a gradient
type Stop struct {
	Col colorful.Color
	Pos float64
}

// A color gradient, with stops in ascending position order
type Gradient []Stop

func mustParseHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic("preview: invalid color " + s)
	}
	return c
}

// Dark blue over purple and orange to pale yellow
var DefaultGradient = Gradient{
	{mustParseHex("#000004"), 0.0},
	{mustParseHex("#3b0f70"), 0.25},
	{mustParseHex("#8c2981"), 0.5},
	{mustParseHex("#de4968"), 0.7},
	{mustParseHex("#fe9f6d"), 0.85},
	{mustParseHex("#fcfdbf"), 1.0},
}

// Returns the color at position t in [0,1], blending neighboring stops in HCL space
func (g Gradient) At(t float64) colorful.Color {
	if t <= g[0].Pos {
		return g[0].Col
	}
	if t >= g[len(g)-1].Pos {
		return g[len(g)-1].Col
	}
	for i := 0; i < len(g)-1; i++ {
		c1, c2 := g[i], g[i+1]
		if c1.Pos <= t && t <= c2.Pos {
			t := (t - c1.Pos) / (c2.Pos - c1.Pos)
			return c1.Col.BlendHcl(c2.Col, t).Clamped()
		}
	}
	return g[len(g)-1].Col
}

// Rendering parameters. Values are mapped linearly from [Min,Max] to [0,1], then raised
// to 1/Gamma. If Min and Max are equal, they are taken from the data
type Options struct {
	Min, Max float64
	Gamma    float64
	Quality  int // JPEG quality
	Gradient Gradient
}

// Default options: automatic range, linear, good JPEG quality
func DefaultOptions() Options {
	return Options{Gamma: 1, Quality: 95, Gradient: DefaultGradient}
}

// Fills in the value range from the data if none is set
func (o Options) resolve(g *sparse.SparseGrid) Options {
	if o.Min == o.Max {
		values := make([]float64, 0, g.Len())
		for _, e := range g.Entries() {
			values = append(values, e.Value)
		}
		if s := stats.Summarize(values); s != nil {
			o.Min, o.Max = s.Min, s.Max
		}
		if o.Min == o.Max {
			o.Max = o.Min + 1
		}
	}
	if o.Gamma <= 0 {
		o.Gamma = 1
	}
	if len(o.Gradient) == 0 {
		o.Gradient = DefaultGradient
	}
	return o
}

// Maps a value into [0,1]. NaNs map to 0
func (o Options) normalize(v float64) float64 {
	t := (v - o.Min) / (o.Max - o.Min)
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if o.Gamma != 1 {
		t = math.Pow(t, 1/o.Gamma)
	}
	return t
}

// Renders the grid into an image with one pixel per cell: columns left to right,
// rows bottom to top so north is up. Absent cells stay black
func Render(g *sparse.SparseGrid, opts Options) *image.RGBA64 {
	o := opts.resolve(g)
	img := image.NewRGBA64(image.Rect(0, 0, g.Nx, g.Ny))
	black := color.RGBA64{0, 0, 0, 65535}
	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			img.SetRGBA64(x, y, black)
		}
	}
	for _, e := range g.Entries() {
		cl := o.Gradient.At(o.normalize(e.Value)).Clamped()
		c := color.RGBA64{to16(cl.R), to16(cl.G), to16(cl.B), 65535}
		img.SetRGBA64(int(e.I), g.Ny-1-int(e.J), c)
	}
	return img
}

func to16(v float64) uint16 { return uint16(v*65535 + 0.5) }
