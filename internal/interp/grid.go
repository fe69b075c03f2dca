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



package interp

import (
	"fmt"
	"math"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// Samples on a uniform 2-dimensional grid, with bilinear interpolation between them.
// Sample (i, j) sits at world coordinate origin + step * (i, j). Immutable once created,
// so a single grid can be evaluated from many goroutines at once.
type Grid2D struct {
	z      []float64  // Samples in row-major order, index i*shape[1]+j
	shape  [2]int     // Number of samples along axis 0 and axis 1
	origin [2]float64 // World coordinate of sample (0,0)
	step   [2]float64 // World distance between neighboring samples along each axis
	volume float64    // step[0]*step[1]
}

// Creates an interpolation grid from row-major samples z with the given shape, origin and step.
// Shape, origin and step must all have exactly two entries. The samples are not copied
func NewGrid2D(z []float64, shape []int, origin, step []float64) (*Grid2D, error) {
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: only implemented for 2D case, got %d dimensions", errs.ErrShape, len(shape))
	}
	if len(origin) != len(shape) || len(step) != len(shape) {
		return nil, fmt.Errorf("%w: number of dimensions %d should match number of items in origin %d and step %d",
			errs.ErrShape, len(shape), len(origin), len(step))
	}
	if shape[0] < 1 || shape[1] < 1 || shape[0]*shape[1] != len(z) {
		return nil, fmt.Errorf("%w: shape %dx%d does not match %d samples", errs.ErrShape, shape[0], shape[1], len(z))
	}
	if step[0] == 0 || step[1] == 0 || math.IsNaN(step[0]) || math.IsNaN(step[1]) {
		return nil, fmt.Errorf("%w: step %v must be nonzero", errs.ErrDomain, step)
	}
	g := &Grid2D{
		z:      z,
		shape:  [2]int{shape[0], shape[1]},
		origin: [2]float64{origin[0], origin[1]},
		step:   [2]float64{step[0], step[1]},
	}
	g.volume = g.step[0] * g.step[1]
	return g, nil
}

// Creates an interpolation grid from a rectangular slice of rows. Row i holds samples (i, 0..n-1)
func NewGrid2DFromRows(rows [][]float64, origin, step []float64) (*Grid2D, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", errs.ErrShape)
	}
	width := len(rows[0])
	z := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d", errs.ErrShape, i, len(row), width)
		}
		z = append(z, row...)
	}
	return NewGrid2D(z, []int{len(rows), width}, origin, step)
}

func (g *Grid2D) Shape() (n0, n1 int)       { return g.shape[0], g.shape[1] }
func (g *Grid2D) Origin() (o0, o1 float64)  { return g.origin[0], g.origin[1] }
func (g *Grid2D) Step() (s0, s1 float64)    { return g.step[0], g.step[1] }
func (g *Grid2D) At(i, j int) float64       { return g.z[i*g.shape[1]+j] }

// Interpolates the grid at a single point. Returns NaN if the point lies outside
// [origin, origin+step*(shape-1)] on either axis
func (g *Grid2D) EvaluateAt(p0, p1 float64) float64 {
	d0, d1 := p0-g.origin[0], p1-g.origin[1]
	idx0, idx1 := d0/g.step[0], d1/g.step[1]
	fl0, fl1 := math.Floor(idx0), math.Floor(idx1)
	ce0, ce1 := math.Ceil(idx0), math.Ceil(idx1)

	// comparisons in floating point keep NaN and huge values out of bounds
	if !(fl0 >= 0 && fl1 >= 0 && ce0 < float64(g.shape[0]) && ce1 < float64(g.shape[1])) {
		return math.NaN()
	}

	i0, j0 := int(fl0), int(fl1)
	i1, j1 := int(ce0), int(ce1)
	if i0 == i1 && j0 == j1 {
		return g.z[i0*g.shape[1]+j0] // exact grid node
	}

	width := g.shape[1]
	f11 := g.z[i0*width+j0]
	f12 := g.z[i0*width+j1]
	f21 := g.z[i1*width+j0]
	f22 := g.z[i1*width+j1]

	x1a, x1b := floorMod(d0, g.step[0]), floorMod(d1, g.step[1])
	x0a, x0b := g.step[0]-x1a, g.step[1]-x1b

	return (f11*x0a*x0b +
		f12*x0a*x1b +
		f21*x1a*x0b +
		f22*x1a*x1b) / g.volume
}

// Interpolates the grid at many points. The result has one entry per point, in the same order,
// so callers with a multi-dimensional batch can reshape the output like the input.
// Out of bounds points yield NaN
func (g *Grid2D) Evaluate(points [][2]float64) []float64 {
	res := make([]float64, len(points))
	for i, p := range points {
		res[i] = g.EvaluateAt(p[0], p[1])
	}
	return res
}

// Interpolates the grid at points given as separate coordinate slices of equal length
func (g *Grid2D) EvaluateXY(p0s, p1s []float64) ([]float64, error) {
	if len(p0s) != len(p1s) {
		return nil, fmt.Errorf("%w: coordinate slices of length %d and %d", errs.ErrShape, len(p0s), len(p1s))
	}
	res := make([]float64, len(p0s))
	for i := range p0s {
		res[i] = g.EvaluateAt(p0s[i], p1s[i])
	}
	return res, nil
}

// Modulo with the sign of the divisor
func floorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
