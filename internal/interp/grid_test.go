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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// Samples the smooth test field of the original plot test on a 20x19 grid
func testField() (z []float64, shape []int, origin, step []float64) {
	n0, n1 := 20, 19
	dx, dy := 10.0/float64(n0-1), 10.0/float64(n1-1)
	z = make([]float64, n0*n1)
	for i := 0; i < n0; i++ {
		x := float64(i) * dx
		for j := 0; j < n1; j++ {
			y := float64(j) * dy
			z[i*n1+j] = (math.Sin(x) + math.Cos(y-5)) / (1 + math.Sqrt((x-2)*(x-2)+(y-3)*(y-3)))
		}
	}
	return z, []int{n0, n1}, []float64{0, 0}, []float64{dx, dy}
}

func TestNewGrid2DShapeErrors(t *testing.T) {
	z := make([]float64, 12)
	_, err := NewGrid2D(z, []int{12}, []float64{0}, []float64{1})
	assert.ErrorIs(t, err, errs.ErrShape)
	_, err = NewGrid2D(z, []int{3, 4}, []float64{0, 0, 0}, []float64{1, 1})
	assert.ErrorIs(t, err, errs.ErrShape)
	_, err = NewGrid2D(z, []int{3, 4}, []float64{0, 0}, []float64{1})
	assert.ErrorIs(t, err, errs.ErrShape)
	_, err = NewGrid2D(z, []int{3, 5}, []float64{0, 0}, []float64{1, 1})
	assert.ErrorIs(t, err, errs.ErrShape)
	_, err = NewGrid2D(z, []int{3, 4}, []float64{0, 0}, []float64{1, 0})
	assert.ErrorIs(t, err, errs.ErrDomain)
	_, err = NewGrid2DFromRows([][]float64{{1, 2}, {3}}, []float64{0, 0}, []float64{1, 1})
	assert.ErrorIs(t, err, errs.ErrShape)
}

func TestGridNodeExactness(t *testing.T) {
	rng := fastrand.RNG{}
	n0, n1 := 7, 9
	z := make([]float64, n0*n1)
	for i := range z {
		z[i] = float64(rng.Uint32n(1<<20))/3 - 1000
	}
	origin, step := []float64{-1.5, 2}, []float64{0.5, 0.25}
	g, err := NewGrid2D(z, []int{n0, n1}, origin, step)
	require.NoError(t, err)

	for i := 0; i < n0; i++ {
		for j := 0; j < n1; j++ {
			p0, p1 := origin[0]+step[0]*float64(i), origin[1]+step[1]*float64(j)
			got := g.EvaluateAt(p0, p1)
			if got != z[i*n1+j] {
				t.Errorf("node (%d,%d) at (%g,%g)=%g; want %g", i, j, p0, p1, got, z[i*n1+j])
			}
		}
	}
}

func TestOutOfBounds(t *testing.T) {
	z, shape, origin, step := testField()
	g, err := NewGrid2D(z, shape, origin, step)
	require.NoError(t, err)

	max0 := origin[0] + step[0]*float64(shape[0]-1)
	max1 := origin[1] + step[1]*float64(shape[1]-1)
	points := [][2]float64{
		{-0.01, 5}, {5, -0.01}, {max0 + 0.01, 5}, {5, max1 + 0.01},
		{-1, -1}, {11, 11}, {math.NaN(), 1}, {1, math.Inf(1)},
	}
	for i, v := range g.Evaluate(points) {
		assert.Truef(t, math.IsNaN(v), "point %v=%g; want NaN", points[i], v)
	}

	// upper corner itself is in bounds
	assert.False(t, math.IsNaN(g.EvaluateAt(max0, max1)))
}

func TestBilinearReproducesBilinearField(t *testing.T) {
	// f(x,y)=a+bx+cy+dxy is reproduced exactly by bilinear interpolation
	f := func(x, y float64) float64 { return 1.5 + 2*x - 3*y + 0.5*x*y }
	n0, n1 := 6, 5
	z := make([]float64, n0*n1)
	for i := 0; i < n0; i++ {
		for j := 0; j < n1; j++ {
			z[i*n1+j] = f(float64(i), float64(j))
		}
	}
	g, err := NewGrid2D(z, []int{n0, n1}, []float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)

	rng := fastrand.RNG{}
	for k := 0; k < 1000; k++ {
		x := float64(rng.Uint32n(5000)) / 1000
		y := float64(rng.Uint32n(4000)) / 1000
		assert.InDelta(t, f(x, y), g.EvaluateAt(x, y), 1e-9, "at (%g,%g)", x, y)
	}
}

func TestEvaluateHandComputed(t *testing.T) {
	g, err := NewGrid2DFromRows([][]float64{{0, 1}, {2, 5}}, []float64{10, 20}, []float64{2, 4})
	require.NoError(t, err)
	// idx=(0.5, 0.25): weights X0=(1,3) X1=(1,1), volume 8
	// (0*1*3 + 1*1*1 + 2*1*3 + 5*1*1)/8 = 12/8
	assert.Equal(t, 1.5, g.EvaluateAt(11, 21))

	vals, err := g.EvaluateXY([]float64{10, 12}, []float64{20, 24})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5}, vals)

	_, err = g.EvaluateXY([]float64{1}, nil)
	assert.ErrorIs(t, err, errs.ErrShape)
}

func TestSmoothFieldWithinTolerance(t *testing.T) {
	z, shape, origin, step := testField()
	g, err := NewGrid2D(z, shape, origin, step)
	require.NoError(t, err)

	// interpolated values stay within the range of the four neighbors
	for x := 0.05; x < 9.95; x += 0.37 {
		for y := 0.05; y < 9.95; y += 0.41 {
			i, j := int(math.Floor(x/step[0])), int(math.Floor(y/step[1]))
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range []float64{g.At(i, j), g.At(i+1, j), g.At(i, j+1), g.At(i+1, j+1)} {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
			v := g.EvaluateAt(x, y)
			assert.GreaterOrEqual(t, v, lo-1e-12)
			assert.LessOrEqual(t, v, hi+1e-12)
		}
	}
}
