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



package hpx

import (
	"fmt"
	"math"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// Returns the size of the HPX pixel grid (Nx, Ny) for a given Nside
func GridSize(nside int) (nx, ny int) {
	return 8 * nside, 4*nside + 1
}

// Returns the size of the step between HPX pixels in degrees
func GridStep(nside int) float64 {
	return 45 / float64(nside)
}

// An integer lattice over HPX pixel indices. Column i sits at x=i*Step,
// row j at y=j*Step-90. Derived solely from Nside
type IndexGrid struct {
	Nside int
	Nx    int     // Number of columns, 8*Nside
	Ny    int     // Number of rows, 4*Nside+1
	Step  float64 // Pixel size in degrees along both axes, 45/Nside
}

// Creates the index grid for the given Nside, which must be positive
func NewIndexGrid(nside int) (IndexGrid, error) {
	if nside < 1 {
		return IndexGrid{}, fmt.Errorf("%w: nside %d must be positive", errs.ErrDomain, nside)
	}
	nx, ny := GridSize(nside)
	return IndexGrid{Nside: nside, Nx: nx, Ny: ny, Step: GridStep(nside)}, nil
}

// Fractional column index of an HPX x coordinate
func (g IndexGrid) Column(x float64) float64 { return x / g.Step }

// Fractional row index of an HPX y coordinate
func (g IndexGrid) Row(y float64) float64 { return (y + 90) / g.Step }

// HPX x coordinate of a column
func (g IndexGrid) X(i int64) float64 { return float64(i) * g.Step }

// HPX y coordinate of a row
func (g IndexGrid) Y(j int64) float64 { return float64(j)*g.Step - 90 }

// Wraps a column index into [0, Nx). Columns left of RA=0 carry negative indices
// on the unwrapped lattice
func (g IndexGrid) WrapColumn(i int64) int64 {
	nx := int64(g.Nx)
	i %= nx
	if i < 0 {
		i += nx
	}
	return i
}

// Returns true if the given (wrapped) index lies on the grid
func (g IndexGrid) Contains(i, j int64) bool {
	return i >= 0 && i < int64(g.Nx) && j >= 0 && j < int64(g.Ny)
}

// Human readable grid description for log output
func (g IndexGrid) String() string {
	return fmt.Sprintf("nside=%d %dx%d step=%.6g deg", g.Nside, g.Nx, g.Ny, g.Step)
}

// Returns the smallest Nside whose pixels are no larger than the given size in degrees
func NsideForStep(stepDeg float64) (int, error) {
	if !(stepDeg > 0) {
		return 0, fmt.Errorf("%w: pixel step %g must be positive", errs.ErrDomain, stepDeg)
	}
	return int(math.Ceil(45 / stepDeg)), nil
}
