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



package sparse

import (
	"fmt"
	"sort"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// One emitted sample of an HPX grid, tagged with the epoch of its source image in seconds
type SparseRecord struct {
	Time  int64   `json:"time"`
	X     int64   `json:"x"` // HPX column
	Y     int64   `json:"y"` // HPX row
	Value float64 `json:"value"`
}

// A grid cell index, column I and row J
type Index struct {
	I, J int64
}

// A stored grid value with its index
type Entry struct {
	Index
	Value float64
}

// A sparse coordinate set over an Nx times Ny grid, mapping (column, row) to values.
// Absent cells carry no value
type SparseGrid struct {
	Nx, Ny int
	values map[Index]float64
}

// Creates an empty sparse grid of the given size
func NewSparseGrid(nx, ny int) *SparseGrid {
	return &SparseGrid{Nx: nx, Ny: ny, values: make(map[Index]float64)}
}

// Number of stored cells
func (g *SparseGrid) Len() int { return len(g.values) }

// Returns true if the index lies on the grid
func (g *SparseGrid) Contains(i, j int64) bool {
	return i >= 0 && i < int64(g.Nx) && j >= 0 && j < int64(g.Ny)
}

// Stores a value, overwriting any previous value at the same index
func (g *SparseGrid) Set(i, j int64, v float64) error {
	if !g.Contains(i, j) {
		return fmt.Errorf("%w: index (%d,%d) outside %dx%d grid", errs.ErrShape, i, j, g.Nx, g.Ny)
	}
	g.values[Index{i, j}] = v
	return nil
}

// Returns the value at the given index, if stored
func (g *SparseGrid) Get(i, j int64) (v float64, ok bool) {
	v, ok = g.values[Index{i, j}]
	return v, ok
}

// Returns all stored cells ordered by column, then row
func (g *SparseGrid) Entries() []Entry {
	res := make([]Entry, 0, len(g.values))
	for idx, v := range g.values {
		res = append(res, Entry{Index: idx, Value: v})
	}
	sort.Slice(res, func(a, b int) bool {
		if res[a].I != res[b].I {
			return res[a].I < res[b].I
		}
		return res[a].J < res[b].J
	})
	return res
}

// Converts the grid into a flat record sequence sharing the given time, ordered as Entries()
func (g *SparseGrid) Records(time int64) []SparseRecord {
	entries := g.Entries()
	res := make([]SparseRecord, len(entries))
	for k, e := range entries {
		res[k] = SparseRecord{Time: time, X: e.I, Y: e.J, Value: e.Value}
	}
	return res
}

// Builds a sparse grid of the given size from records. Records with repeated
// indices conflict, regardless of their time
func FromRecords(recs []SparseRecord, nx, ny int) (*SparseGrid, error) {
	g := NewSparseGrid(nx, ny)
	for _, r := range recs {
		if _, ok := g.values[Index{r.X, r.Y}]; ok {
			return nil, fmt.Errorf("%w: duplicate record at (%d,%d)", errs.ErrShape, r.X, r.Y)
		}
		if err := g.Set(r.X, r.Y, r.Value); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Unions the non-overlapping cells of other into this grid. Grids must have the
// same size, and no index may be stored in both. Leaves g unchanged on error
func (g *SparseGrid) Merge(other *SparseGrid) error {
	if g.Nx != other.Nx || g.Ny != other.Ny {
		return fmt.Errorf("%w: cannot merge %dx%d grid into %dx%d grid", errs.ErrShape, other.Nx, other.Ny, g.Nx, g.Ny)
	}
	for idx := range other.values {
		if _, ok := g.values[idx]; ok {
			return fmt.Errorf("%w: merge conflict at (%d,%d)", errs.ErrShape, idx.I, idx.J)
		}
	}
	for idx, v := range other.values {
		g.values[idx] = v
	}
	return nil
}

// Returns the inclusive [min,max] index range of the stored cells for each requested
// axis, 0 for columns and 1 for rows. Without arguments, returns both axes
func (g *SparseGrid) Bounds(axes ...int) ([][2]int64, error) {
	if len(axes) == 0 {
		axes = []int{0, 1}
	}
	for _, a := range axes {
		if a != 0 && a != 1 {
			return nil, fmt.Errorf("%w: invalid axis %d for 2-D grid", errs.ErrShape, a)
		}
	}
	if len(g.values) == 0 {
		return nil, fmt.Errorf("%w: empty grid has no bounds", errs.ErrShape)
	}

	var lo, hi [2]int64
	first := true
	for idx := range g.values {
		c := [2]int64{idx.I, idx.J}
		for a := 0; a < 2; a++ {
			if first || c[a] < lo[a] {
				lo[a] = c[a]
			}
			if first || c[a] > hi[a] {
				hi[a] = c[a]
			}
		}
		first = false
	}

	res := make([][2]int64, len(axes))
	for k, a := range axes {
		res[k] = [2]int64{lo[a], hi[a]}
	}
	return res, nil
}

// Returns the half-open window [iRange[0],iRange[1]) x [jRange[0],jRange[1]) as a new grid,
// with indices relative to the window origin. Ranges are clipped to the grid
func (g *SparseGrid) Subgrid(iRange, jRange [2]int64) *SparseGrid {
	i0, i1 := clip(iRange, g.Nx)
	j0, j1 := clip(jRange, g.Ny)
	sub := NewSparseGrid(int(i1-i0), int(j1-j0))
	for idx, v := range g.values {
		if idx.I >= i0 && idx.I < i1 && idx.J >= j0 && idx.J < j1 {
			sub.values[Index{idx.I - i0, idx.J - j0}] = v
		}
	}
	return sub
}

func clip(r [2]int64, n int) (lo, hi int64) {
	lo, hi = r[0], r[1]
	if lo < 0 {
		lo = 0
	}
	if hi > int64(n) {
		hi = int64(n)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Returns the grid as a row-major raster with Ny rows of Nx values, i.e. with
// NAXIS1=Nx and NAXIS2=Ny. Absent cells hold the fill value
func (g *SparseGrid) Raster(fill float64) []float64 {
	res := make([]float64, g.Nx*g.Ny)
	for k := range res {
		res[k] = fill
	}
	for idx, v := range g.values {
		res[int(idx.J)*g.Nx+int(idx.I)] = v
	}
	return res
}
