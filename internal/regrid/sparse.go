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



package regrid

import (
	"fmt"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/sparse"
)

// Downsamples a sparse grid by integer block factors d, one per axis or a single one for
// both. Only stored cells take part in the aggregation, and blocks without any stored cell
// stay absent. Columns and rows beyond the last whole block are dropped
func RegridSparse(g *sparse.SparseGrid, d []int, agg Aggregator) (*sparse.SparseGrid, error) {
	if agg == nil {
		return nil, fmt.Errorf("%w: no aggregator", errs.ErrConfiguration)
	}
	d, err := broadcast(d, 2)
	if err != nil {
		return nil, err
	}
	di, dj := int64(d[0]), int64(d[1])
	res := sparse.NewSparseGrid(g.Nx/d[0], g.Ny/d[1])

	// entries come ordered by column, then row; group them by block keeping that order
	blocks := make(map[sparse.Index][]float64)
	var order []sparse.Index
	for _, e := range g.Entries() {
		b := sparse.Index{I: e.I / di, J: e.J / dj}
		if !res.Contains(b.I, b.J) {
			continue // truncated remainder
		}
		if _, ok := blocks[b]; !ok {
			order = append(order, b)
		}
		blocks[b] = append(blocks[b], e.Value)
	}
	for _, b := range order {
		if err := res.Set(b.I, b.J, agg(blocks[b])); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Converts a sparse grid into a dense (Nx, Ny) array, filling absent cells with the given value
func Densify(g *sparse.SparseGrid, fill float64) *Array {
	a, _ := NewArray([]int{g.Nx, g.Ny}, nil)
	if fill != 0 {
		for k := range a.Data {
			a.Data[k] = fill
		}
	}
	for _, e := range g.Entries() {
		a.Data[int(e.I)*g.Ny+int(e.J)] = e.Value
	}
	return a
}
