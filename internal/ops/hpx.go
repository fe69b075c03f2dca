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



package ops

import (
	"errors"
	"fmt"

	"github.com/mlnoga/hpxgrid/internal/hpx"
	"github.com/mlnoga/hpxgrid/internal/regrid"
	"github.com/mlnoga/hpxgrid/internal/sparse"
)

// Resamples each frame onto the HPX grid of the given Nside. Takes n inputs, produces n outputs
type OpToHPX struct {
	OpUnaryBase
	Nside  int  `json:"nside"`
	Direct bool `json:"direct"` // Take images already in HPX projection as they are, without interpolation
}

func init() { SetOperatorFactory(func() Operator { return NewOpToHPXDefault() }) } // register the operator for JSON decoding

func NewOpToHPXDefault() *OpToHPX { return NewOpToHPX(64, true) }

func NewOpToHPX(nside int, direct bool) *OpToHPX {
	op := OpToHPX{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "toHPX", Active: true}},
		Nside:       nside,
		Direct:      direct,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpToHPX) Apply(f *Frame, c *Context) (result *Frame, err error) {
	if f.Image == nil || f.Image.Data == nil {
		return nil, errors.New(fmt.Sprintf("%d: no image data to convert", f.ID))
	}
	wh, err := f.Image.WCSHeader()
	if err != nil {
		return nil, err
	}
	img := &sparse.Image{
		Data:   f.Image.Data,
		Shape:  []int{int(f.Image.Naxisn[1]), int(f.Image.Naxisn[0])},
		Header: wh,
	}

	code, err := wh.ProjectionCode()
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	var grid *sparse.SparseGrid
	nside := op.Nside
	if op.Direct && code == "HPX" {
		grid, err = sparse.FromHPXImage(img)
	} else {
		grid, err = sparse.ConvertWithin(img, op.Nside, c.FrameMemory())
	}
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	if op.Direct && code == "HPX" {
		nside = grid.Nx / 8
	}
	f.Nside = nside
	step := hpx.GridStep(nside)
	f.Step = [2]float64{step, step}

	if wh.HasEpoch {
		if f.Time, err = sparse.EpochSeconds(wh); err != nil {
			return nil, fmt.Errorf("%d: %w", f.ID, err)
		}
		f.HasTime = true
	} else {
		fmt.Fprintf(c.Log, "%d: Warning: no observation epoch in header\n", f.ID)
	}

	f.Grid = grid
	f.Image.Data = nil // pixel data is no longer needed
	fmt.Fprintf(c.Log, "%d: Converted %s projection to %d cells of %dx%d HPX grid\n",
		f.ID, code, grid.Len(), grid.Nx, grid.Ny)
	return f, nil
}

// Block-downsamples the HPX grid of each frame. Takes n inputs, produces n outputs
type OpRegrid struct {
	OpUnaryBase
	Factors    []int  `json:"factors"`
	Aggregator string `json:"aggregator"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpRegridDefault() }) } // register the operator for JSON decoding

func NewOpRegridDefault() *OpRegrid { return NewOpRegrid(nil, "sum") }

func NewOpRegrid(factors []int, aggregator string) *OpRegrid {
	op := OpRegrid{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "regrid", Active: len(factors) > 0}},
		Factors:     factors,
		Aggregator:  aggregator,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpRegrid) Apply(f *Frame, c *Context) (result *Frame, err error) {
	if f.Grid == nil {
		return nil, errors.New(fmt.Sprintf("%d: no HPX grid to regrid", f.ID))
	}
	agg, err := regrid.AggregatorByName(op.Aggregator)
	if err != nil {
		return nil, err
	}
	g, err := regrid.RegridSparse(f.Grid, op.Factors, agg)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	for k := range f.Step {
		f.Step[k] *= float64(op.Factors[k%len(op.Factors)]) // a single factor applies to both axes
	}
	fmt.Fprintf(c.Log, "%d: Regridded %dx%d to %dx%d with %s, %d cells\n",
		f.ID, f.Grid.Nx, f.Grid.Ny, g.Nx, g.Ny, op.Aggregator, g.Len())
	f.Grid = g
	return f, nil
}
