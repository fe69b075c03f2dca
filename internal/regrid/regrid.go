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
)

// A dense N-dimensional array in row-major order, last axis varying fastest
type Array struct {
	Shape []int
	Data  []float64
}

// Creates an array of the given shape. Data is not copied, allocated if nil
func NewArray(shape []int, data []float64) (*Array, error) {
	n := 1
	for k, s := range shape {
		if s < 0 {
			return nil, fmt.Errorf("%w: negative length %d on axis %d", errs.ErrShape, s, k)
		}
		n *= s
	}
	if data == nil {
		data = make([]float64, n)
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: shape %v holds %d values, got %d", errs.ErrShape, shape, n, len(data))
	}
	return &Array{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Number of elements
func (a *Array) Len() int { return len(a.Data) }

// Row-major strides of the array
func (a *Array) strides() []int {
	return stridesOf(a.Shape)
}

func stridesOf(shape []int) []int {
	st := make([]int, len(shape))
	s := 1
	for k := len(shape) - 1; k >= 0; k-- {
		st[k] = s
		s *= shape[k]
	}
	return st
}

// Value at the given multi-index
func (a *Array) At(idx ...int) float64 {
	off := 0
	for k, st := range a.strides() {
		off += idx[k] * st
	}
	return a.Data[off]
}

// Broadcasts the block factors to the rank of the array. A single factor applies to all axes
func broadcast(d []int, rank int) ([]int, error) {
	var res []int
	switch len(d) {
	case 1:
		res = make([]int, rank)
		for k := range res {
			res[k] = d[0]
		}
	case rank:
		res = append([]int(nil), d...)
	default:
		return nil, fmt.Errorf("%w: %d block factors do not broadcast to %d dimensions", errs.ErrShape, len(d), rank)
	}
	for k, dk := range res {
		if dk < 1 {
			return nil, fmt.Errorf("%w: block factor %d on axis %d must be at least 1", errs.ErrDomain, dk, k)
		}
	}
	return res, nil
}

// Output shape N/D per axis, truncating remainders
func outputShape(shape, d []int) []int {
	out := make([]int, len(shape))
	for k := range shape {
		out[k] = shape[k] / d[k]
	}
	return out
}

func product(s []int) int {
	p := 1
	for _, v := range s {
		p *= v
	}
	return p
}

// Advances a multi-index in row-major order within the given limits. Returns false after the last index
func next(idx, limits []int) bool {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < limits[k] {
			return true
		}
		idx[k] = 0
	}
	return false
}

// Downsamples the array by integer block factors d, one per axis or a single one for all axes,
// reducing each block with agg. Output axis k has length N_k/d_k; trailing elements which do
// not fill a whole block are dropped.
//
// Works like a reshape of the truncated array into (N_1/d_1, d_1, N_2/d_2, d_2, ...) followed
// by a reduction over every second axis.
func Regrid(a *Array, d []int, agg Aggregator) (*Array, error) {
	if agg == nil {
		return nil, fmt.Errorf("%w: no aggregator", errs.ErrConfiguration)
	}
	d, err := broadcast(d, len(a.Shape))
	if err != nil {
		return nil, err
	}
	outShape := outputShape(a.Shape, d)
	out, _ := NewArray(outShape, nil)
	if out.Len() == 0 {
		return out, nil
	}

	// reshaped view: interleaved (outer, inner) axes, strides taken from the input
	rank := len(a.Shape)
	inStrides := a.strides()
	outerStrides := make([]int, rank)
	for k := range d {
		outerStrides[k] = d[k] * inStrides[k]
	}

	// offsets of all block elements relative to the block corner, in row-major order
	blockLen := product(d)
	blockOffsets := make([]int, 0, blockLen)
	inner := make([]int, rank)
	for {
		off := 0
		for k := range inner {
			off += inner[k] * inStrides[k]
		}
		blockOffsets = append(blockOffsets, off)
		if !next(inner, d) {
			break
		}
	}

	block := make([]float64, blockLen)
	outer := make([]int, rank)
	for o := 0; o < out.Len(); o++ {
		corner := 0
		for k := range outer {
			corner += outer[k] * outerStrides[k]
		}
		for b, off := range blockOffsets {
			block[b] = a.Data[corner+off]
		}
		out.Data[o] = agg(block)
		next(outer, outShape)
	}
	return out, nil
}

// Downsamples the array like Regrid, but iterates over the strided slices X[i::d] for every
// block offset i, and reduces the stack of slices element-wise.
func RegridSlices(a *Array, d []int, agg Aggregator) (*Array, error) {
	if agg == nil {
		return nil, fmt.Errorf("%w: no aggregator", errs.ErrConfiguration)
	}
	d, err := broadcast(d, len(a.Shape))
	if err != nil {
		return nil, err
	}
	outShape := outputShape(a.Shape, d)
	out, _ := NewArray(outShape, nil)
	if out.Len() == 0 {
		return out, nil
	}

	// one slice per block offset, in row-major order of the offsets
	slices := make([][]float64, 0, product(d))
	offset := make([]int, len(d))
	for {
		slices = append(slices, stridedSlice(a, offset, d, outShape))
		if !next(offset, d) {
			break
		}
	}

	column := make([]float64, len(slices))
	for o := range out.Data {
		for s := range slices {
			column[s] = slices[s][o]
		}
		out.Data[o] = agg(column)
	}
	return out, nil
}

// Extracts the elements start + d*idx for all idx within shape, in row-major order
func stridedSlice(a *Array, start, d, shape []int) []float64 {
	inStrides := a.strides()
	res := make([]float64, 0, product(shape))
	idx := make([]int, len(shape))
	for {
		off := 0
		for k := range idx {
			off += (start[k] + d[k]*idx[k]) * inStrides[k]
		}
		res = append(res, a.Data[off])
		if !next(idx, shape) {
			break
		}
	}
	return res
}
