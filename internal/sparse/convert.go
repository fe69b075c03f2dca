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
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/hpx"
	"github.com/mlnoga/hpxgrid/internal/interp"
	"github.com/mlnoga/hpxgrid/internal/wcs"
)

// A 2-D sky image with its projection metadata
type Image struct {
	Data   []float64   // Pixel values, row-major with NAXIS1 values per row
	Shape  []int       // Array shape (rows, columns), i.e. (NAXIS2, NAXIS1)
	Header *wcs.Header // Native projection metadata
}

// Checks the image is 2-D and its shape matches the header axis lengths
func (img *Image) validate() error {
	if img.Header == nil {
		return fmt.Errorf("%w: image has no projection header", errs.ErrConfiguration)
	}
	if len(img.Shape) != 2 {
		return fmt.Errorf("%w: input data must be two dimensional, got %d dimensions", errs.ErrShape, len(img.Shape))
	}
	rows, cols := img.Shape[0], img.Shape[1]
	if rows != img.Header.Naxis2 || cols != img.Header.Naxis1 {
		return fmt.Errorf("%w: data shape %dx%d does not match header %dx%d",
			errs.ErrShape, rows, cols, img.Header.Naxis2, img.Header.Naxis1)
	}
	if rows < 1 || cols < 1 || rows*cols != len(img.Data) {
		return fmt.Errorf("%w: shape %dx%d does not match %d pixels", errs.ErrShape, rows, cols, len(img.Data))
	}
	return nil
}

// An inclusive rectangle of HPX indices. Columns are unwrapped, so IMin may be negative
// for footprints straddling RA=0
type IndexBox struct {
	IMin, IMax int64
	JMin, JMax int64
}

// Returns true if the box holds no indices
func (b IndexBox) Empty() bool { return b.IMax < b.IMin || b.JMax < b.JMin }

// Number of columns and rows in the box
func (b IndexBox) Size() (width, height int64) {
	if b.Empty() {
		return 0, 0
	}
	return b.IMax - b.IMin + 1, b.JMax - b.JMin + 1
}

// Returns true if the unwrapped index lies inside the box
func (b IndexBox) Contains(i, j int64) bool {
	return i >= b.IMin && i <= b.IMax && j >= b.JMin && j <= b.JMax
}

// Bytes of working memory per lattice point during conversion: lattice, world,
// pixel and query coordinates, plus the interpolated value
const LatticePointBytes = 4*16 + 8

// Working memory needed to convert all lattice points of the box
func (b IndexBox) Bytes() int64 {
	w, h := b.Size()
	return w * h * LatticePointBytes
}

// Header of the HPX projection whose pixels are the indices of the given grid:
// column i at x=i*step, row j at y=j*step-90
func GridHeader(grid hpx.IndexGrid) *wcs.Header {
	h := wcs.HPXHeader()
	h.Naxis1, h.Naxis2 = grid.Nx, grid.Ny
	h.Cdelt = [2]float64{grid.Step, grid.Step}
	h.Crpix = [2]float64{1, 1 + 90/grid.Step}
	return h
}

// Zero-based (column, row) pixel coordinates along all four image edges
func edgePixels(rows, cols int) [][2]float64 {
	res := make([][2]float64, 0, 2*rows+2*cols)
	for r := 0; r < rows; r++ {
		res = append(res, [2]float64{0, float64(r)}, [2]float64{float64(cols - 1), float64(r)})
	}
	for c := 0; c < cols; c++ {
		res = append(res, [2]float64{float64(c), 0}, [2]float64{float64(c), float64(rows - 1)})
	}
	return res
}

// Computes the HPX index box enclosing the image footprint, from the projected image edges.
// Edges are rounded outward. Edge pixels which cannot be projected are ignored; if none
// can be, the box is empty. No correction is made for footprints crossing a pole
func Footprint(img *Image, native, gridProj wcs.Projection) (IndexBox, error) {
	world, err := native.ToWorld(edgePixels(img.Shape[0], img.Shape[1]))
	if err != nil {
		return IndexBox{}, err
	}
	pix, err := gridProj.ToPixel(world)
	if err != nil {
		return IndexBox{}, err
	}

	is, js := make([]float64, 0, len(pix)), make([]float64, 0, len(pix))
	for _, p := range pix {
		if !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0) {
			is, js = append(is, p[0]), append(js, p[1])
		}
	}
	if len(is) == 0 {
		return IndexBox{IMin: 0, IMax: -1, JMin: 0, JMax: -1}, nil
	}
	return IndexBox{
		IMin: int64(math.Floor(floats.Min(is))),
		IMax: int64(math.Ceil(floats.Max(is))),
		JMin: int64(math.Floor(floats.Min(js))),
		JMax: int64(math.Ceil(floats.Max(js))),
	}, nil
}

// Resamples the image onto the HPX grid of the given Nside, returning the sparse set of
// grid cells covered by the image. Columns are wrapped into [0,Nx). Cells outside the
// image footprint are absent
func Convert(img *Image, nside int) (*SparseGrid, error) {
	return ConvertWithin(img, nside, 0)
}

// Resamples like Convert, but fails with a configuration error before allocating the
// lattice if its working memory would exceed maxBytes. Zero or less means no limit
func ConvertWithin(img *Image, nside int, maxBytes int64) (*SparseGrid, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	grid, err := hpx.NewIndexGrid(nside)
	if err != nil {
		return nil, err
	}
	native, err := wcs.New(img.Header)
	if err != nil {
		return nil, err
	}
	gridProj, err := wcs.New(GridHeader(grid))
	if err != nil {
		return nil, err
	}

	box, err := Footprint(img, native, gridProj)
	if err != nil {
		return nil, err
	}
	res := NewSparseGrid(grid.Nx, grid.Ny)
	if box.Empty() {
		return res, nil
	}
	if need := box.Bytes(); maxBytes > 0 && need > maxBytes {
		w, h := box.Size()
		return nil, fmt.Errorf("%w: footprint of %dx%d cells needs %d MiB of working memory, budget is %d MiB",
			errs.ErrConfiguration, w, h, need>>20, maxBytes>>20)
	}

	// dense lattice of HPX indices covering the box, rows outer
	width, height := box.Size()
	lattice := make([][2]float64, 0, width*height)
	for j := box.JMin; j <= box.JMax; j++ {
		for i := box.IMin; i <= box.IMax; i++ {
			lattice = append(lattice, [2]float64{float64(i), float64(j)})
		}
	}
	world, err := gridProj.ToWorld(lattice)
	if err != nil {
		return nil, err
	}
	for k, w := range world {
		if !(w[1] >= -90 && w[1] <= 90) { // beyond the poles
			world[k] = [2]float64{math.NaN(), math.NaN()}
		}
	}
	pix, err := native.ToPixel(world)
	if err != nil {
		return nil, err
	}

	// interpolate image data at (row, column) of each lattice point
	ip, err := interp.NewGrid2D(img.Data, img.Shape, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		return nil, err
	}
	queries := make([][2]float64, len(pix))
	for k, p := range pix {
		queries[k] = [2]float64{p[1], p[0]}
	}
	vals := ip.Evaluate(queries)

	for k, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		i, j := grid.WrapColumn(int64(lattice[k][0])), int64(lattice[k][1])
		if grid.Contains(i, j) {
			res.values[Index{i, j}] = v
		}
	}
	return res, nil
}

// Resamples the image like Convert, and returns the cells as records tagged with the image epoch
func ConvertRecords(img *Image, nside int) ([]SparseRecord, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	t, err := EpochSeconds(img.Header)
	if err != nil {
		return nil, err
	}
	g, err := Convert(img, nside)
	if err != nil {
		return nil, err
	}
	return g.Records(t), nil
}

// Converts the observation epoch in days into whole seconds, truncating towards zero
func EpochSeconds(h *wcs.Header) (int64, error) {
	if !h.HasEpoch {
		return 0, fmt.Errorf("%w: no observation epoch in header", errs.ErrMissingKey)
	}
	if math.IsNaN(h.Epoch) || math.IsInf(h.Epoch, 0) {
		return 0, fmt.Errorf("%w: invalid observation epoch %g", errs.ErrDomain, h.Epoch)
	}
	return int64(h.Epoch * 24 * 60 * 60), nil
}
