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
	"strings"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// Builds a sparse grid directly from an image which is already in HPX projection, without
// interpolation. The grid spans round(360/cdelt1) columns and round(180/cdelt2) rows, with
// columns counting from RA=0 and rows from DEC=-90. Columns are wrapped, rows outside the
// grid and NaN pixels are skipped. Images written with GridHeader read back onto the
// same indices, except for the northernmost row
func FromHPXImage(img *Image) (*SparseGrid, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	h := img.Header
	code, err := h.ProjectionCode()
	if err != nil {
		return nil, err
	}
	if code != "HPX" {
		return nil, fmt.Errorf("%w: expected HEALPix input, got %s/%s", errs.ErrUnsupportedProjection, h.Ctype1, h.Ctype2)
	}
	for _, u := range []string{h.Cunit1, h.Cunit2} {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "deg" && u != "" {
			return nil, fmt.Errorf("%w: expected units of degrees, got %q", errs.ErrUnsupportedProjection, u)
		}
	}
	cdelt, err := h.Scale()
	if err != nil {
		return nil, err
	}

	nxTot := int64(math.Round(360 / math.Abs(cdelt[0])))
	nyTot := int64(math.Round(180 / math.Abs(cdelt[1])))
	if nxTot < 1 || nyTot < 1 {
		return nil, fmt.Errorf("%w: pixel scale %v too coarse for an all-sky grid", errs.ErrDomain, cdelt)
	}
	// CRPIX is one-based; the reference pixel sits at RA=0 and DEC=0
	x0 := int64(math.Round(1 - h.Crpix[0]))
	y0 := int64(math.Round(1-h.Crpix[1])) + nyTot/2

	res := NewSparseGrid(int(nxTot), int(nyTot))
	rows, cols := img.Shape[0], img.Shape[1]
	for r := 0; r < rows; r++ {
		j := y0 + int64(r)
		if j < 0 || j >= nyTot {
			continue
		}
		for c := 0; c < cols; c++ {
			v := img.Data[r*cols+c]
			if math.IsNaN(v) {
				continue
			}
			i := (x0 + int64(c)) % nxTot
			if i < 0 {
				i += nxTot
			}
			res.values[Index{i, j}] = v
		}
	}
	return res, nil
}
