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



package fits

import (
	"fmt"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/wcs"
)

// Header keys holding the observation epoch as MJD, in order of preference
var epochKeys = []string{"TAI", "MJD-OBS", "MJD_OBS", "MJD"}

// Extracts the world coordinate system metadata from the header of a 2-D image
func (f *Image) WCSHeader() (*wcs.Header, error) {
	if len(f.Naxisn) != 2 {
		return nil, fmt.Errorf("%w: %d: expected 2-D image, got %s", errs.ErrShape, f.ID, f.DimensionsToString())
	}
	h := &f.Header
	w := &wcs.Header{
		Naxis1: int(f.Naxisn[0]),
		Naxis2: int(f.Naxisn[1]),
		Crpix:  [2]float64{1, 1}, // FITS default reference pixel
		Cdelt:  [2]float64{1, 1},
	}
	w.Ctype1, _ = h.Text("CTYPE1")
	w.Ctype2, _ = h.Text("CTYPE2")
	w.Cunit1, _ = h.Text("CUNIT1")
	w.Cunit2, _ = h.Text("CUNIT2")
	for i := 0; i < 2; i++ {
		if v, ok := h.Number(fmt.Sprintf("CRPIX%d", i+1)); ok {
			w.Crpix[i] = v
		}
		if v, ok := h.Number(fmt.Sprintf("CRVAL%d", i+1)); ok {
			w.Crval[i] = v
		}
		if v, ok := h.Number(fmt.Sprintf("CDELT%d", i+1)); ok {
			w.Cdelt[i] = v
		}
	}

	// CD matrix takes precedence over CDELT if any element is present
	var cd [2][2]float64
	hasCD := false
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if v, ok := h.Number(fmt.Sprintf("CD%d_%d", i+1, j+1)); ok {
				cd[i][j], hasCD = v, true
			}
		}
	}
	if hasCD {
		w.CD = &cd
	}

	for _, k := range epochKeys {
		if v, ok := h.Number(k); ok {
			w.Epoch, w.HasEpoch = v, true
			break
		}
	}
	return w, nil
}

// Stores the given world coordinate system metadata in the header, for writing
func (f *Image) SetWCSHeader(w *wcs.Header) {
	h := &f.Header
	h.Strings["CTYPE1"], h.Strings["CTYPE2"] = w.Ctype1, w.Ctype2
	if w.Cunit1 != "" {
		h.Strings["CUNIT1"] = w.Cunit1
	}
	if w.Cunit2 != "" {
		h.Strings["CUNIT2"] = w.Cunit2
	}
	for i := 0; i < 2; i++ {
		h.Floats[fmt.Sprintf("CRPIX%d", i+1)] = w.Crpix[i]
		h.Floats[fmt.Sprintf("CRVAL%d", i+1)] = w.Crval[i]
		if w.CD == nil {
			h.Floats[fmt.Sprintf("CDELT%d", i+1)] = w.Cdelt[i]
		} else {
			for j := 0; j < 2; j++ {
				h.Floats[fmt.Sprintf("CD%d_%d", i+1, j+1)] = w.CD[i][j]
			}
		}
	}
	if w.HasEpoch {
		h.Floats["TAI"] = w.Epoch
	}
}
