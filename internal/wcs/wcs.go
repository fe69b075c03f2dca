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



package wcs

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// A generic sky projection between pixel coordinates and world coordinates.
// Pixel coordinates are zero-based (column, row), i.e. (NAXIS1 index, NAXIS2 index).
// World coordinates are (right ascension, declination) in degrees.
// Points which cannot be projected come back as NaN.
type Projection interface {
	ToWorld(pix [][2]float64) (world [][2]float64, err error)
	ToPixel(world [][2]float64) (pix [][2]float64, err error)
}

// Projection metadata from an image header
type Header struct {
	Naxis1, Naxis2 int        // Axis lengths. Most quickly varying dimension first
	Ctype1, Ctype2 string     // Axis types, e.g. RA---TAN and DEC--TAN
	Cunit1, Cunit2 string     // Axis units, deg if empty
	Crpix          [2]float64 // Reference pixel, one-based as per FITS convention
	Crval          [2]float64 // World coordinate at the reference pixel
	Cdelt          [2]float64 // Axis scales, used if CD is nil
	CD             *[2][2]float64
	Epoch          float64    // Observation epoch as MJD
	HasEpoch       bool
}

// A factory for projections of a given type tag
type Factory func(h *Header) (Projection, error)

// Mapping from projection type tags to factories
var factories = map[string]Factory{
	"LIN": newLinear,
	"TAN": newGnomonic,
	"HPX": newHealpix,
}

// Creates the projection described by the given header
func New(h *Header) (Projection, error) {
	code, err := h.ProjectionCode()
	if err != nil {
		return nil, err
	}
	factory, ok := factories[code]
	if !ok {
		return nil, fmt.Errorf("%w: projection type %s not understood", errs.ErrUnsupportedProjection, code)
	}
	return factory(h)
}

// Header of the fixed all-sky HPX projection. Pixel coordinates are HPX plane
// coordinates in degrees, with zero reference pixel and value
func HPXHeader() *Header {
	return &Header{
		Ctype1: "RA---HPX",
		Ctype2: "DEC--HPX",
		Cunit1: "deg",
		Cunit2: "deg",
		Crpix:  [2]float64{1, 1}, // one-based, i.e. zero-based pixel 0
		Cdelt:  [2]float64{1, 1},
	}
}

// Creates the fixed all-sky HPX projection, see HPXHeader
func NewHPX() Projection {
	return Must(New(HPXHeader())) // the fixed header is always valid
}

// Returns the projection, panicking on error. For headers known to be valid
func Must(p Projection, err error) Projection {
	if err != nil {
		panic(err)
	}
	return p
}

// Returns the three-letter projection code shared by both axes, or LIN for axes without one
func (h *Header) ProjectionCode() (string, error) {
	c1, c2 := projectionCode(h.Ctype1), projectionCode(h.Ctype2)
	if c1 != c2 {
		return "", fmt.Errorf("%w: axis types %q and %q disagree", errs.ErrUnsupportedProjection, h.Ctype1, h.Ctype2)
	}
	if c1 != "LIN" {
		a1, a2 := axisName(h.Ctype1), axisName(h.Ctype2)
		if a1 != "RA" || a2 != "DEC" {
			return "", fmt.Errorf("%w: need RA/DEC axes in that order, got %q and %q",
				errs.ErrUnsupportedProjection, h.Ctype1, h.Ctype2)
		}
	}
	return c1, nil
}

// Extracts the projection code from a FITS axis type like RA---TAN
func projectionCode(ctype string) string {
	if len(ctype) >= 8 && ctype[4] == '-' {
		return strings.ToUpper(strings.TrimSpace(ctype[5:8]))
	}
	return "LIN"
}

func axisName(ctype string) string {
	if len(ctype) > 4 {
		ctype = ctype[:4]
	}
	return strings.ToUpper(strings.TrimRight(ctype, "- "))
}

// Returns the per-axis scale. A CD matrix must be diagonal
func (h *Header) Scale() (scale [2]float64, err error) {
	if h.CD == nil {
		scale = h.Cdelt
	} else {
		if h.CD[0][1] != 0 || h.CD[1][0] != 0 {
			return scale, fmt.Errorf("%w: non-diagonal CD matrix %v", errs.ErrUnsupportedProjection, *h.CD)
		}
		scale = [2]float64{h.CD[0][0], h.CD[1][1]}
	}
	if scale[0] == 0 || scale[1] == 0 || math.IsNaN(scale[0]) || math.IsNaN(scale[1]) {
		return scale, fmt.Errorf("%w: zero axis scale %v", errs.ErrUnsupportedProjection, scale)
	}
	return scale, nil
}

// Checks axis units are degrees
func (h *Header) checkUnits() error {
	for _, u := range []string{h.Cunit1, h.Cunit2} {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" && u != "deg" && u != "degree" && u != "degrees" {
			return fmt.Errorf("%w: expected units of degrees, got %q", errs.ErrUnsupportedProjection, u)
		}
	}
	return nil
}

// Affine map between zero-based pixels and intermediate world coordinates in degrees
type affine struct {
	ref [2]float64 // zero-based reference pixel
	m   [2][2]float64
	inv [2][2]float64
}

func newAffine(h *Header) (*affine, error) {
	if err := h.checkUnits(); err != nil {
		return nil, err
	}
	scale, err := h.Scale()
	if err != nil {
		return nil, err
	}
	m := mat.NewDense(2, 2, []float64{scale[0], 0, 0, scale[1]})
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("%w: scale matrix not invertible: %s", errs.ErrUnsupportedProjection, err.Error())
	}
	a := &affine{ref: [2]float64{h.Crpix[0] - 1, h.Crpix[1] - 1}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			a.m[i][j], a.inv[i][j] = m.At(i, j), inv.At(i, j)
		}
	}
	return a, nil
}

func (a *affine) toIntermediate(p [2]float64) (x, y float64) {
	d0, d1 := p[0]-a.ref[0], p[1]-a.ref[1]
	return a.m[0][0]*d0 + a.m[0][1]*d1, a.m[1][0]*d0 + a.m[1][1]*d1
}

func (a *affine) fromIntermediate(x, y float64) [2]float64 {
	return [2]float64{
		a.inv[0][0]*x + a.inv[0][1]*y + a.ref[0],
		a.inv[1][0]*x + a.inv[1][1]*y + a.ref[1],
	}
}

var nan2 = [2]float64{math.NaN(), math.NaN()}
