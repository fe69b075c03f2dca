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

// HEALPix projection of the sphere onto facets, see section 6 of
// Calabretta & Roukema, "Mapping on the HEALPix grid", MNRAS 381 (2007).
// All angles are in degrees.
//
// The mapping is a true inverse everywhere except at the poles, where right ascension
// is undefined, and along the RA=-180/180 seam. Inverse(Forward(ra,+-90)) recovers the
// declination exactly, but not the right ascension.

const H float64 = 4 // Number of facets in longitude
const K float64 = 3 // Number of facets in latitude

const degToRad = math.Pi / 180
const radToDeg = 180 / math.Pi

// Latitude at which the polar caps begin, asin((K-1)/K) in degrees, about 41.8
var DecCutoff = math.Asin((K-1)/K) * radToDeg

// Projected y at the boundary between the equatorial belt and the polar caps
const YCutoff = (K - 1) * 90 / H

// Latitude region of a point on the sphere or in the projection plane
type Region int

const (
	RegionInner   Region = iota // equatorial belt, cylindrical equal area
	RegionUpper                 // northern polar cap, Collignon-like facets
	RegionLower                 // southern polar cap
	RegionExtreme               // |y|>=90 in the projection plane, outside the projected range
)

func (r Region) String() string {
	switch r {
	case RegionInner:
		return "inner"
	case RegionUpper:
		return "upper"
	case RegionLower:
		return "lower"
	case RegionExtreme:
		return "extreme"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// Returns the region of a declination on the sphere
func RegionOfDec(dec float64) Region {
	if dec > DecCutoff {
		return RegionUpper
	} else if dec < -DecCutoff {
		return RegionLower
	}
	return RegionInner
}

// Returns the region of a y coordinate in the projection plane
func RegionOfY(y float64) Region {
	if math.Abs(y) >= 90 {
		return RegionExtreme
	} else if y > YCutoff {
		return RegionUpper
	} else if y < -YCutoff {
		return RegionLower
	}
	return RegionInner
}

// Shifts right ascension into [-180, 180)
func NormalizeRA(ra float64) float64 {
	m := math.Mod(ra+180, 360)
	if m < 0 {
		m += 360
	}
	if m >= 360 { // tiny negative remainders round up to the period
		m = 0
	}
	return -180 + m
}

// Projects right ascension and declination onto the HPX plane
func Forward(ra, dec float64) (x, y float64, err error) {
	ra = NormalizeRA(ra)
	if !(ra >= -180 && ra < 180) {
		return 0, 0, fmt.Errorf("%w: RA %g must be in range [-180, 180)", errs.ErrDomain, ra)
	}
	if !(dec >= -90 && dec <= 90) {
		return 0, 0, fmt.Errorf("%w: DEC %g must be in range [-90, 90]", errs.ErrDomain, dec)
	}

	sinDec := math.Sin(dec * degToRad)

	switch RegionOfDec(dec) {
	case RegionInner:
		return ra, (K * 90 / H) * sinDec, nil

	case RegionUpper:
		sigma := math.Sqrt(K * (1 - math.Abs(sinDec)))
		phiC := facetCenter(ra, omega(dec > 0))
		return phiC + (ra-phiC)*sigma, (180 / H) * (0.5*(K+1) - sigma), nil

	case RegionLower:
		sigma := math.Sqrt(K * (1 - math.Abs(sinDec)))
		phiC := facetCenter(ra, omega(dec > 0))
		return phiC + (ra-phiC)*sigma, -(180 / H) * (0.5*(K+1) - sigma), nil

	default:
		panic("unreachable")
	}
}

// Maps a point in the HPX plane back to right ascension and declination.
// Points with |y|>=90 are returned unchanged; callers must treat them as out of range
func Inverse(x, y float64) (ra, dec float64) {
	switch RegionOfY(y) {
	case RegionExtreme:
		return x, y

	case RegionInner:
		return x, math.Asin((y*H)/(90*K)) * radToDeg

	case RegionUpper:
		sigma := 0.5*(K+1) - math.Abs(y*H)/180
		xC := facetCenter(x, omega(y > 0))
		return xC + (x-xC)/sigma, math.Asin(1-(1/K)*sigma*sigma) * radToDeg

	case RegionLower:
		sigma := 0.5*(K+1) - math.Abs(y*H)/180
		xC := facetCenter(x, omega(y > 0))
		return xC + (x-xC)/sigma, -math.Asin(1-(1/K)*sigma*sigma) * radToDeg

	default:
		panic("unreachable")
	}
}

// Reports whether a point of the HPX plane lies on a facet. In the polar caps the
// triangular facets leave gaps which no sky position projects to. Of the poles
// themselves only the facet apexes are on a facet
func OnFacet(x, y float64) bool {
	const eps = 1e-9
	switch RegionOfY(y) {
	case RegionInner:
		return true

	case RegionUpper, RegionLower:
		sigma := 0.5*(K+1) - math.Abs(y*H)/180
		xC := facetCenter(x, omega(y > 0))
		return math.Abs(x-xC) <= (180/H)*sigma+eps

	default:
		return math.Abs(y) == 90 && math.Abs(x-facetCenter(x, omega(y > 0))) <= eps
	}
}

// Facet offset: 1 for odd K or the northern hemisphere, else 0
func omega(north bool) float64 {
	if math.Mod(K, 2) != 0 || north {
		return 1
	}
	return 0
}

// Center longitude of the polar facet containing the given longitude
func facetCenter(lon, omega float64) float64 {
	return -180 + (180/H)*(omega+2*math.Floor((lon+180)*H/360+0.5*(1-omega)))
}

// Projects slices of right ascension and declination. A slice of length one is
// broadcast against the other. Fails on the first point outside the domain
func ForwardSlice(ras, decs []float64) (xs, ys []float64, err error) {
	n, err := broadcastLen(len(ras), len(decs))
	if err != nil {
		return nil, nil, err
	}
	xs, ys = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i], ys[i], err = Forward(at(ras, i), at(decs, i))
		if err != nil {
			return nil, nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	return xs, ys, nil
}

// Inverts slices of HPX coordinates, broadcasting a slice of length one against the other
func InverseSlice(xs, ys []float64) (ras, decs []float64, err error) {
	n, err := broadcastLen(len(xs), len(ys))
	if err != nil {
		return nil, nil, err
	}
	ras, decs = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		ras[i], decs[i] = Inverse(at(xs, i), at(ys, i))
	}
	return ras, decs, nil
}

func broadcastLen(a, b int) (int, error) {
	switch {
	case a == b:
		return a, nil
	case a == 1:
		return b, nil
	case b == 1:
		return a, nil
	}
	return 0, fmt.Errorf("%w: cannot broadcast lengths %d and %d", errs.ErrShape, a, b)
}

func at(s []float64, i int) float64 {
	if len(s) == 1 {
		return s[0]
	}
	return s[i]
}
