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
	"math"

	"github.com/mlnoga/hpxgrid/internal/hpx"
)

// Linear projection, world = crval + scale*(pixel - crpix). Used for axes without projection code
type linear struct {
	aff   *affine
	crval [2]float64
}

func newLinear(h *Header) (Projection, error) {
	aff, err := newAffine(h)
	if err != nil {
		return nil, err
	}
	return &linear{aff: aff, crval: h.Crval}, nil
}

func (p *linear) ToWorld(pix [][2]float64) ([][2]float64, error) {
	world := make([][2]float64, len(pix))
	for i, px := range pix {
		x, y := p.aff.toIntermediate(px)
		world[i] = [2]float64{p.crval[0] + x, p.crval[1] + y}
	}
	return world, nil
}

func (p *linear) ToPixel(world [][2]float64) ([][2]float64, error) {
	pix := make([][2]float64, len(world))
	for i, w := range world {
		pix[i] = p.aff.fromIntermediate(w[0]-p.crval[0], w[1]-p.crval[1])
	}
	return pix, nil
}

// Gnomonic (TAN) zenithal projection with the native pole at the reference point
// and the default native longitude of the celestial pole, 180 degrees
type gnomonic struct {
	aff          *affine
	alphaP       float64 // celestial longitude of the native pole, radians
	sinDP, cosDP float64 // of the celestial latitude of the native pole
}

const phiP = math.Pi // native longitude of the celestial pole

func newGnomonic(h *Header) (Projection, error) {
	aff, err := newAffine(h)
	if err != nil {
		return nil, err
	}
	deltaP := h.Crval[1] * degToRad
	return &gnomonic{
		aff:    aff,
		alphaP: h.Crval[0] * degToRad,
		sinDP:  math.Sin(deltaP),
		cosDP:  math.Cos(deltaP),
	}, nil
}

const degToRad = math.Pi / 180
const radToDeg = 180 / math.Pi

func (p *gnomonic) ToWorld(pix [][2]float64) ([][2]float64, error) {
	world := make([][2]float64, len(pix))
	for i, px := range pix {
		x, y := p.aff.toIntermediate(px)
		r := math.Hypot(x, y)
		phi := math.Atan2(x, -y)
		theta := math.Atan2(radToDeg, r) // atan(180/(pi*R)), R in degrees

		sinT, cosT := math.Sin(theta), math.Cos(theta)
		dPhi := phi - phiP
		a := -cosT * math.Sin(dPhi)                        // cos(delta)*sin(alpha-alphaP)
		b := sinT*p.cosDP - cosT*p.sinDP*math.Cos(dPhi)    // cos(delta)*cos(alpha-alphaP)
		alpha := p.alphaP + math.Atan2(a, b)
		delta := math.Atan2(sinT*p.sinDP+cosT*p.cosDP*math.Cos(dPhi), math.Hypot(a, b))
		world[i] = [2]float64{hpx.NormalizeRA(alpha * radToDeg), delta * radToDeg}
	}
	return world, nil
}

func (p *gnomonic) ToPixel(world [][2]float64) ([][2]float64, error) {
	pix := make([][2]float64, len(world))
	for i, w := range world {
		alpha, delta := w[0]*degToRad, w[1]*degToRad
		sinD, cosD := math.Sin(delta), math.Cos(delta)
		dA := alpha - p.alphaP
		a := -cosD * math.Sin(dA)                          // cos(theta)*sin(phi-phiP)
		b := sinD*p.cosDP - cosD*p.sinDP*math.Cos(dA)      // cos(theta)*cos(phi-phiP)
		sinT := sinD*p.sinDP + cosD*p.cosDP*math.Cos(dA)
		if !(sinT > 0) { // opposite hemisphere cannot be projected
			pix[i] = nan2
			continue
		}
		phi := phiP + math.Atan2(a, b)
		r := radToDeg * math.Hypot(a, b) / sinT
		pix[i] = p.aff.fromIntermediate(r*math.Sin(phi), -r*math.Cos(phi))
	}
	return pix, nil
}

// HEALPix projection. Intermediate world coordinates are HPX plane coordinates in degrees,
// offset in right ascension by CRVAL1
type healpix struct {
	aff   *affine
	raOff float64
}

func newHealpix(h *Header) (Projection, error) {
	aff, err := newAffine(h)
	if err != nil {
		return nil, err
	}
	return &healpix{aff: aff, raOff: h.Crval[0]}, nil
}

func (p *healpix) ToWorld(pix [][2]float64) ([][2]float64, error) {
	world := make([][2]float64, len(pix))
	for i, px := range pix {
		x, y := p.aff.toIntermediate(px)
		if !hpx.OnFacet(x, y) { // polar gap between facets
			world[i] = nan2
			continue
		}
		ra, dec := hpx.Inverse(x, y)
		if p.raOff != 0 {
			ra += p.raOff
		}
		world[i] = [2]float64{ra, dec}
	}
	return world, nil
}

// Projects world coordinates onto the HPX plane. NaN inputs yield NaN pixels,
// declinations outside [-90,90] fail with a domain error
func (p *healpix) ToPixel(world [][2]float64) ([][2]float64, error) {
	pix := make([][2]float64, len(world))
	for i, w := range world {
		if math.IsNaN(w[0]) || math.IsNaN(w[1]) {
			pix[i] = nan2
			continue
		}
		x, y, err := hpx.Forward(w[0]-p.raOff, w[1])
		if err != nil {
			return nil, err
		}
		pix[i] = p.aff.fromIntermediate(x, y)
	}
	return pix, nil
}
