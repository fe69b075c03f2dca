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
	"errors"
	"math"
	"testing"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// Evenly spaced values including both endpoints, like numpy.linspace
func linspace(from, to float64, n int) []float64 {
	res := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range res {
		res[i] = from + float64(i)*step
	}
	return res
}

func TestRoundtrip(t *testing.T) {
	epsilon := 1e-9
	ras := linspace(-180, 180, 50)[:49]
	decs := linspace(-90, 90, 25)[1:24]

	for _, dec := range decs {
		for _, ra := range ras {
			x, y, err := Forward(ra, dec)
			if err != nil {
				t.Fatalf("Forward(%g, %g) err=%v", ra, dec, err)
			}
			raOut, decOut := Inverse(x, y)
			if math.Abs(raOut-ra) > epsilon || math.Abs(decOut-dec) > epsilon {
				t.Errorf("Inverse(Forward(%g, %g))=(%g, %g); want (%g, %g)", ra, dec, raOut, decOut, ra, dec)
			}
		}
	}
}

func TestExtremeRA(t *testing.T) {
	epsilon := 1e-9
	ras := linspace(-360, 360, 50)
	decs := linspace(-90, 90, 25)[1:24]

	for _, dec := range decs {
		for _, ra1 := range ras {
			ra2 := math.Mod(ra1+180, 360)
			if ra2 < 0 {
				ra2 += 360
			}
			ra2 -= 180
			x1, y1, err1 := Forward(ra1, dec)
			x2, y2, err2 := Forward(ra2, dec)
			if err1 != nil || err2 != nil {
				t.Fatalf("Forward errs %v, %v", err1, err2)
			}
			if math.Abs(x1-x2) > epsilon || math.Abs(y1-y2) > epsilon {
				t.Errorf("ra=%g dec=%g got (%g,%g) for ra2=%g got (%g,%g)", ra1, dec, x1, y1, ra2, x2, y2)
			}
		}
	}
}

func TestExtremeDec(t *testing.T) {
	ras := linspace(-180, 180, 50)[:49]
	for _, dec := range []float64{-90, 90} {
		for _, ra := range ras {
			x, y, err := Forward(ra, dec)
			if err != nil {
				t.Fatalf("Forward(%g, %g) err=%v", ra, dec, err)
			}
			// RA is undefined at the poles, only the declination must match
			_, decOut := Inverse(x, y)
			if decOut != dec {
				t.Errorf("dec of Inverse(Forward(%g, %g))=%g; want %g", ra, dec, decOut, dec)
			}
		}
	}
}

func TestForwardDomain(t *testing.T) {
	for _, dec := range []float64{-90.5, 90.0001, math.NaN(), math.Inf(1)} {
		if _, _, err := Forward(0, dec); !errors.Is(err, errs.ErrDomain) {
			t.Errorf("Forward(0, %g) err=%v; want ErrDomain", dec, err)
		}
	}
	if _, _, err := Forward(math.NaN(), 0); !errors.Is(err, errs.ErrDomain) {
		t.Errorf("Forward(NaN, 0) err=%v; want ErrDomain", err)
	}
}

func TestNormalizeRA(t *testing.T) {
	tcs := []struct{ In, Want float64 }{
		{0, 0}, {180, -180}, {-180, -180}, {359, -1}, {-181, 179}, {540, -180}, {-1e-20, 0},
	}
	for _, tc := range tcs {
		got := NormalizeRA(tc.In)
		if got != tc.Want {
			t.Errorf("NormalizeRA(%g)=%g; want %g", tc.In, got, tc.Want)
		}
		if got < -180 || got >= 180 {
			t.Errorf("NormalizeRA(%g)=%g outside [-180,180)", tc.In, got)
		}
	}
}

func TestKnownValues(t *testing.T) {
	epsilon := 1e-12
	tcs := []struct{ RA, Dec, X, Y float64 }{
		{0, 0, 0, 0},
		{90, 0, 90, 0},
		{-45, 30, -45, 33.75},
		{45, 90, 45, 90},     // pole maps onto the facet center
		{-100, -90, -135, -90},
	}
	for _, tc := range tcs {
		x, y, err := Forward(tc.RA, tc.Dec)
		if err != nil {
			t.Fatalf("Forward(%g, %g) err=%v", tc.RA, tc.Dec, err)
		}
		if math.Abs(x-tc.X) > epsilon || math.Abs(y-tc.Y) > epsilon {
			t.Errorf("Forward(%g, %g)=(%g, %g); want (%g, %g)", tc.RA, tc.Dec, x, y, tc.X, tc.Y)
		}
	}
}

func TestRegions(t *testing.T) {
	if r := RegionOfDec(DecCutoff); r != RegionInner {
		t.Errorf("RegionOfDec(cutoff)=%v; want inner", r)
	}
	if r := RegionOfDec(60); r != RegionUpper {
		t.Errorf("RegionOfDec(60)=%v; want upper", r)
	}
	if r := RegionOfDec(-60); r != RegionLower {
		t.Errorf("RegionOfDec(-60)=%v; want lower", r)
	}
	if r := RegionOfY(YCutoff); r != RegionInner {
		t.Errorf("RegionOfY(%g)=%v; want inner", YCutoff, r)
	}
	if r := RegionOfY(-90); r != RegionExtreme {
		t.Errorf("RegionOfY(-90)=%v; want extreme", r)
	}
	if x, y := Inverse(12, 95); x != 12 || y != 95 {
		t.Errorf("Inverse(12, 95)=(%g, %g); want identity", x, y)
	}
}

func TestSliceMatchesScalar(t *testing.T) {
	ras := linspace(-300, 300, 37)
	decs := []float64{47.5}
	xs, ys, err := ForwardSlice(ras, decs)
	if err != nil {
		t.Fatalf("ForwardSlice err=%v", err)
	}
	if len(xs) != len(ras) {
		t.Fatalf("len(xs)=%d; want %d", len(xs), len(ras))
	}
	for i, ra := range ras {
		x, y, _ := Forward(ra, decs[0])
		if xs[i] != x || ys[i] != y {
			t.Errorf("slice[%d]=(%g,%g); scalar=(%g,%g)", i, xs[i], ys[i], x, y)
		}
	}

	ras2, decs2, err := InverseSlice(xs, ys)
	if err != nil {
		t.Fatalf("InverseSlice err=%v", err)
	}
	for i := range xs {
		ra, dec := Inverse(xs[i], ys[i])
		if ras2[i] != ra || decs2[i] != dec {
			t.Errorf("inverse slice[%d]=(%g,%g); scalar=(%g,%g)", i, ras2[i], decs2[i], ra, dec)
		}
	}

	if _, _, err := ForwardSlice([]float64{1, 2}, []float64{1, 2, 3}); !errors.Is(err, errs.ErrShape) {
		t.Errorf("ForwardSlice mismatched lengths err=%v; want ErrShape", err)
	}
	if _, _, err := ForwardSlice([]float64{1, 2}, []float64{10, 95}); !errors.Is(err, errs.ErrDomain) {
		t.Errorf("ForwardSlice bad dec err=%v; want ErrDomain", err)
	}
}

func TestIndexGrid(t *testing.T) {
	g, err := NewIndexGrid(4)
	if err != nil {
		t.Fatalf("NewIndexGrid err=%v", err)
	}
	if g.Nx != 32 || g.Ny != 17 || g.Step != 11.25 {
		t.Errorf("grid=%v; want 32x17 step 11.25", g)
	}
	if g.Column(22.5) != 2 || g.Row(0) != 8 || g.X(3) != 33.75 || g.Y(0) != -90 {
		t.Errorf("index conversions of %v are off", g)
	}
	if w := g.WrapColumn(-1); w != 31 {
		t.Errorf("WrapColumn(-1)=%d; want 31", w)
	}
	if _, err := NewIndexGrid(0); !errors.Is(err, errs.ErrDomain) {
		t.Errorf("NewIndexGrid(0) err=%v; want ErrDomain", err)
	}
	if n, _ := NsideForStep(11.25); n != 4 {
		t.Errorf("NsideForStep(11.25)=%d; want 4", n)
	}
}

func TestOnFacet(t *testing.T) {
	tcs := []struct {
		X, Y float64
		Want bool
	}{
		{0, 0, true},
		{170, 60, true},
		{45, 84.375, true},
		{0, 84.375, false},
		{22.5, 73.125, false},
		{40, 73.125, true},
		{-135, -80, true},
		{-90, -80, false},
		{45, 90, true},
		{30, 90, false},
		{0, 95, false},
	}
	for _, tc := range tcs {
		if got := OnFacet(tc.X, tc.Y); got != tc.Want {
			t.Errorf("OnFacet(%g, %g)=%v; want %v", tc.X, tc.Y, got, tc.Want)
		}
	}

	// every sky position lands on a facet
	for _, ra := range linspace(-180, 175, 72) {
		for _, dec := range linspace(-90, 90, 73) {
			x, y, err := Forward(ra, dec)
			if err != nil {
				t.Fatalf("Forward(%g, %g) err=%v", ra, dec, err)
			}
			if !OnFacet(x, y) {
				t.Errorf("Forward(%g, %g)=(%g, %g) is not on a facet", ra, dec, x, y)
			}
		}
	}
}
