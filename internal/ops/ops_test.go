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
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/fits"
	"github.com/mlnoga/hpxgrid/internal/sink"
	"github.com/mlnoga/hpxgrid/internal/sparse"
	"github.com/mlnoga/hpxgrid/internal/wcs"
)

// Writes a small image with a linear projection and an epoch of the given day
func writeTestImage(t *testing.T, dir string, day int) string {
	const rows, cols = 12, 10
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(i)
	}
	img := fits.NewImageFromNaxisn([]int32{cols, rows}, data)
	img.SetWCSHeader(&wcs.Header{
		Ctype1: "RA", Ctype2: "DEC",
		Crpix: [2]float64{1, 1}, Crval: [2]float64{30, 10},
		Cdelt: [2]float64{1, 1},
		Epoch: float64(day), HasEpoch: true,
	})
	name := filepath.Join(dir, fmt.Sprintf("frame%d.fits", day))
	require.NoError(t, img.WriteFile(name))
	return name
}

func testContext(s sink.Sink) *Context {
	c := NewContext(io.Discard, 2)
	c.Sink = s
	return c
}

func TestPipeline(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, 100)
	writeTestImage(t, dir, 101)

	coll := sink.NewCollector()
	c := testContext(coll)
	seq := NewOpSequence(
		NewOpLoadMany([]string{filepath.Join(dir, "*.fits")}),
		NewOpToHPX(16, true),
		NewOpSaveRecords(),
		NewOpSave(filepath.Join(dir, "out%d.fits")),
	)
	promises, err := seq.MakePromises(nil, c)
	require.NoError(t, err)
	require.Len(t, promises, 2)

	frames, err := MaterializeAll(promises, c.MaxThreads, false)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	for _, f := range frames {
		assert.True(t, f.HasTime)
		assert.Equal(t, 16, f.Nside)
		assert.Equal(t, [2]float64{2.8125, 2.8125}, f.Step)
		assert.NotZero(t, f.Grid.Len())
		assert.Nil(t, f.Image.Data, "pixel data released after conversion")
	}
	assert.Equal(t, []int64{100 * 86400, 101 * 86400}, coll.Times())
	assert.Equal(t, frames[0].Grid.Len()+frames[1].Grid.Len(), len(coll.Records()))

	// saved rasters load back onto the same cells
	back := NewOpSequence(NewOpLoad(0, filepath.Join(dir, "out0.fits")), NewOpToHPX(16, true))
	promises, err = back.MakePromises(nil, testContext(nil))
	require.NoError(t, err)
	reloaded, err := MaterializeAll(promises, 1, false)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, frames[0].Grid.Entries(), reloaded[0].Grid.Entries())
	assert.Equal(t, frames[0].Time, reloaded[0].Time)
}

func TestRegridOperator(t *testing.T) {
	dir := t.TempDir()
	name := writeTestImage(t, dir, 5)
	c := testContext(nil)
	seq := NewOpSequence(NewOpLoad(0, name), NewOpToHPX(16, false), NewOpRegrid([]int{2}, "max"))
	promises, err := seq.MakePromises(nil, c)
	require.NoError(t, err)
	frames, err := MaterializeAll(promises, 1, false)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 64, frames[0].Grid.Nx)
	assert.Equal(t, 32, frames[0].Grid.Ny)
}

func TestGridImageScaleAfterRegrid(t *testing.T) {
	c := testContext(nil)
	tcs := []struct {
		Factors []int
		Cdelt1  float64
		Cdelt2  float64
		Crpix2  float64
	}{
		{[]int{3}, 33.75, 33.75, 1 + 90/33.75},
		{[]int{2, 1}, 22.5, 11.25, 9},
	}
	for _, tc := range tcs {
		g := sparse.NewSparseGrid(32, 17)
		require.NoError(t, g.Set(4, 8, 1))
		f := &Frame{Grid: g, Nside: 4, Step: [2]float64{11.25, 11.25}}
		f, err := NewOpRegrid(tc.Factors, "sum").Apply(f, c)
		require.NoError(t, err)

		h := GridImage(f).Header
		assert.Equal(t, tc.Cdelt1, h.Floats["CDELT1"], "factors %v", tc.Factors)
		assert.Equal(t, tc.Cdelt2, h.Floats["CDELT2"], "factors %v", tc.Factors)
		assert.InDelta(t, tc.Crpix2, h.Floats["CRPIX2"], 1e-12, "factors %v", tc.Factors)
		assert.Equal(t, 1.0, h.Floats["CRPIX1"])
	}
}

func TestSaveRecordsNeedsSink(t *testing.T) {
	dir := t.TempDir()
	name := writeTestImage(t, dir, 5)
	seq := NewOpSequence(NewOpLoad(0, name), NewOpToHPX(16, false), NewOpSaveRecords())
	promises, err := seq.MakePromises(nil, testContext(nil))
	require.NoError(t, err)
	frames, err := MaterializeAll(promises, 1, false)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	assert.Empty(t, frames)
}

func TestFrameMemory(t *testing.T) {
	c := testContext(nil)
	c.MemoryMB, c.MaxThreads = 1000, 4
	assert.Equal(t, int64(1000*1024*1024*7/10/4), c.FrameMemory())
	c.MemoryMB = 0
	assert.Zero(t, c.FrameMemory())
}

func TestToHPXMemoryBudget(t *testing.T) {
	dir := t.TempDir()
	name := writeTestImage(t, dir, 5)
	c := testContext(nil)
	c.MemoryMB, c.MaxThreads = 1, 1

	// a fine grid needs far more than the budget for the 10x12 degree footprint
	seq := NewOpSequence(NewOpLoad(0, name), NewOpToHPX(4096, false))
	promises, err := seq.MakePromises(nil, c)
	require.NoError(t, err)
	frames, err := MaterializeAll(promises, 1, false)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	assert.Empty(t, frames)

	seq = NewOpSequence(NewOpLoad(0, name), NewOpToHPX(16, false))
	promises, err = seq.MakePromises(nil, c)
	require.NoError(t, err)
	frames, err = MaterializeAll(promises, 1, false)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

func TestSandbox(t *testing.T) {
	c := testContext(nil)
	c.Sandboxed = true
	_, err := NewOpLoad(0, "/etc/passwd").MakePromises(nil, c)
	assert.Error(t, err)
	_, err = NewOpLoad(0, "../up.fits").MakePromises(nil, c)
	assert.Error(t, err)
	_, err = NewOpLoad(0, "data/ok.fits").MakePromises(nil, c)
	assert.NoError(t, err)
}

func TestSequenceJSON(t *testing.T) {
	seq := NewOpSequence(
		NewOpLoadMany([]string{"*.fits"}),
		NewOpForEach(NewOpToHPX(32, false)),
		NewOpRegrid([]int{2, 4}, "mean"),
		NewOpSaveRecords(),
	)
	b, err := json.Marshal(seq)
	require.NoError(t, err)

	var back OpSequence
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back.Steps, 4)
	assert.Equal(t, []string{"*.fits"}, back.Steps[0].(*OpLoadMany).FilePatterns)
	fe := back.Steps[1].(*OpForEach)
	assert.Equal(t, 32, fe.Operation.(*OpToHPX).Nside)
	rg := back.Steps[2].(*OpRegrid)
	assert.Equal(t, []int{2, 4}, rg.Factors)
	assert.Equal(t, "mean", rg.Aggregator)
	assert.NotNil(t, rg.OpUnaryBase.Apply)
	assert.Equal(t, "saveRecords", back.Steps[3].GetType())

	_, err = UnmarshalOperator([]byte(`{"type":"stack"}`))
	assert.Error(t, err)
}

func TestRemoveNils(t *testing.T) {
	a, b := &Frame{ID: 1}, &Frame{ID: 2}
	res := RemoveNils([]*Frame{nil, a, nil, b})
	assert.Equal(t, []*Frame{a, b}, res)
}
